package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"earnLedger/internal/model"
	"earnLedger/internal/storage"
)

// MarketAddress is the counterparty of simulated swaps.
var MarketAddress = storage.DeriveAddress("market")

var errNoTx = errors.New("bank: no store transaction in context")

// Book is an in-process host ledger of native and token balances. Its
// balances live in the ledger store, so every call joins the transaction
// carried by ctx and commits or rolls back with the calling operation.
type Book struct {
	rateNum uint64
	rateDen uint64
}

// NewBook returns a Book whose market pays rateNum/rateDen tokens per
// native unit.
func NewBook(rateNum, rateDen uint64) *Book {
	if rateNum == 0 {
		rateNum = 1
	}
	if rateDen == 0 {
		rateDen = 1
	}
	return &Book{rateNum: rateNum, rateDen: rateDen}
}

// BalanceOf returns holder's balance of asset.
func (b *Book) BalanceOf(ctx context.Context, asset, holder common.Address) (uint64, error) {
	tx, ok := storage.TxFromContext(ctx)
	if !ok {
		return 0, errNoTx
	}
	return tx.Balance(asset, holder)
}

// Transfer moves amount of asset from one holder to another.
func (b *Book) Transfer(ctx context.Context, asset, from, to common.Address, amount uint64) error {
	tx, ok := storage.TxFromContext(ctx)
	if !ok {
		return errNoTx
	}
	if amount == 0 || from == to {
		return nil
	}
	if err := debit(tx, asset, from, amount); err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransferFailed, err)
	}
	if err := credit(tx, asset, to, amount); err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransferFailed, err)
	}
	return nil
}

// Mint creates amount of asset for holder.
func (b *Book) Mint(ctx context.Context, asset, holder common.Address, amount uint64) error {
	tx, ok := storage.TxFromContext(ctx)
	if !ok {
		return errNoTx
	}
	if amount == 0 {
		return model.ErrInvalidAmount
	}
	return credit(tx, asset, holder, amount)
}

// Swap sells amountIn native units held by from and credits from with
// tokens of mint at the configured rate.
func (b *Book) Swap(ctx context.Context, mint, from common.Address, amountIn uint64) (uint64, error) {
	tx, ok := storage.TxFromContext(ctx)
	if !ok {
		return 0, errNoTx
	}
	gross, overflow := math.SafeMul(amountIn, b.rateNum)
	if overflow {
		return 0, fmt.Errorf("%w: swap output", model.ErrOverflow)
	}
	out := gross / b.rateDen

	if err := debit(tx, model.NativeAsset, from, amountIn); err != nil {
		return 0, fmt.Errorf("swap input: %w", err)
	}
	if err := credit(tx, model.NativeAsset, MarketAddress, amountIn); err != nil {
		return 0, err
	}
	if out > 0 {
		if err := credit(tx, mint, from, out); err != nil {
			return 0, err
		}
	}
	return out, nil
}

// Burn destroys amount of mint held by holder.
func (b *Book) Burn(ctx context.Context, mint, holder common.Address, amount uint64) error {
	tx, ok := storage.TxFromContext(ctx)
	if !ok {
		return errNoTx
	}
	return debit(tx, mint, holder, amount)
}

func debit(tx storage.Tx, asset, holder common.Address, amount uint64) error {
	balance, err := tx.Balance(asset, holder)
	if err != nil {
		return err
	}
	if balance < amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", model.ErrInsufficientBalance, holder.Hex(), balance, amount)
	}
	return tx.PutBalance(model.Balance{Asset: asset, Holder: holder, Amount: balance - amount})
}

func credit(tx storage.Tx, asset, holder common.Address, amount uint64) error {
	balance, err := tx.Balance(asset, holder)
	if err != nil {
		return err
	}
	next, overflow := math.SafeAdd(balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance of %s", model.ErrOverflow, holder.Hex())
	}
	return tx.PutBalance(model.Balance{Asset: asset, Holder: holder, Amount: next})
}
