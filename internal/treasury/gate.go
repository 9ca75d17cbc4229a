package treasury

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	"earnLedger/internal/model"
)

// DefaultBuybackThreshold is the treasury balance a new asset must reach
// before its first buyback.
const DefaultBuybackThreshold uint64 = 100_000_000

// Swapper converts native funds held by from into tokens of mint and
// returns the quantity received.
type Swapper interface {
	Swap(ctx context.Context, mint, from common.Address, amountIn uint64) (uint64, error)
}

// Burner destroys tokens of mint held by holder.
type Burner interface {
	Burn(ctx context.Context, mint, holder common.Address, amount uint64) error
}

// Result describes an executed buyback.
type Result struct {
	Spent  uint64 `json:"spent"`
	Burned uint64 `json:"burned"`
}

// Records loads and saves treasuries. A storage.Tx satisfies it.
type Records interface {
	Treasury(mint common.Address) (model.Treasury, bool, error)
	PutTreasury(t model.Treasury) error
}

// Gate executes buybacks against a treasury.
type Gate struct {
	swapper Swapper
	burner  Burner
}

func NewGate(swapper Swapper, burner Burner) *Gate {
	return &Gate{swapper: swapper, burner: burner}
}

// Execute debits amount from the treasury of mint, swaps it for the asset
// through vault and burns what the swap returned. Anyone may call it once
// the threshold is met. The debit is saved before the swap is invoked and
// the treasury is reloaded before the burn is recorded, so writes made by
// the swap or burn services are kept.
func (g *Gate) Execute(ctx context.Context, records Records, mint, vault common.Address, amount, minOutput uint64, now int64) (Result, error) {
	if g.swapper == nil || g.burner == nil {
		return Result{}, fmt.Errorf("buyback gate is not configured")
	}

	t, err := load(records, mint)
	if err != nil {
		return Result{}, err
	}
	if err := Debit(&t, amount, now); err != nil {
		return Result{}, err
	}
	if err := records.PutTreasury(t); err != nil {
		return Result{}, err
	}

	received, err := g.swapper.Swap(ctx, mint, vault, amount)
	if err != nil {
		return Result{}, fmt.Errorf("swap: %w", err)
	}
	if received < minOutput {
		return Result{}, fmt.Errorf("%w: received %d, minimum %d", model.ErrSlippageExceeded, received, minOutput)
	}
	if received > 0 {
		if err := g.burner.Burn(ctx, mint, vault, received); err != nil {
			return Result{}, fmt.Errorf("burn: %w", err)
		}
	}

	t, err = load(records, mint)
	if err != nil {
		return Result{}, err
	}
	if err := RecordBurn(&t, received); err != nil {
		return Result{}, err
	}
	if err := records.PutTreasury(t); err != nil {
		return Result{}, err
	}
	return Result{Spent: amount, Burned: received}, nil
}

func load(records Records, mint common.Address) (model.Treasury, error) {
	t, ok, err := records.Treasury(mint)
	if err != nil {
		return model.Treasury{}, err
	}
	if !ok {
		return model.Treasury{}, fmt.Errorf("%w: no treasury for %s", model.ErrTokenNotRegistered, mint.Hex())
	}
	return t, nil
}

// Debit applies the threshold and balance gates, in that order, then
// removes amount from the treasury balance.
func Debit(t *model.Treasury, amount uint64, now int64) error {
	if amount == 0 {
		return model.ErrInvalidAmount
	}
	if t.Balance < t.BuybackThreshold {
		return fmt.Errorf("%w: balance %d, threshold %d", model.ErrBelowBuybackThreshold, t.Balance, t.BuybackThreshold)
	}
	if amount > t.Balance {
		return fmt.Errorf("%w: balance %d, requested %d", model.ErrInsufficientBalance, t.Balance, amount)
	}

	total, overflow := math.SafeAdd(t.TotalBuybacks, amount)
	if overflow {
		return fmt.Errorf("%w: total buybacks", model.ErrOverflow)
	}
	t.Balance -= amount
	t.TotalBuybacks = total
	t.LastBuyback = now
	return nil
}

// Credit adds buyback-eligible funds to the treasury.
func Credit(t *model.Treasury, amount uint64) error {
	balance, overflow := math.SafeAdd(t.Balance, amount)
	if overflow {
		return fmt.Errorf("%w: treasury balance", model.ErrOverflow)
	}
	t.Balance = balance
	return nil
}

// RecordBurn adds burned to the lifetime burn counter.
func RecordBurn(t *model.Treasury, burned uint64) error {
	total, overflow := math.SafeAdd(t.TotalBurned, burned)
	if overflow {
		return fmt.Errorf("%w: total burned", model.ErrOverflow)
	}
	t.TotalBurned = total
	return nil
}
