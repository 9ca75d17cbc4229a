package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"earnLedger/internal/model"
)

// Tx reads and writes ledger records inside one atomic unit. Getters report
// whether the record exists.
type Tx interface {
	Master() (model.Master, bool, error)
	PutMaster(m model.Master) error

	Asset(mint common.Address) (model.Asset, bool, error)
	PutAsset(a model.Asset) error
	Assets() ([]model.Asset, error)

	Treasury(mint common.Address) (model.Treasury, bool, error)
	PutTreasury(t model.Treasury) error

	Pool(mint common.Address) (model.Pool, bool, error)
	PutPool(p model.Pool) error
	Pools() ([]model.Pool, error)

	StakeAccount(mint, owner common.Address) (model.StakeAccount, bool, error)
	PutStakeAccount(a model.StakeAccount) error
	StakeAccounts(mint common.Address) ([]model.StakeAccount, error)

	Balance(asset, holder common.Address) (uint64, error)
	PutBalance(b model.Balance) error
}

// Store runs transactions. Update commits when fn returns nil and discards
// every write otherwise. Updates are serialized.
type Store interface {
	Update(ctx context.Context, fn func(Tx) error) error
	View(ctx context.Context, fn func(Tx) error) error
	Close() error
}

type txKey struct{}

// WithTx returns a context carrying tx, so collaborators invoked during an
// update can act inside the same atomic unit.
func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction carried by ctx, if any.
func TxFromContext(ctx context.Context) (Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(Tx)
	return tx, ok && tx != nil
}
