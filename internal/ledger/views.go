package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"earnLedger/internal/model"
	"earnLedger/internal/rewards"
	"earnLedger/internal/staking"
	"earnLedger/internal/storage"
)

// Position is a stake account together with values derived at read time.
type Position struct {
	Account    model.StakeAccount `json:"account"`
	Pending    uint64             `json:"pending_rewards"`
	UnlockAt   int64              `json:"unlock_at,omitempty"`
	CanUnstake bool               `json:"can_unstake"`
}

// Snapshot is the full ledger state at one point in time.
type Snapshot struct {
	Master     model.Master         `json:"master"`
	Assets     []model.Asset        `json:"assets"`
	Treasuries []model.Treasury     `json:"treasuries"`
	Pools      []model.Pool         `json:"pools"`
	Accounts   []model.StakeAccount `json:"accounts"`
	TakenAt    int64                `json:"taken_at"`
}

func (e *Engine) Master(ctx context.Context) (model.Master, error) {
	var master model.Master
	err := e.view(ctx, func(tx storage.Tx) error {
		var err error
		master, err = requireMaster(tx)
		return err
	})
	return master, err
}

func (e *Engine) Assets(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset
	err := e.view(ctx, func(tx storage.Tx) error {
		var err error
		assets, err = tx.Assets()
		return err
	})
	return assets, err
}

func (e *Engine) Asset(ctx context.Context, mint common.Address) (model.Asset, error) {
	var asset model.Asset
	err := e.view(ctx, func(tx storage.Tx) error {
		var err error
		asset, err = requireAsset(tx, mint)
		return err
	})
	return asset, err
}

func (e *Engine) Treasury(ctx context.Context, mint common.Address) (model.Treasury, error) {
	var t model.Treasury
	err := e.view(ctx, func(tx storage.Tx) error {
		var err error
		t, err = requireTreasury(tx, mint)
		return err
	})
	return t, err
}

func (e *Engine) Pool(ctx context.Context, mint common.Address) (model.Pool, error) {
	var pool model.Pool
	err := e.view(ctx, func(tx storage.Tx) error {
		var err error
		pool, err = requirePool(tx, mint)
		return err
	})
	return pool, err
}

func (e *Engine) StakeAccounts(ctx context.Context, mint common.Address) ([]model.StakeAccount, error) {
	var accounts []model.StakeAccount
	err := e.view(ctx, func(tx storage.Tx) error {
		if _, err := requirePool(tx, mint); err != nil {
			return err
		}
		var err error
		accounts, err = tx.StakeAccounts(mint)
		return err
	})
	return accounts, err
}

// Position returns owner's stake with its pending rewards computed as if
// it settled now.
func (e *Engine) Position(ctx context.Context, mint, owner common.Address) (Position, error) {
	now := e.cfg.Clock.Now().Unix()
	var pos Position
	err := e.view(ctx, func(tx storage.Tx) error {
		pool, err := requirePool(tx, mint)
		if err != nil {
			return err
		}
		acct, ok, err := tx.StakeAccount(mint, owner)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrStakeAccountNotFound, owner.Hex())
		}
		pending, err := rewards.Pending(acct, pool)
		if err != nil {
			return err
		}
		pos = Position{
			Account:    acct,
			Pending:    pending,
			UnlockAt:   staking.UnlockAt(pool, acct),
			CanUnstake: staking.IsElapsed(pool, acct, now),
		}
		return nil
	})
	return pos, err
}

// Snapshot reads every record in one consistent view.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{TakenAt: e.cfg.Clock.Now().Unix()}
	err := e.view(ctx, func(tx storage.Tx) error {
		master, ok, err := tx.Master()
		if err != nil {
			return err
		}
		if ok {
			snap.Master = master
		}
		if snap.Assets, err = tx.Assets(); err != nil {
			return err
		}
		for _, asset := range snap.Assets {
			t, ok, err := tx.Treasury(asset.Mint)
			if err != nil {
				return err
			}
			if ok {
				snap.Treasuries = append(snap.Treasuries, t)
			}
		}
		if snap.Pools, err = tx.Pools(); err != nil {
			return err
		}
		for _, pool := range snap.Pools {
			accounts, err := tx.StakeAccounts(pool.Mint)
			if err != nil {
				return err
			}
			snap.Accounts = append(snap.Accounts, accounts...)
		}
		return nil
	})
	return snap, err
}

// Only returns the part of s that concerns mints. The master aggregate is
// kept as is.
func (s Snapshot) Only(mints []common.Address) Snapshot {
	keep := make(map[common.Address]struct{}, len(mints))
	for _, mint := range mints {
		keep[mint] = struct{}{}
	}
	out := Snapshot{Master: s.Master, TakenAt: s.TakenAt}
	out.Assets = filterByMint(s.Assets, keep, func(a model.Asset) common.Address { return a.Mint })
	out.Treasuries = filterByMint(s.Treasuries, keep, func(t model.Treasury) common.Address { return t.Mint })
	out.Pools = filterByMint(s.Pools, keep, func(p model.Pool) common.Address { return p.Mint })
	out.Accounts = filterByMint(s.Accounts, keep, func(a model.StakeAccount) common.Address { return a.Mint })
	return out
}

func filterByMint[T any](rows []T, keep map[common.Address]struct{}, mintOf func(T) common.Address) []T {
	var out []T
	for _, row := range rows {
		if _, ok := keep[mintOf(row)]; ok {
			out = append(out, row)
		}
	}
	return out
}
