package ledger

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"earnLedger/internal/model"
	"earnLedger/internal/registry"
	"earnLedger/internal/storage"
	"earnLedger/internal/treasury"
)

// PoolParams configures a new staking pool.
type PoolParams struct {
	Mint            common.Address
	AgentWallet     common.Address
	MinStake        uint64
	CooldownSeconds uint64
}

// PoolSettings changes an existing pool. Nil fields are left as they are.
type PoolSettings struct {
	MinStake        *uint64
	CooldownSeconds *uint64
	Paused          *bool
}

// InitializeMaster creates the deployment singleton. It can succeed once.
func (e *Engine) InitializeMaster(ctx context.Context, authority, earnWallet common.Address) (model.Master, error) {
	var master model.Master
	err := e.run(ctx, "initialize_master", func(ctx context.Context, st *opState) error {
		_, exists, err := st.tx.Master()
		if err != nil {
			return err
		}
		if exists {
			return model.ErrMasterAlreadyInitialized
		}
		master, err = registry.NewMaster(authority, earnWallet, st.now)
		if err != nil {
			return err
		}
		if err := st.tx.PutMaster(master); err != nil {
			return err
		}
		st.emit(newEvent(model.EventConfigUpdated, common.Address{}, authority, 0, st.now))
		return nil
	})
	if err != nil {
		return model.Master{}, err
	}
	e.logger.Info("master initialized",
		zap.String("authority", master.Authority.Hex()),
		zap.String("earn_wallet", master.EarnWallet.Hex()),
	)
	return master, nil
}

// RegisterAsset creates the registry entry, treasury and staking pool of a
// mint. The signer becomes the creator unless the registration names one.
func (e *Engine) RegisterAsset(ctx context.Context, signer common.Address, reg registry.Registration) (model.Asset, error) {
	if reg.Creator == (common.Address{}) {
		reg.Creator = signer
	}

	var asset model.Asset
	err := e.run(ctx, "register_asset", func(ctx context.Context, st *opState) error {
		master, err := requireMaster(st.tx)
		if err != nil {
			return err
		}
		if _, exists, err := st.tx.Asset(reg.Mint); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: %s", model.ErrTokenAlreadyRegistered, reg.Mint.Hex())
		}

		asset, err = registry.NewAsset(reg, st.now)
		if err != nil {
			return err
		}
		if err := registry.RecordRegistration(&master); err != nil {
			return err
		}

		if err := st.tx.PutAsset(asset); err != nil {
			return err
		}
		if err := st.tx.PutTreasury(model.Treasury{
			Mint:             asset.Mint,
			BuybackThreshold: treasury.DefaultBuybackThreshold,
		}); err != nil {
			return err
		}

		_, poolExists, err := st.tx.Pool(asset.Mint)
		if err != nil {
			return err
		}
		if !poolExists {
			if err := createPool(st, &master, PoolParams{Mint: asset.Mint, AgentWallet: asset.Creator}); err != nil {
				return err
			}
		}
		if err := st.tx.PutMaster(master); err != nil {
			return err
		}

		event := newEvent(model.EventTokenRegistered, asset.Mint, asset.Creator, 0, st.now)
		event.Details = map[string]uint64{
			"fee_bps":         uint64(asset.Fees.FeeBps),
			"earn_cut_bps":    uint64(asset.Fees.EarnCutBps),
			"creator_cut_bps": uint64(asset.Fees.CreatorCutBps),
			"buyback_cut_bps": uint64(asset.Fees.BuybackCutBps),
			"staking_cut_bps": uint64(asset.Fees.StakingCutBps),
		}
		st.emit(event)
		return nil
	})
	if err != nil {
		return model.Asset{}, err
	}

	e.logger.Info("asset registered",
		zap.String("mint", asset.Mint.Hex()),
		zap.String("creator", asset.Creator.Hex()),
		zap.Uint16("fee_bps", asset.Fees.FeeBps),
	)
	return asset, nil
}

// CreatePool creates a staking pool for a mint that has none.
func (e *Engine) CreatePool(ctx context.Context, signer common.Address, params PoolParams) (model.Pool, error) {
	var pool model.Pool
	err := e.run(ctx, "create_pool", func(ctx context.Context, st *opState) error {
		master, err := requireMaster(st.tx)
		if err != nil {
			return err
		}
		if err := registry.Authorize(master, signer); err != nil {
			return err
		}
		if params.Mint == (common.Address{}) {
			return model.ErrInvalidTokenMint
		}
		if _, exists, err := st.tx.Pool(params.Mint); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("%w: %s", model.ErrPoolAlreadyExists, params.Mint.Hex())
		}

		if err := createPool(st, &master, params); err != nil {
			return err
		}
		if err := st.tx.PutMaster(master); err != nil {
			return err
		}
		pool, _, err = st.tx.Pool(params.Mint)
		return err
	})
	if err != nil {
		return model.Pool{}, err
	}
	return pool, nil
}

func createPool(st *opState, master *model.Master, params PoolParams) error {
	pool := model.Pool{
		Mint:            params.Mint,
		AgentWallet:     params.AgentWallet,
		MinStake:        params.MinStake,
		CooldownSeconds: params.CooldownSeconds,
		LastUpdate:      st.now,
		CreatedAt:       st.now,
	}
	if err := registry.RecordPool(master); err != nil {
		return err
	}
	if err := st.tx.PutPool(pool); err != nil {
		return err
	}

	event := newEvent(model.EventPoolCreated, pool.Mint, pool.AgentWallet, 0, st.now)
	event.Details = map[string]uint64{
		"min_stake":        pool.MinStake,
		"cooldown_seconds": pool.CooldownSeconds,
	}
	st.emit(event)
	return nil
}

// ConfigurePool changes pool parameters. Only the authority may call it.
func (e *Engine) ConfigurePool(ctx context.Context, signer, mint common.Address, settings PoolSettings) (model.Pool, error) {
	var pool model.Pool
	err := e.run(ctx, "configure_pool", func(ctx context.Context, st *opState) error {
		if err := authorize(st.tx, signer); err != nil {
			return err
		}
		var err error
		pool, err = requirePool(st.tx, mint)
		if err != nil {
			return err
		}

		details := map[string]uint64{}
		if settings.MinStake != nil {
			pool.MinStake = *settings.MinStake
			details["min_stake"] = pool.MinStake
		}
		if settings.CooldownSeconds != nil {
			pool.CooldownSeconds = *settings.CooldownSeconds
			details["cooldown_seconds"] = pool.CooldownSeconds
		}
		if settings.Paused != nil {
			pool.Paused = *settings.Paused
			details["paused"] = boolFlag(pool.Paused)
		}
		if err := st.tx.PutPool(pool); err != nil {
			return err
		}

		event := newEvent(model.EventConfigUpdated, mint, signer, 0, st.now)
		event.Note = "pool"
		event.Details = details
		st.emit(event)
		return nil
	})
	if err != nil {
		return model.Pool{}, err
	}
	return pool, nil
}

// SetAssetActive toggles fee collection for an asset. Only the authority
// may call it.
func (e *Engine) SetAssetActive(ctx context.Context, signer, mint common.Address, active bool) error {
	return e.run(ctx, "set_asset_active", func(ctx context.Context, st *opState) error {
		if err := authorize(st.tx, signer); err != nil {
			return err
		}
		asset, err := requireAsset(st.tx, mint)
		if err != nil {
			return err
		}
		asset.Active = active
		if err := st.tx.PutAsset(asset); err != nil {
			return err
		}

		event := newEvent(model.EventConfigUpdated, mint, signer, 0, st.now)
		event.Note = "asset"
		event.Details = map[string]uint64{"active": boolFlag(active)}
		st.emit(event)
		return nil
	})
}

// SetBuybackThreshold changes the treasury balance required before a
// buyback. Only the authority may call it.
func (e *Engine) SetBuybackThreshold(ctx context.Context, signer, mint common.Address, threshold uint64) error {
	return e.run(ctx, "set_buyback_threshold", func(ctx context.Context, st *opState) error {
		if err := authorize(st.tx, signer); err != nil {
			return err
		}
		t, err := requireTreasury(st.tx, mint)
		if err != nil {
			return err
		}
		t.BuybackThreshold = threshold
		if err := st.tx.PutTreasury(t); err != nil {
			return err
		}

		event := newEvent(model.EventConfigUpdated, mint, signer, threshold, st.now)
		event.Note = "buyback_threshold"
		st.emit(event)
		return nil
	})
}

func authorize(tx storage.Tx, signer common.Address) error {
	master, err := requireMaster(tx)
	if err != nil {
		return err
	}
	return registry.Authorize(master, signer)
}

func boolFlag(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
