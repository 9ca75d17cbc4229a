package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"earnLedger/internal/metrics"
	"earnLedger/internal/model"
	"earnLedger/internal/registry"
	"earnLedger/internal/rewards"
	"earnLedger/internal/staking"
	"earnLedger/internal/storage"
)

// Stake moves amount of the pool's token from owner into pool custody.
func (e *Engine) Stake(ctx context.Context, mint, owner common.Address, amount uint64) error {
	return e.run(ctx, "stake", func(ctx context.Context, st *opState) error {
		master, pool, acct, err := e.loadPosition(st, mint, owner)
		if err != nil {
			return err
		}
		if err := e.requireActive(st.tx, mint); err != nil {
			return err
		}

		return e.guard(st, &acct, func() error {
			if err := staking.Stake(&pool, &acct, amount, st.now); err != nil {
				return err
			}
			if err := registry.AdjustStaked(&master, amount, true); err != nil {
				return err
			}
			if err := st.tx.PutPool(pool); err != nil {
				return err
			}
			if err := st.tx.PutMaster(master); err != nil {
				return err
			}

			if err := e.cfg.Bank.Transfer(ctx, mint, owner, storage.StakeVault(mint), amount); err != nil {
				return err
			}

			st.emit(newEvent(model.EventStaked, mint, owner, amount, st.now))
			e.trackStaked(st, pool)
			return nil
		})
	})
}

// Unstake returns amount of principal to owner together with the owner's
// accrued rewards, capped at what the pool can cover.
func (e *Engine) Unstake(ctx context.Context, mint, owner common.Address, amount uint64) (staking.Payout, error) {
	var payout staking.Payout
	err := e.run(ctx, "unstake", func(ctx context.Context, st *opState) error {
		master, pool, acct, err := e.loadPosition(st, mint, owner)
		if err != nil {
			return err
		}

		return e.guard(st, &acct, func() error {
			payout, err = staking.Unstake(&pool, &acct, amount, st.now)
			if err != nil {
				return err
			}
			if err := registry.AdjustStaked(&master, amount, false); err != nil {
				return err
			}
			if err := e.settlePayout(ctx, st, &master, pool, owner, payout); err != nil {
				return err
			}
			if err := st.tx.PutPool(pool); err != nil {
				return err
			}
			if err := st.tx.PutMaster(master); err != nil {
				return err
			}

			if err := e.cfg.Bank.Transfer(ctx, mint, storage.StakeVault(mint), owner, payout.Principal); err != nil {
				return err
			}
			if err := e.cfg.Bank.Transfer(ctx, model.NativeAsset, storage.RewardsVault(mint), owner, payout.Reward); err != nil {
				return err
			}

			event := newEvent(model.EventUnstaked, mint, owner, amount, st.now)
			event.Details = map[string]uint64{"reward": payout.Reward}
			st.emit(event)
			e.trackStaked(st, pool)
			return nil
		})
	})
	if err != nil {
		return staking.Payout{}, err
	}
	return payout, nil
}

// ClaimRewards pays owner's accrued rewards, capped at what the pool can
// cover.
func (e *Engine) ClaimRewards(ctx context.Context, mint, owner common.Address) (staking.Payout, error) {
	var payout staking.Payout
	err := e.run(ctx, "claim_rewards", func(ctx context.Context, st *opState) error {
		master, pool, acct, err := e.loadPosition(st, mint, owner)
		if err != nil {
			return err
		}

		return e.guard(st, &acct, func() error {
			payout, err = staking.Claim(&pool, &acct, st.now)
			if err != nil {
				return err
			}
			if err := e.settlePayout(ctx, st, &master, pool, owner, payout); err != nil {
				return err
			}
			if err := st.tx.PutPool(pool); err != nil {
				return err
			}
			if err := st.tx.PutMaster(master); err != nil {
				return err
			}

			if err := e.cfg.Bank.Transfer(ctx, model.NativeAsset, storage.RewardsVault(mint), owner, payout.Reward); err != nil {
				return err
			}

			st.emit(newEvent(model.EventRewardsClaimed, mint, owner, payout.Reward, st.now))
			return nil
		})
	})
	if err != nil {
		return staking.Payout{}, err
	}
	return payout, nil
}

// RequestUnstake starts the cooldown for amount. It reports false when the
// pool has no cooldown, in which case nothing is recorded.
func (e *Engine) RequestUnstake(ctx context.Context, mint, owner common.Address, amount uint64) (bool, error) {
	var recorded bool
	err := e.run(ctx, "request_unstake", func(ctx context.Context, st *opState) error {
		_, pool, acct, err := e.loadPosition(st, mint, owner)
		if err != nil {
			return err
		}
		if acct.Locked {
			return e.rejectReentry(st, acct)
		}

		recorded, err = staking.RequestUnstake(pool, &acct, amount, st.now)
		if err != nil || !recorded {
			return err
		}
		if err := st.tx.PutStakeAccount(acct); err != nil {
			return err
		}

		event := newEvent(model.EventUnstakeRequested, mint, owner, amount, st.now)
		event.Details = map[string]uint64{"unlock_at": uint64(staking.UnlockAt(pool, acct))}
		st.emit(event)
		return nil
	})
	return recorded, err
}

// CancelUnstake drops owner's pending unstake request.
func (e *Engine) CancelUnstake(ctx context.Context, mint, owner common.Address) error {
	return e.run(ctx, "cancel_unstake", func(ctx context.Context, st *opState) error {
		_, _, acct, err := e.loadPosition(st, mint, owner)
		if err != nil {
			return err
		}
		if acct.Locked {
			return e.rejectReentry(st, acct)
		}

		amount := acct.UnstakeAmount
		if err := staking.CancelUnstake(&acct); err != nil {
			return err
		}
		if err := st.tx.PutStakeAccount(acct); err != nil {
			return err
		}
		st.emit(newEvent(model.EventUnstakeCancelled, mint, owner, amount, st.now))
		return nil
	})
}

// DepositRewards moves amount of native funds from depositor into the
// pool's rewards and folds it into the reward-per-share accumulator.
func (e *Engine) DepositRewards(ctx context.Context, mint, depositor common.Address, amount uint64) error {
	return e.run(ctx, "deposit_rewards", func(ctx context.Context, st *opState) error {
		if amount == 0 {
			return model.ErrInvalidAmount
		}
		if _, err := requireMaster(st.tx); err != nil {
			return err
		}
		pool, err := requirePool(st.tx, mint)
		if err != nil {
			return err
		}

		moved := rewards.Deposit(&pool, amount)
		pool.LastUpdate = st.now
		if err := st.tx.PutPool(pool); err != nil {
			return err
		}
		if err := e.cfg.Bank.Transfer(ctx, model.NativeAsset, depositor, storage.RewardsVault(mint), amount); err != nil {
			return err
		}

		event := newEvent(model.EventRewardsDeposited, mint, depositor, amount, st.now)
		if !moved {
			event.Note = "no stake; reward per share unchanged"
		}
		st.emit(event)
		return nil
	})
}

// UpdateRewards refreshes the pool's last update time. Anyone may call it.
func (e *Engine) UpdateRewards(ctx context.Context, mint common.Address) (model.Pool, error) {
	var pool model.Pool
	err := e.run(ctx, "update_rewards", func(ctx context.Context, st *opState) error {
		var err error
		pool, err = requirePool(st.tx, mint)
		if err != nil {
			return err
		}
		pool.LastUpdate = st.now
		if err := st.tx.PutPool(pool); err != nil {
			return err
		}
		st.emit(newEvent(model.EventRewardsUpdated, mint, common.Address{}, 0, st.now))
		return nil
	})
	if err != nil {
		return model.Pool{}, err
	}
	return pool, nil
}

// loadPosition loads what a staking operation touches. A missing stake
// account is returned empty and is created when the operation commits.
func (e *Engine) loadPosition(st *opState, mint, owner common.Address) (model.Master, model.Pool, model.StakeAccount, error) {
	master, err := requireMaster(st.tx)
	if err != nil {
		return model.Master{}, model.Pool{}, model.StakeAccount{}, err
	}
	pool, err := requirePool(st.tx, mint)
	if err != nil {
		return model.Master{}, model.Pool{}, model.StakeAccount{}, err
	}
	acct, ok, err := st.tx.StakeAccount(mint, owner)
	if err != nil {
		return model.Master{}, model.Pool{}, model.StakeAccount{}, err
	}
	if !ok {
		acct = model.StakeAccount{Mint: mint, Owner: owner}
	}
	if acct.Owner != owner {
		return model.Master{}, model.Pool{}, model.StakeAccount{}, fmt.Errorf("%w: account owner mismatch", model.ErrUnauthorized)
	}
	return master, pool, acct, nil
}

func (e *Engine) requireActive(tx storage.Tx, mint common.Address) error {
	asset, ok, err := tx.Asset(mint)
	if err != nil {
		return err
	}
	if ok && !asset.Active {
		return model.ErrTokenNotActive
	}
	return nil
}

// guard holds acct's lock around fn and reports rejected reentry.
func (e *Engine) guard(st *opState, acct *model.StakeAccount, fn func() error) error {
	err := staking.Guard(acct, st.tx.PutStakeAccount, fn)
	if errors.Is(err, model.ErrReentrancy) && acct.Locked {
		return e.rejectReentry(st, *acct)
	}
	return err
}

func (e *Engine) rejectReentry(st *opState, acct model.StakeAccount) error {
	metrics.ReentrancyRejected.Inc()
	e.logger.Warn("reentrant call rejected",
		zap.String("mint", acct.Mint.Hex()),
		zap.String("owner", acct.Owner.Hex()),
	)
	alert := newEvent(model.EventSecurityAlert, acct.Mint, acct.Owner, 0, st.now)
	alert.Note = "reentrant call rejected"
	st.alerts = append(st.alerts, alert)
	return model.ErrReentrancy
}

// settlePayout checks the rewards vault can cover the payout and records
// the paid and forfeited amounts.
func (e *Engine) settlePayout(ctx context.Context, st *opState, master *model.Master, pool model.Pool, owner common.Address, payout staking.Payout) error {
	if payout.Reward > 0 {
		held, err := e.cfg.Bank.BalanceOf(ctx, model.NativeAsset, storage.RewardsVault(pool.Mint))
		if err != nil {
			return err
		}
		if held < payout.Reward {
			return fmt.Errorf("%w: vault holds %d, payout %d", model.ErrInsufficientRewards, held, payout.Reward)
		}
		if err := registry.RecordRewardsPaid(master, payout.Reward); err != nil {
			return err
		}
	}

	if payout.Shortfall() {
		event := newEvent(model.EventRewardShortfall, pool.Mint, owner, payout.Forfeited, st.now)
		event.Details = map[string]uint64{
			"pending": payout.Pending,
			"paid":    payout.Reward,
		}
		st.emit(event)
	}

	st.onCommit(func() {
		metrics.RewardsPaid.Add(float64(payout.Reward))
		if payout.Shortfall() {
			metrics.RewardsForfeited.Add(float64(payout.Forfeited))
			e.logger.Warn("reward payout capped at available balance",
				zap.String("mint", pool.Mint.Hex()),
				zap.String("owner", owner.Hex()),
				zap.Uint64("pending", payout.Pending),
				zap.Uint64("paid", payout.Reward),
				zap.Uint64("forfeited", payout.Forfeited),
			)
		}
	})
	return nil
}

func (e *Engine) trackStaked(st *opState, pool model.Pool) {
	st.onCommit(func() {
		metrics.TotalStaked.WithLabelValues(pool.Mint.Hex()).Set(float64(pool.TotalStaked))
	})
}
