package staking

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"

	"earnLedger/internal/model"
	"earnLedger/internal/rewards"
)

// Payout is what an unstake or claim owes the staker.
// Forfeited is the part of Pending the pool could not cover; it is dropped, not carried.
type Payout struct {
	Principal uint64 `json:"principal"`
	Reward    uint64 `json:"reward"`
	Pending   uint64 `json:"pending"`
	Forfeited uint64 `json:"forfeited"`
}

// Shortfall reports whether the reward payout was capped.
func (p Payout) Shortfall() bool { return p.Forfeited > 0 }

// Stake settles acct and adds amount to its position.
func Stake(pool *model.Pool, acct *model.StakeAccount, amount uint64, now int64) error {
	if amount == 0 {
		return model.ErrInvalidAmount
	}
	if pool.Paused {
		return model.ErrPoolPaused
	}
	if pool.MinStake > 0 && amount < pool.MinStake {
		return fmt.Errorf("%w: %d < %d", model.ErrStakeBelowMinimum, amount, pool.MinStake)
	}

	if _, err := rewards.Settle(acct, *pool); err != nil {
		return err
	}

	staked, overflow := math.SafeAdd(acct.StakedAmount, amount)
	if overflow {
		return fmt.Errorf("%w: stake amount", model.ErrOverflow)
	}
	total, overflow := math.SafeAdd(pool.TotalStaked, amount)
	if overflow {
		return fmt.Errorf("%w: pool total staked", model.ErrOverflow)
	}

	if acct.StakedAmount == 0 {
		acct.StakedAt = now
		pool.StakerCount++
	}
	acct.StakedAmount = staked
	pool.TotalStaked = total
	pool.LastUpdate = now
	return nil
}

// Unstake settles acct, removes amount from its position and pays out the
// principal plus all accrued rewards, capped at the pool's available rewards.
func Unstake(pool *model.Pool, acct *model.StakeAccount, amount uint64, now int64) (Payout, error) {
	if amount == 0 {
		return Payout{}, model.ErrInvalidAmount
	}
	if acct.StakedAmount < amount {
		return Payout{}, fmt.Errorf("%w: staked %d, requested %d", model.ErrInsufficientStake, acct.StakedAmount, amount)
	}
	if err := CheckUnstake(*pool, *acct, amount, now); err != nil {
		return Payout{}, err
	}

	if _, err := rewards.Settle(acct, *pool); err != nil {
		return Payout{}, err
	}

	if pool.TotalStaked < amount {
		return Payout{}, fmt.Errorf("%w: pool total staked below position", model.ErrOverflow)
	}
	acct.StakedAmount -= amount
	pool.TotalStaked -= amount
	if acct.StakedAmount == 0 && pool.StakerCount > 0 {
		pool.StakerCount--
	}
	acct.ClearUnstakeRequest()
	pool.LastUpdate = now

	payout := payRewards(pool, acct)
	payout.Principal = amount
	return payout, nil
}

// Claim settles acct and pays out its accrued rewards, capped at the pool's
// available rewards.
func Claim(pool *model.Pool, acct *model.StakeAccount, now int64) (Payout, error) {
	if _, err := rewards.Settle(acct, *pool); err != nil {
		return Payout{}, err
	}
	if acct.AccruedRewards == 0 {
		return Payout{}, model.ErrNoRewardsToClaim
	}
	if pool.RewardsAvailable == 0 {
		return Payout{}, fmt.Errorf("%w: reward pool is empty", model.ErrInsufficientBalance)
	}

	payout := payRewards(pool, acct)
	acct.LastClaimAt = now
	pool.LastUpdate = now
	return payout, nil
}

func payRewards(pool *model.Pool, acct *model.StakeAccount) Payout {
	pending := acct.AccruedRewards
	paid := pending
	if paid > pool.RewardsAvailable {
		paid = pool.RewardsAvailable
	}

	acct.AccruedRewards = 0
	pool.RewardsAvailable -= paid
	pool.TotalRewardsPaid += paid

	return Payout{
		Reward:    paid,
		Pending:   pending,
		Forfeited: pending - paid,
	}
}
