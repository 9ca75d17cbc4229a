package rewards

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"

	"earnLedger/internal/model"
)

// ScaleFactor is the fixed-point scale of a pool's reward-per-share value.
const ScaleFactor uint64 = 1_000_000_000_000_000_000

var scale = uint256.NewInt(ScaleFactor)

// Deposit credits amount to the pool's reward balance and folds it into the
// reward-per-share accumulator. With nothing staked the accumulator is left
// untouched, since there is no share to divide by.
// It reports whether the accumulator moved.
func Deposit(pool *model.Pool, amount uint64) bool {
	pool.RewardsAvailable = saturatingAdd(pool.RewardsAvailable, amount)
	pool.TotalRewardsDistributed = saturatingAdd(pool.TotalRewardsDistributed, amount)

	if pool.TotalStaked == 0 || amount == 0 {
		return false
	}

	increase := new(uint256.Int).Mul(uint256.NewInt(amount), scale)
	increase.Div(increase, uint256.NewInt(pool.TotalStaked))
	if increase.IsZero() {
		return false
	}

	if _, overflow := pool.RewardPerShare.AddOverflow(&pool.RewardPerShare, increase); overflow {
		pool.RewardPerShare.SetAllOne()
	}
	return true
}

// Earned is the reward accrued by acct since its last settlement.
func Earned(acct model.StakeAccount, pool model.Pool) (uint64, error) {
	if acct.StakedAmount == 0 || pool.RewardPerShare.Cmp(&acct.RewardPerSharePaid) <= 0 {
		return 0, nil
	}

	delta := new(uint256.Int).Sub(&pool.RewardPerShare, &acct.RewardPerSharePaid)
	earned, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(acct.StakedAmount), delta)
	if overflow {
		return 0, fmt.Errorf("%w: settle %d staked", model.ErrOverflow, acct.StakedAmount)
	}
	earned.Div(earned, scale)
	if !earned.IsUint64() {
		return 0, fmt.Errorf("%w: earned exceeds 64 bits", model.ErrOverflow)
	}
	return earned.Uint64(), nil
}

// Pending is the account's unclaimed total if it settled now.
func Pending(acct model.StakeAccount, pool model.Pool) (uint64, error) {
	earned, err := Earned(acct, pool)
	if err != nil {
		return 0, err
	}
	pending, overflow := math.SafeAdd(acct.AccruedRewards, earned)
	if overflow {
		return 0, fmt.Errorf("%w: pending rewards", model.ErrOverflow)
	}
	return pending, nil
}

// Settle moves newly earned rewards into acct.AccruedRewards and advances its
// snapshot to the pool's current value. It must run before any change to
// acct.StakedAmount and before reading AccruedRewards for a payout.
func Settle(acct *model.StakeAccount, pool model.Pool) (uint64, error) {
	earned, err := Earned(*acct, pool)
	if err != nil {
		return 0, err
	}
	accrued, overflow := math.SafeAdd(acct.AccruedRewards, earned)
	if overflow {
		return 0, fmt.Errorf("%w: accrued rewards", model.ErrOverflow)
	}
	acct.AccruedRewards = accrued
	acct.RewardPerSharePaid = pool.RewardPerShare
	return earned, nil
}

func saturatingAdd(a, b uint64) uint64 {
	sum, overflow := math.SafeAdd(a, b)
	if overflow {
		return ^uint64(0)
	}
	return sum
}
