package staking

import (
	"fmt"
	"math"

	"earnLedger/internal/model"
)

// RequestUnstake starts the cooldown for amount. With no cooldown configured
// it does nothing and reports false.
func RequestUnstake(pool model.Pool, acct *model.StakeAccount, amount uint64, now int64) (bool, error) {
	if acct.UnstakePending {
		return false, model.ErrAlreadyRequestedUnstake
	}
	if pool.CooldownSeconds == 0 {
		return false, nil
	}
	if amount == 0 {
		return false, model.ErrInvalidAmount
	}
	if acct.StakedAmount < amount {
		return false, fmt.Errorf("%w: staked %d, requested %d", model.ErrInsufficientStake, acct.StakedAmount, amount)
	}

	acct.UnstakePending = true
	acct.UnstakeRequestedAt = now
	acct.UnstakeAmount = amount
	return true, nil
}

// CancelUnstake drops the pending request.
func CancelUnstake(acct *model.StakeAccount) error {
	if !acct.UnstakePending {
		return model.ErrNoUnstakeRequest
	}
	acct.ClearUnstakeRequest()
	return nil
}

// IsElapsed reports whether acct may unstake at now.
func IsElapsed(pool model.Pool, acct model.StakeAccount, now int64) bool {
	if pool.CooldownSeconds == 0 {
		return true
	}
	if !acct.UnstakePending || now < acct.UnstakeRequestedAt {
		return false
	}
	return uint64(now-acct.UnstakeRequestedAt) >= pool.CooldownSeconds
}

// UnlockAt is the earliest time a pending request can be executed. It
// saturates at math.MaxInt64 for cooldowns that would run past it.
func UnlockAt(pool model.Pool, acct model.StakeAccount) int64 {
	if !acct.UnstakePending {
		return 0
	}
	if acct.UnstakeRequestedAt < 0 || pool.CooldownSeconds > uint64(math.MaxInt64-acct.UnstakeRequestedAt) {
		return math.MaxInt64
	}
	return acct.UnstakeRequestedAt + int64(pool.CooldownSeconds)
}

// CheckUnstake gates an unstake of amount on the cooldown state. When the
// pool has a cooldown, an elapsed request for exactly amount is required.
func CheckUnstake(pool model.Pool, acct model.StakeAccount, amount uint64, now int64) error {
	if pool.CooldownSeconds == 0 {
		return nil
	}
	if !acct.UnstakePending {
		return fmt.Errorf("%w: %w", model.ErrCooldownNotPassed, model.ErrNoUnstakeRequest)
	}
	if !IsElapsed(pool, acct, now) {
		return fmt.Errorf("%w: unlocks at %d", model.ErrCooldownNotPassed, UnlockAt(pool, acct))
	}
	if amount != acct.UnstakeAmount {
		return fmt.Errorf("%w: requested %d, unstaking %d", model.ErrInvalidAmount, acct.UnstakeAmount, amount)
	}
	return nil
}
