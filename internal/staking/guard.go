package staking

import "earnLedger/internal/model"

// Guard runs fn while holding acct's reentrancy lock. The lock is persisted
// through save before fn runs, so a nested call that reloads the account
// sees it held and fails with model.ErrReentrancy. The lock is cleared and
// saved again on every return path.
func Guard(acct *model.StakeAccount, save func(model.StakeAccount) error, fn func() error) (err error) {
	if acct.Locked {
		return model.ErrReentrancy
	}

	acct.Locked = true
	if err := save(*acct); err != nil {
		acct.Locked = false
		return err
	}

	defer func() {
		acct.Locked = false
		if saveErr := save(*acct); err == nil {
			err = saveErr
		}
	}()

	return fn()
}
