package staking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnLedger/internal/model"
)

func TestRequestUnstakeWithoutCooldownIsNoop(t *testing.T) {
	pool := model.Pool{}
	acct := model.StakeAccount{StakedAmount: 10}

	recorded, err := RequestUnstake(pool, &acct, 5, 100)
	require.NoError(t, err)
	assert.False(t, recorded)
	assert.False(t, acct.UnstakePending)
	assert.True(t, IsElapsed(pool, acct, 100))
}

func TestCooldownLifecycle(t *testing.T) {
	pool := model.Pool{CooldownSeconds: 3600}
	acct := model.StakeAccount{StakedAmount: 500}

	require.ErrorIs(t, CheckUnstake(pool, acct, 500, 0), model.ErrNoUnstakeRequest)

	recorded, err := RequestUnstake(pool, &acct, 500, 0)
	require.NoError(t, err)
	assert.True(t, recorded)

	_, err = RequestUnstake(pool, &acct, 500, 1)
	require.ErrorIs(t, err, model.ErrAlreadyRequestedUnstake)

	require.ErrorIs(t, CheckUnstake(pool, acct, 500, 3599), model.ErrCooldownNotPassed)
	require.NoError(t, CheckUnstake(pool, acct, 500, 3600))
	require.ErrorIs(t, CheckUnstake(pool, acct, 499, 3600), model.ErrInvalidAmount)
	assert.Equal(t, int64(3600), UnlockAt(pool, acct))

	require.NoError(t, CancelUnstake(&acct))
	assert.False(t, IsElapsed(pool, acct, 10_000))
	require.ErrorIs(t, CancelUnstake(&acct), model.ErrNoUnstakeRequest)
}

func TestUnlockAtSaturates(t *testing.T) {
	acct := model.StakeAccount{StakedAmount: 10, UnstakePending: true, UnstakeRequestedAt: 1_700_000_000}

	huge := model.Pool{CooldownSeconds: math.MaxUint64}
	assert.Equal(t, int64(math.MaxInt64), UnlockAt(huge, acct))
	assert.False(t, IsElapsed(huge, acct, math.MaxInt64))

	edge := model.Pool{CooldownSeconds: uint64(math.MaxInt64 - acct.UnstakeRequestedAt)}
	assert.Equal(t, int64(math.MaxInt64), UnlockAt(edge, acct))

	short := model.Pool{CooldownSeconds: 60}
	assert.Equal(t, int64(1_700_000_060), UnlockAt(short, acct))
}

func TestRequestUnstakeValidation(t *testing.T) {
	pool := model.Pool{CooldownSeconds: 60}
	acct := model.StakeAccount{StakedAmount: 10}

	_, err := RequestUnstake(pool, &acct, 11, 1)
	require.ErrorIs(t, err, model.ErrInsufficientStake)
	_, err = RequestUnstake(pool, &acct, 0, 1)
	require.ErrorIs(t, err, model.ErrInvalidAmount)
	assert.False(t, acct.UnstakePending)
}

func TestUnstakeConsumesRequest(t *testing.T) {
	pool := model.Pool{CooldownSeconds: 60, TotalStaked: 10, StakerCount: 1}
	acct := model.StakeAccount{StakedAmount: 10}

	_, err := RequestUnstake(pool, &acct, 10, 100)
	require.NoError(t, err)
	_, err = Unstake(&pool, &acct, 10, 159)
	require.ErrorIs(t, err, model.ErrCooldownNotPassed)

	_, err = Unstake(&pool, &acct, 10, 160)
	require.NoError(t, err)
	assert.False(t, acct.UnstakePending)
	assert.Zero(t, acct.UnstakeAmount)
	assert.Zero(t, acct.UnstakeRequestedAt)
}
