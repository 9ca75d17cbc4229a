package staking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnLedger/internal/model"
	"earnLedger/internal/rewards"
)

func TestStakeTracksStakerCount(t *testing.T) {
	pool := model.Pool{}
	alice := model.StakeAccount{}
	bob := model.StakeAccount{}

	require.NoError(t, Stake(&pool, &alice, 100, 10))
	require.NoError(t, Stake(&pool, &alice, 50, 20))
	require.NoError(t, Stake(&pool, &bob, 25, 30))

	assert.Equal(t, uint64(2), pool.StakerCount)
	assert.Equal(t, uint64(175), pool.TotalStaked)
	assert.Equal(t, int64(10), alice.StakedAt)

	_, err := Unstake(&pool, &alice, 150, 40)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pool.StakerCount)
	assert.Equal(t, pool.TotalStaked, alice.StakedAmount+bob.StakedAmount)
}

func TestStakeValidation(t *testing.T) {
	tests := []struct {
		name string
		pool model.Pool
		amt  uint64
		want error
	}{
		{name: "zero", amt: 0, want: model.ErrInvalidAmount},
		{name: "paused", pool: model.Pool{Paused: true}, amt: 10, want: model.ErrPoolPaused},
		{name: "below minimum", pool: model.Pool{MinStake: 100}, amt: 99, want: model.ErrStakeBelowMinimum},
		{name: "at minimum", pool: model.Pool{MinStake: 100}, amt: 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := model.StakeAccount{}
			err := Stake(&tt.pool, &acct, tt.amt, 1)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, acct.StakedAmount)
		})
	}
}

func TestUnstakeInsufficientStake(t *testing.T) {
	pool := model.Pool{}
	acct := model.StakeAccount{}
	require.NoError(t, Stake(&pool, &acct, 10, 1))

	_, err := Unstake(&pool, &acct, 11, 2)
	require.ErrorIs(t, err, model.ErrInsufficientStake)
	assert.Equal(t, uint64(10), acct.StakedAmount)
}

func TestUnstakePaysAccruedRewards(t *testing.T) {
	pool := model.Pool{}
	acct := model.StakeAccount{}
	require.NoError(t, Stake(&pool, &acct, 100, 1))
	rewards.Deposit(&pool, 700)

	payout, err := Unstake(&pool, &acct, 40, 2)
	require.NoError(t, err)
	assert.Equal(t, Payout{Principal: 40, Reward: 700, Pending: 700}, payout)
	assert.Zero(t, acct.AccruedRewards)
	assert.Zero(t, pool.RewardsAvailable)
	assert.Equal(t, uint64(700), pool.TotalRewardsPaid)
}

func TestUnstakeCapsRewardAtAvailable(t *testing.T) {
	pool := model.Pool{}
	acct := model.StakeAccount{}
	require.NoError(t, Stake(&pool, &acct, 100, 1))
	rewards.Deposit(&pool, 1_000)
	pool.RewardsAvailable = 250

	payout, err := Unstake(&pool, &acct, 100, 2)
	require.NoError(t, err)
	assert.Equal(t, Payout{Principal: 100, Reward: 250, Pending: 1_000, Forfeited: 750}, payout)
	assert.True(t, payout.Shortfall())
	assert.Zero(t, acct.AccruedRewards)
	assert.Zero(t, acct.StakedAmount)
	assert.Zero(t, pool.TotalStaked)
	assert.Zero(t, pool.RewardsAvailable)
	assert.Equal(t, uint64(250), pool.TotalRewardsPaid)
}

func TestClaimCapsAtAvailable(t *testing.T) {
	pool := model.Pool{TotalStaked: 100, RewardsAvailable: 400}
	acct := model.StakeAccount{StakedAmount: 100, AccruedRewards: 1_000}

	payout, err := Claim(&pool, &acct, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), payout.Reward)
	assert.Equal(t, uint64(600), payout.Forfeited)
	assert.True(t, payout.Shortfall())
	assert.Zero(t, acct.AccruedRewards)
	assert.Zero(t, pool.RewardsAvailable)
	assert.Equal(t, int64(5), acct.LastClaimAt)
}

func TestClaimErrors(t *testing.T) {
	pool := model.Pool{TotalStaked: 100, RewardsAvailable: 50}
	acct := model.StakeAccount{StakedAmount: 100}
	_, err := Claim(&pool, &acct, 1)
	require.ErrorIs(t, err, model.ErrNoRewardsToClaim)

	empty := model.Pool{TotalStaked: 100}
	owed := model.StakeAccount{StakedAmount: 100, AccruedRewards: 10}
	_, err = Claim(&empty, &owed, 1)
	require.ErrorIs(t, err, model.ErrInsufficientBalance)
	assert.Equal(t, uint64(10), owed.AccruedRewards)
}

func TestConservationAcrossSequence(t *testing.T) {
	pool := model.Pool{}
	accounts := make([]model.StakeAccount, 4)
	steps := []struct {
		who    int
		amount uint64
		stake  bool
	}{
		{0, 100, true}, {1, 30, true}, {2, 5, true}, {0, 60, false},
		{3, 80, true}, {1, 30, false}, {2, 5, false}, {0, 40, false}, {1, 7, true},
	}

	for i, step := range steps {
		if step.stake {
			require.NoError(t, Stake(&pool, &accounts[step.who], step.amount, int64(i)))
		} else {
			_, err := Unstake(&pool, &accounts[step.who], step.amount, int64(i))
			require.NoError(t, err)
		}

		var sum, stakers uint64
		for _, acct := range accounts {
			sum += acct.StakedAmount
			if acct.StakedAmount > 0 {
				stakers++
			}
		}
		require.Equal(t, pool.TotalStaked, sum, "step %d", i)
		require.Equal(t, pool.StakerCount, stakers, "step %d", i)
	}
}
