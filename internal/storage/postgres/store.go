package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"earnLedger/internal/model"
)

// Store writes ledger snapshots to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const upsertMasterSQL = `
	INSERT INTO master_aggregate (
		id, authority, earn_wallet, total_tokens_registered, total_fees_processed, total_sol_collected,
		total_pools, total_staked_value, total_rewards_distributed, created_at, exported_at
	) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	ON CONFLICT (id)
	DO UPDATE SET
		authority = EXCLUDED.authority,
		earn_wallet = EXCLUDED.earn_wallet,
		total_tokens_registered = EXCLUDED.total_tokens_registered,
		total_fees_processed = EXCLUDED.total_fees_processed,
		total_sol_collected = EXCLUDED.total_sol_collected,
		total_pools = EXCLUDED.total_pools,
		total_staked_value = EXCLUDED.total_staked_value,
		total_rewards_distributed = EXCLUDED.total_rewards_distributed,
		exported_at = now()
`

const upsertAssetSQL = `
	INSERT INTO assets (
		mint, creator, fee_bps, earn_cut_bps, creator_cut_bps, buyback_cut_bps, staking_cut_bps,
		active, total_fees_collected, total_earn_fees, total_creator_fees, created_at, exported_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
	ON CONFLICT (mint)
	DO UPDATE SET
		active = EXCLUDED.active,
		total_fees_collected = EXCLUDED.total_fees_collected,
		total_earn_fees = EXCLUDED.total_earn_fees,
		total_creator_fees = EXCLUDED.total_creator_fees,
		exported_at = now()
`

const upsertTreasurySQL = `
	INSERT INTO treasuries (
		mint, balance, buyback_threshold, total_buybacks, total_burned, last_buyback, exported_at
	) VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (mint)
	DO UPDATE SET
		balance = EXCLUDED.balance,
		buyback_threshold = EXCLUDED.buyback_threshold,
		total_buybacks = EXCLUDED.total_buybacks,
		total_burned = EXCLUDED.total_burned,
		last_buyback = EXCLUDED.last_buyback,
		exported_at = now()
`

const upsertPoolSQL = `
	INSERT INTO staking_pools (
		mint, agent_wallet, total_staked, reward_per_share, rewards_available, total_rewards_distributed,
		total_rewards_paid, staker_count, min_stake, cooldown_seconds, paused, last_update, created_at, exported_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
	ON CONFLICT (mint)
	DO UPDATE SET
		agent_wallet = EXCLUDED.agent_wallet,
		total_staked = EXCLUDED.total_staked,
		reward_per_share = EXCLUDED.reward_per_share,
		rewards_available = EXCLUDED.rewards_available,
		total_rewards_distributed = EXCLUDED.total_rewards_distributed,
		total_rewards_paid = EXCLUDED.total_rewards_paid,
		staker_count = EXCLUDED.staker_count,
		min_stake = EXCLUDED.min_stake,
		cooldown_seconds = EXCLUDED.cooldown_seconds,
		paused = EXCLUDED.paused,
		last_update = EXCLUDED.last_update,
		exported_at = now()
`

const upsertStakeAccountSQL = `
	INSERT INTO stake_accounts (
		mint, owner, staked_amount, reward_per_share_paid, accrued_rewards, staked_at, last_claim_at,
		unstake_pending, unstake_requested_at, unstake_amount, exported_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	ON CONFLICT (mint, owner)
	DO UPDATE SET
		staked_amount = EXCLUDED.staked_amount,
		reward_per_share_paid = EXCLUDED.reward_per_share_paid,
		accrued_rewards = EXCLUDED.accrued_rewards,
		staked_at = EXCLUDED.staked_at,
		last_claim_at = EXCLUDED.last_claim_at,
		unstake_pending = EXCLUDED.unstake_pending,
		unstake_requested_at = EXCLUDED.unstake_requested_at,
		unstake_amount = EXCLUDED.unstake_amount,
		exported_at = now()
`

// UpsertMaster inserts or updates the master aggregate row.
func (s *Store) UpsertMaster(ctx context.Context, m model.Master) error {
	_, err := s.pool.Exec(ctx, upsertMasterSQL, masterArgs(m)...)
	return err
}

// UpsertAssets inserts or updates asset registry rows.
func (s *Store) UpsertAssets(ctx context.Context, assets []model.Asset) error {
	return upsert(ctx, s, upsertAssetSQL, assets, assetArgs)
}

// UpsertTreasuries inserts or updates treasury rows.
func (s *Store) UpsertTreasuries(ctx context.Context, treasuries []model.Treasury) error {
	return upsert(ctx, s, upsertTreasurySQL, treasuries, treasuryArgs)
}

// UpsertPools inserts or updates staking pool rows.
func (s *Store) UpsertPools(ctx context.Context, pools []model.Pool) error {
	return upsert(ctx, s, upsertPoolSQL, pools, poolArgs)
}

// UpsertStakeAccounts inserts or updates stake account rows.
func (s *Store) UpsertStakeAccounts(ctx context.Context, accounts []model.StakeAccount) error {
	return upsert(ctx, s, upsertStakeAccountSQL, accounts, stakeAccountArgs)
}

func upsert[T any](ctx context.Context, s *Store, query string, rows []T, args func(T) []any) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, args(row)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns the last export time recorded under name.
func (s *Store) LoadState(ctx context.Context, name string) (int64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_exported_ts FROM export_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts the last export time for name.
func (s *Store) SaveState(ctx context.Context, name string, ts int64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO export_state (name, last_exported_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_exported_ts = EXCLUDED.last_exported_ts, updated_at = now()
	`, name, ts)
	return err
}

func masterArgs(m model.Master) []any {
	return []any{
		m.Authority.Hex(),
		m.EarnWallet.Hex(),
		numeric(m.TotalTokensRegistered),
		numeric(m.TotalFeesProcessed),
		numeric(m.TotalSolCollected),
		numeric(m.TotalPools),
		numeric(m.TotalStakedValue),
		numeric(m.TotalRewardsDistributed),
		m.CreatedAt,
	}
}

func assetArgs(a model.Asset) []any {
	return []any{
		a.Mint.Hex(),
		a.Creator.Hex(),
		int32(a.Fees.FeeBps),
		int32(a.Fees.EarnCutBps),
		int32(a.Fees.CreatorCutBps),
		int32(a.Fees.BuybackCutBps),
		int32(a.Fees.StakingCutBps),
		a.Active,
		numeric(a.TotalFeesCollected),
		numeric(a.TotalEarnFees),
		numeric(a.TotalCreatorFees),
		a.CreatedAt,
	}
}

func treasuryArgs(t model.Treasury) []any {
	return []any{
		t.Mint.Hex(),
		numeric(t.Balance),
		numeric(t.BuybackThreshold),
		numeric(t.TotalBuybacks),
		numeric(t.TotalBurned),
		t.LastBuyback,
	}
}

func poolArgs(p model.Pool) []any {
	return []any{
		p.Mint.Hex(),
		p.AgentWallet.Hex(),
		numeric(p.TotalStaked),
		scaled(&p.RewardPerShare),
		numeric(p.RewardsAvailable),
		numeric(p.TotalRewardsDistributed),
		numeric(p.TotalRewardsPaid),
		numeric(p.StakerCount),
		numeric(p.MinStake),
		numeric(p.CooldownSeconds),
		p.Paused,
		p.LastUpdate,
		p.CreatedAt,
	}
}

func stakeAccountArgs(a model.StakeAccount) []any {
	return []any{
		a.Mint.Hex(),
		a.Owner.Hex(),
		numeric(a.StakedAmount),
		scaled(&a.RewardPerSharePaid),
		numeric(a.AccruedRewards),
		a.StakedAt,
		a.LastClaimAt,
		a.UnstakePending,
		a.UnstakeRequestedAt,
		numeric(a.UnstakeAmount),
	}
}

// numeric carries u64 amounts, which overflow BIGINT.
func numeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

func scaled(v *uint256.Int) pgtype.Numeric {
	return pgtype.Numeric{Int: v.ToBig(), Valid: true}
}
