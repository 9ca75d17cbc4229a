package postgres

import (
	"io/fs"
	"regexp"
	"strconv"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earnLedger/internal/model"
)

var placeholder = regexp.MustCompile(`\$(\d+)`)

// placeholders returns the highest positional parameter in query.
func placeholders(query string) int {
	highest := 0
	for _, m := range placeholder.FindAllStringSubmatch(query, -1) {
		n, _ := strconv.Atoi(m[1])
		if n > highest {
			highest = n
		}
	}
	return highest
}

func TestArgsMatchPlaceholders(t *testing.T) {
	cases := []struct {
		name  string
		query string
		args  []any
	}{
		{"master", upsertMasterSQL, masterArgs(model.Master{})},
		{"asset", upsertAssetSQL, assetArgs(model.Asset{})},
		{"treasury", upsertTreasurySQL, treasuryArgs(model.Treasury{})},
		{"pool", upsertPoolSQL, poolArgs(model.Pool{})},
		{"stake_account", upsertStakeAccountSQL, stakeAccountArgs(model.StakeAccount{})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, placeholders(tc.query), len(tc.args))
		})
	}
}

func TestNumericCarriesFullRange(t *testing.T) {
	n := numeric(^uint64(0))
	require.True(t, n.Valid)
	assert.Equal(t, "18446744073709551615", n.Int.String())
	assert.Zero(t, n.Exp)
}

func TestPoolArgs(t *testing.T) {
	pool := model.Pool{
		Mint:        common.HexToAddress("0x000000000000000000000000000000000000a001"),
		TotalStaked: 150,
		Paused:      true,
	}
	pool.RewardPerShare.SetUint64(1_500_000_000_000_000_000)

	args := poolArgs(pool)
	assert.Equal(t, pool.Mint.Hex(), args[0])
	rps, ok := args[3].(pgtype.Numeric)
	require.True(t, ok)
	assert.Equal(t, "1500000000000000000", rps.Int.String())
	assert.Equal(t, true, args[10])
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/00001_init.sql")
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, "-- +goose Up")
	assert.Contains(t, body, "-- +goose Down")
	for _, table := range []string{"master_aggregate", "assets", "treasuries", "staking_pools", "stake_accounts", "export_state"} {
		assert.Contains(t, body, "CREATE TABLE IF NOT EXISTS "+table)
	}
}
