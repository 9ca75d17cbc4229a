package export

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"earnLedger/internal/ledger"
	"earnLedger/internal/model"
)

type staticSource struct {
	snap ledger.Snapshot
}

func (s staticSource) Snapshot(context.Context) (ledger.Snapshot, error) {
	return s.snap, nil
}

type recordingSink struct {
	mu         sync.Mutex
	failAssets int
	assetBatch []int
	accounts   int
	masters    int
	states     []int64
	saved      chan struct{}
}

func (r *recordingSink) UpsertMaster(context.Context, model.Master) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.masters++
	return nil
}

func (r *recordingSink) UpsertAssets(_ context.Context, assets []model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAssets > 0 {
		r.failAssets--
		return errors.New("connection reset")
	}
	r.assetBatch = append(r.assetBatch, len(assets))
	return nil
}

func (r *recordingSink) UpsertTreasuries(context.Context, []model.Treasury) error { return nil }
func (r *recordingSink) UpsertPools(context.Context, []model.Pool) error          { return nil }

func (r *recordingSink) UpsertStakeAccounts(_ context.Context, accounts []model.StakeAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts += len(accounts)
	return nil
}

func (r *recordingSink) LoadState(context.Context, string) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return 0, false, nil
	}
	return r.states[len(r.states)-1], true, nil
}

func (r *recordingSink) SaveState(_ context.Context, name string, ts int64) error {
	r.mu.Lock()
	r.states = append(r.states, ts)
	r.mu.Unlock()
	if r.saved != nil {
		r.saved <- struct{}{}
	}
	return nil
}

func snapshot(assets, accounts int) ledger.Snapshot {
	snap := ledger.Snapshot{
		Master:  model.Master{Authority: common.HexToAddress("0x00000000000000000000000000000000000000a0")},
		TakenAt: 1_700_000_000,
	}
	for i := 0; i < assets; i++ {
		snap.Assets = append(snap.Assets, model.Asset{Mint: common.BigToAddress(common.Big1)})
	}
	for i := 0; i < accounts; i++ {
		snap.Accounts = append(snap.Accounts, model.StakeAccount{})
	}
	return snap
}

func TestExportOnceBatches(t *testing.T) {
	sink := &recordingSink{}
	exp := New(staticSource{snap: snapshot(5, 3)}, sink, Config{BatchSize: 2}, clockwork.NewFakeClock(), zap.NewNop())

	stats, err := exp.ExportOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Assets)
	assert.Equal(t, 3, stats.Accounts)
	assert.Equal(t, []int{2, 2, 1}, sink.assetBatch)
	assert.Equal(t, 3, sink.accounts)
	assert.Equal(t, 1, sink.masters)
	assert.Equal(t, []int64{1_700_000_000}, sink.states)
}

func TestExportOnceRetries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &recordingSink{failAssets: 2}
	exp := New(staticSource{snap: snapshot(1, 0)}, sink, Config{
		BatchSize:    10,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}, clock, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := exp.ExportOnce(ctx)
		done <- err
	}()

	for _, delay := range []time.Duration{time.Second, 2 * time.Second} {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(delay)
	}

	require.NoError(t, <-done)
	assert.Equal(t, []int{1}, sink.assetBatch)
}

func TestExportOnceGivesUp(t *testing.T) {
	sink := &recordingSink{failAssets: 10}
	exp := New(staticSource{snap: snapshot(1, 0)}, sink, Config{MaxRetries: 0}, clockwork.NewFakeClock(), zap.NewNop())

	_, err := exp.ExportOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert assets")
	assert.Empty(t, sink.states)
}

func TestRunExportsEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sink := &recordingSink{saved: make(chan struct{}, 4)}
	exp := New(staticSource{snap: snapshot(1, 1)}, sink, Config{Interval: time.Minute}, clock, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- exp.Run(ctx) }()

	<-sink.saved
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	<-sink.saved

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, sink.states, 2)
}
