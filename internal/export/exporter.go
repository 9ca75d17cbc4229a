package export

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"earnLedger/internal/ledger"
	"earnLedger/internal/metrics"
	"earnLedger/internal/model"
)

// StateName is the export_state row the exporter advances.
const StateName = "snapshot"

// Source yields consistent ledger snapshots.
type Source interface {
	Snapshot(ctx context.Context) (ledger.Snapshot, error)
}

// Sink persists snapshot rows. postgres.Store implements it.
type Sink interface {
	UpsertMaster(ctx context.Context, m model.Master) error
	UpsertAssets(ctx context.Context, assets []model.Asset) error
	UpsertTreasuries(ctx context.Context, treasuries []model.Treasury) error
	UpsertPools(ctx context.Context, pools []model.Pool) error
	UpsertStakeAccounts(ctx context.Context, accounts []model.StakeAccount) error
	LoadState(ctx context.Context, name string) (int64, bool, error)
	SaveState(ctx context.Context, name string, ts int64) error
}

type Config struct {
	Interval     time.Duration
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// Stats describes one export run.
type Stats struct {
	Assets     int
	Treasuries int
	Pools      int
	Accounts   int
	TakenAt    int64
}

// Exporter copies ledger snapshots into a Sink.
type Exporter struct {
	source Source
	sink   Sink
	cfg    Config
	clock  clockwork.Clock
	retry  backoff
	logger *zap.Logger
}

func New(source Source, sink Sink, cfg Config, clock clockwork.Clock, logger *zap.Logger) *Exporter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		source: source,
		sink:   sink,
		cfg:    cfg,
		clock:  clock,
		retry:  newBackoff(cfg, clock, logger),
		logger: logger,
	}
}

// Run exports immediately and then once per interval until ctx is done.
// Failed runs are logged and retried on the next tick.
func (e *Exporter) Run(ctx context.Context) error {
	ticker := e.clock.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := e.ExportOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			e.logger.Error("snapshot export failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

// ExportOnce writes the current snapshot. Rows are written parents first
// and in batches of at most BatchSize; every write is retried with
// exponential backoff.
func (e *Exporter) ExportOnce(ctx context.Context) (Stats, error) {
	stats, err := e.export(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ExportRunsTotal.WithLabelValues(status).Inc()
	return stats, err
}

func (e *Exporter) export(ctx context.Context) (Stats, error) {
	snap, err := e.source.Snapshot(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("snapshot: %w", err)
	}

	last, found, err := e.loadState(ctx)
	if err != nil {
		return Stats{}, err
	}
	if found && snap.TakenAt < last {
		e.logger.Warn("snapshot older than last export",
			zap.Int64("taken_at", snap.TakenAt),
			zap.Int64("last_exported", last),
		)
	}

	if snap.Master.Authority != (common.Address{}) {
		if err := e.retry.do(ctx, "master", func(ctx context.Context) error {
			return e.sink.UpsertMaster(ctx, snap.Master)
		}); err != nil {
			return Stats{}, fmt.Errorf("upsert master: %w", err)
		}
	}
	if err := writeBatches(ctx, e, "assets", snap.Assets, e.sink.UpsertAssets); err != nil {
		return Stats{}, fmt.Errorf("upsert assets: %w", err)
	}
	if err := writeBatches(ctx, e, "treasuries", snap.Treasuries, e.sink.UpsertTreasuries); err != nil {
		return Stats{}, fmt.Errorf("upsert treasuries: %w", err)
	}
	if err := writeBatches(ctx, e, "pools", snap.Pools, e.sink.UpsertPools); err != nil {
		return Stats{}, fmt.Errorf("upsert pools: %w", err)
	}
	if err := writeBatches(ctx, e, "stake_accounts", snap.Accounts, e.sink.UpsertStakeAccounts); err != nil {
		return Stats{}, fmt.Errorf("upsert stake accounts: %w", err)
	}

	if err := e.retry.do(ctx, "save_state", func(ctx context.Context) error {
		return e.sink.SaveState(ctx, StateName, snap.TakenAt)
	}); err != nil {
		return Stats{}, fmt.Errorf("save export state: %w", err)
	}

	stats := Stats{
		Assets:     len(snap.Assets),
		Treasuries: len(snap.Treasuries),
		Pools:      len(snap.Pools),
		Accounts:   len(snap.Accounts),
		TakenAt:    snap.TakenAt,
	}
	e.logger.Info("snapshot exported",
		zap.Int("assets", stats.Assets),
		zap.Int("pools", stats.Pools),
		zap.Int("accounts", stats.Accounts),
		zap.Int64("taken_at", stats.TakenAt),
	)
	return stats, nil
}

func (e *Exporter) loadState(ctx context.Context) (int64, bool, error) {
	var (
		last  int64
		found bool
	)
	err := e.retry.do(ctx, "load_state", func(ctx context.Context) error {
		var err error
		last, found, err = e.sink.LoadState(ctx, StateName)
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("load export state: %w", err)
	}
	return last, found, nil
}

func writeBatches[T any](ctx context.Context, e *Exporter, op string, rows []T, write func(context.Context, []T) error) error {
	for start := 0; start < len(rows); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		if err := e.retry.do(ctx, op, func(ctx context.Context) error {
			return write(ctx, chunk)
		}); err != nil {
			return err
		}
	}
	return nil
}
