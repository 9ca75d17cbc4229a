package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"earnLedger/internal/metrics"
	"earnLedger/internal/model"
	"earnLedger/internal/storage"
	"earnLedger/internal/treasury"
)

// Bank is the host's value-transfer service. Calls are made with a context
// that carries the running store transaction.
type Bank interface {
	Transfer(ctx context.Context, asset, from, to common.Address, amount uint64) error
	BalanceOf(ctx context.Context, asset, holder common.Address) (uint64, error)
}

// Config wires the engine to its store and collaborators.
type Config struct {
	Store   storage.Store
	Bank    Bank
	Swapper treasury.Swapper
	Burner  treasury.Burner
	Sink    storage.EventSink
	Clock   clockwork.Clock
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Bank == nil {
		return errors.New("bank is required")
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Engine executes ledger operations. Each mutating call is one atomic store
// update: every record write and every bank transfer it makes commits
// together or not at all.
type Engine struct {
	cfg    Config
	gate   *treasury.Gate
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		gate:   treasury.NewGate(cfg.Swapper, cfg.Burner),
		logger: logger,
	}, nil
}

type opKey struct{}

// opState is shared by an operation and any call that joins it.
type opState struct {
	tx     storage.Tx
	now    int64
	events []model.Event
	alerts []model.Event
	after  []func()
	failed error
}

func (s *opState) emit(e model.Event) {
	s.events = append(s.events, e)
}

func (s *opState) onCommit(fn func()) {
	s.after = append(s.after, fn)
}

// run executes fn as one atomic operation. A call made from inside a
// running operation, for example by the bank during a transfer, joins it
// instead of opening a second transaction; if the joined call fails, the
// enclosing operation fails with it.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, st *opState) error) error {
	if parent, ok := ctx.Value(opKey{}).(*opState); ok {
		err := fn(ctx, parent)
		if err != nil && parent.failed == nil {
			parent.failed = fmt.Errorf("nested %s: %w", op, err)
		}
		return err
	}

	start := time.Now()
	st := &opState{now: e.cfg.Clock.Now().Unix()}
	err := e.cfg.Store.Update(ctx, func(tx storage.Tx) error {
		st.tx = tx
		inner := context.WithValue(storage.WithTx(ctx, tx), opKey{}, st)
		if err := fn(inner, st); err != nil {
			return err
		}
		return st.failed
	})
	metrics.RecordOperation(op, start, err)

	if len(st.alerts) > 0 {
		e.publish(st.alerts)
	}
	if err != nil {
		e.logger.Debug("operation failed", zap.String("op", op), zap.Error(err))
		return err
	}

	for _, fn := range st.after {
		fn()
	}
	e.publish(st.events)
	return nil
}

// view runs fn against a read-only snapshot. A read made from inside a
// running operation uses that operation's transaction and sees its
// uncommitted writes.
func (e *Engine) view(ctx context.Context, fn func(tx storage.Tx) error) error {
	if tx, ok := storage.TxFromContext(ctx); ok {
		return fn(tx)
	}
	return e.cfg.Store.View(ctx, fn)
}

func (e *Engine) publish(events []model.Event) {
	if e.cfg.Sink == nil || len(events) == 0 {
		return
	}
	if err := e.cfg.Sink.PutEvents(events); err != nil {
		e.logger.Error("publish events", zap.Int("events", len(events)), zap.Error(err))
	}
}

func newEvent(kind model.EventKind, mint, account common.Address, amount uint64, now int64) model.Event {
	return model.Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Mint:      mint,
		Account:   account,
		Amount:    amount,
		Timestamp: now,
	}
}

func requireMaster(tx storage.Tx) (model.Master, error) {
	master, ok, err := tx.Master()
	if err != nil {
		return model.Master{}, err
	}
	if !ok {
		return model.Master{}, model.ErrMasterNotInitialized
	}
	return master, nil
}

func requirePool(tx storage.Tx, mint common.Address) (model.Pool, error) {
	pool, ok, err := tx.Pool(mint)
	if err != nil {
		return model.Pool{}, err
	}
	if !ok {
		return model.Pool{}, fmt.Errorf("%w: %s", model.ErrPoolNotFound, mint.Hex())
	}
	return pool, nil
}

func requireAsset(tx storage.Tx, mint common.Address) (model.Asset, error) {
	asset, ok, err := tx.Asset(mint)
	if err != nil {
		return model.Asset{}, err
	}
	if !ok {
		return model.Asset{}, fmt.Errorf("%w: %s", model.ErrTokenNotRegistered, mint.Hex())
	}
	return asset, nil
}

func requireTreasury(tx storage.Tx, mint common.Address) (model.Treasury, error) {
	t, ok, err := tx.Treasury(mint)
	if err != nil {
		return model.Treasury{}, err
	}
	if !ok {
		return model.Treasury{}, fmt.Errorf("%w: %s", model.ErrTokenNotRegistered, mint.Hex())
	}
	return t, nil
}
