package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"earnLedger/internal/bank"
	"earnLedger/internal/config"
	"earnLedger/internal/ledger"
	"earnLedger/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "earnledger",
		Short:        "Fee splitting and staking reward ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("store", config.StoreBolt, "ledger store (bolt, memory)")
	root.PersistentFlags().String("db-path", "./data/ledger.db", "bolt database path")
	root.PersistentFlags().String("journal", "./data/events.jsonl", "event journal JSONL path, empty disables")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Uint64("swap-rate-num", 1, "tokens paid per native unit, numerator")
	root.PersistentFlags().Uint64("swap-rate-den", 1, "tokens paid per native unit, denominator")

	addLedgerCommands(root)
	addServiceCommands(root)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime is what every ledger command needs.
type runtime struct {
	cfg    config.Config
	logger *zap.Logger
	store  storage.Store
	book   *bank.Book
	engine *ledger.Engine
}

func openRuntime(cmd *cobra.Command) (*runtime, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var store storage.Store
	switch cfg.Store {
	case config.StoreMemory:
		store = storage.NewMemoryStore()
	default:
		store, err = storage.OpenBoltStore(cfg.DBPath)
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	var sink storage.EventSink
	if cfg.Journal != "" {
		sink = storage.NewJournal(cfg.Journal)
	}

	book := bank.NewBook(cfg.SwapRateNum, cfg.SwapRateDen)
	engine, err := ledger.New(ledger.Config{
		Store:   store,
		Bank:    book,
		Swapper: book,
		Burner:  book,
		Sink:    sink,
	}, logger)
	if err != nil {
		_ = store.Close()
		_ = logger.Sync()
		return nil, err
	}

	logger.Debug("ledger opened",
		zap.String("store", cfg.Store),
		zap.String("db_path", cfg.DBPath),
		zap.String("journal", cfg.Journal),
	)
	return &runtime{cfg: cfg, logger: logger, store: store, book: book, engine: engine}, nil
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("close store", zap.Error(err))
	}
	_ = r.logger.Sync()
}

// ledgerCommand builds a command that runs fn against an open ledger and
// prints its result as JSON.
func ledgerCommand(use, short string, fn func(ctx context.Context, cmd *cobra.Command, rt *runtime) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := fn(ctx, cmd, rt)
			if err != nil {
				rt.logger.Error(use+" failed", zap.Error(err))
				return err
			}
			return printJSON(result)
		},
	}
}

func printJSON(v any) error {
	if v == nil {
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, err := cmd.Flags().GetString(name)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := config.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
