package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"earnLedger/internal/api"
	"earnLedger/internal/config"
	"earnLedger/internal/export"
	"earnLedger/internal/storage/postgres"
)

func addServiceCommands(root *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and, with a Postgres DSN, export snapshots periodically",
		RunE:  runServe,
	}
	serveCmd.Flags().String("http-addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Float64("rate-limit", 5, "permissionless POST requests per second per client")
	serveCmd.Flags().Int("rate-burst", 10, "permissionless POST burst per client")
	addExportFlags(serveCmd)
	root.AddCommand(serveCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the current ledger state into Postgres once",
		RunE:  runExport,
	}
	addExportFlags(exportCmd)
	root.AddCommand(exportCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres export schema",
	}
	migrateCmd.PersistentFlags().String("pg-dsn", "", "Postgres DSN")
	for _, sub := range []struct {
		use   string
		short string
		fn    func(context.Context, *zap.Logger, string) error
	}{
		{"up", "Apply pending migrations", postgres.MigrateUp},
		{"down", "Roll back the last migration", postgres.MigrateDown},
		{"status", "Show migration status", postgres.MigrateStatus},
	} {
		sub := sub
		migrateCmd.AddCommand(&cobra.Command{
			Use:   sub.use,
			Short: sub.short,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfgFile, _ := cmd.Flags().GetString("config")
				cfg, err := config.LoadExport(cfgFile, cmd.Flags())
				if err != nil {
					return err
				}
				logger, err := newLogger(cfg.LogLevel)
				if err != nil {
					return err
				}
				defer logger.Sync()

				ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				logger.Info("migrate", zap.String("direction", sub.use), zap.String("pg_dsn", redactDSN(cfg.PGDSN)))
				return sub.fn(ctx, logger, cfg.PGDSN)
			},
		})
	}
	root.AddCommand(migrateCmd)
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().Duration("export-interval", time.Minute, "snapshot export interval")
	cmd.Flags().Int("batch-size", 500, "rows per Postgres batch")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts per write")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().Duration("max-backoff", 30*time.Second, "retry backoff ceiling")
}

func runServe(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfgFile, _ := cmd.Flags().GetString("config")
	exportCfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(rt.engine, api.Options{
		RateLimit: rt.cfg.RateLimit,
		RateBurst: rt.cfg.RateBurst,
	}, rt.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx, rt.cfg.HTTPAddr)
	})

	if exportCfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, exportCfg.PGDSN)
		if err != nil {
			stop()
			_ = g.Wait()
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		exporter := newExporter(rt, pg, exportCfg)
		g.Go(func() error {
			return exporter.Run(ctx)
		})
	}

	rt.logger.Info("serve start",
		zap.String("http_addr", rt.cfg.HTTPAddr),
		zap.String("store", rt.cfg.Store),
		zap.String("pg_dsn", redactDSN(exportCfg.PGDSN)),
		zap.Duration("export_interval", exportCfg.Interval),
	)
	return g.Wait()
}

func runExport(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfgFile, _ := cmd.Flags().GetString("config")
	exportCfg, err := config.LoadExport(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if exportCfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.NewStore(ctx, exportCfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	rt.logger.Info("export start",
		zap.String("pg_dsn", redactDSN(exportCfg.PGDSN)),
		zap.Int("batch_size", exportCfg.BatchSize),
	)
	stats, err := newExporter(rt, pg, exportCfg).ExportOnce(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func newExporter(rt *runtime, pg *postgres.Store, cfg config.ExportConfig) *export.Exporter {
	return export.New(rt.engine, pg, export.Config{
		Interval:     cfg.Interval,
		BatchSize:    cfg.BatchSize,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		MaxBackoff:   cfg.MaxBackoff,
	}, nil, rt.logger.Named("export"))
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
