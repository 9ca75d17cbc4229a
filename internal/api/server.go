package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"earnLedger/internal/ledger"
	"earnLedger/internal/metrics"
	"earnLedger/internal/model"
	"earnLedger/internal/treasury"
)

// Ledger is the part of the engine the API serves.
type Ledger interface {
	Master(ctx context.Context) (model.Master, error)
	Assets(ctx context.Context) ([]model.Asset, error)
	Asset(ctx context.Context, mint common.Address) (model.Asset, error)
	Treasury(ctx context.Context, mint common.Address) (model.Treasury, error)
	Pool(ctx context.Context, mint common.Address) (model.Pool, error)
	StakeAccounts(ctx context.Context, mint common.Address) ([]model.StakeAccount, error)
	Position(ctx context.Context, mint, owner common.Address) (ledger.Position, error)
	UpdateRewards(ctx context.Context, mint common.Address) (model.Pool, error)
	ExecuteBuyback(ctx context.Context, mint common.Address, amount, minOutput uint64) (treasury.Result, error)
}

type Options struct {
	RateLimit float64
	RateBurst int
}

// Server is the HTTP front of the ledger.
type Server struct {
	router  *chi.Mux
	ledger  Ledger
	limiter *RateLimiter
	logger  *zap.Logger
}

func NewServer(l Ledger, opts Options, logger *zap.Logger) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		router:  chi.NewRouter(),
		ledger:  l,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateBurst),
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
	s.router.Use(metrics.Middleware)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/master", s.handleMaster)

	s.router.Route("/assets", func(r chi.Router) {
		r.Get("/", s.handleAssets)
		r.Route("/{mint}", func(r chi.Router) {
			r.Get("/", s.handleAsset)
			r.Get("/pool", s.handlePool)
			r.Get("/treasury", s.handleTreasury)
			r.Get("/stakers", s.handleStakers)
			r.Get("/stakers/{owner}", s.handlePosition)

			r.Group(func(r chi.Router) {
				r.Use(s.limiter.Middleware)
				r.Post("/update-rewards", s.handleUpdateRewards)
				r.Post("/buyback", s.handleBuyback)
			})
		})
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
