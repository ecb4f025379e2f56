// Package server exposes the portal backend over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"TroveDesk/internal/health"
	"TroveDesk/internal/loanview"
	"TroveDesk/internal/logging"
	"TroveDesk/internal/metrics"
	"TroveDesk/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config defines HTTP server parameters.
type Config struct {
	ListenAddress   string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// Prices serves the cached price set.
type Prices interface {
	Collect(ctx context.Context) (model.PriceSet, error)
}

// Indexer is the read surface of the indexed-data access layer.
type Indexer interface {
	IndexedBlockNumber(ctx context.Context) (int64, error)
	TrovesByAccount(ctx context.Context, account common.Address) []model.Trove
	TroveByID(ctx context.Context, id model.PrefixedTroveID) *model.Trove
	InterestBatches(ctx context.Context, branch int, managers []common.Address) ([]model.InterestBatch, error)
	AllInterestRateBrackets(ctx context.Context) []model.InterestRateBracket
	GovernanceGlobalData(ctx context.Context) (model.GovernanceGlobalData, error)
	UserAllocationHistory(ctx context.Context, user common.Address) ([]model.Allocation, error)
	TotalAllocationHistory(ctx context.Context, initiative common.Address) ([]model.TotalAllocation, error)
}

// Loans builds loan screen views.
type Loans interface {
	Load(ctx context.Context, prefixedID string) (loanview.View, error)
}

// Deps are the services the handlers read from. Gatherer and Metrics may be nil.
type Deps struct {
	Prices    Prices
	Indexer   Indexer
	Loans     Loans
	Indicator *health.Indicator
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Logger    logging.Logger
}

// Server hosts the portal API.
type Server struct {
	cfg     Config
	deps    Deps
	logger  logging.Logger
	limiter *RateLimiter
	router  http.Handler
}

// New constructs a new HTTP server.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Prices == nil {
		return nil, fmt.Errorf("price source required")
	}
	if deps.Indexer == nil {
		return nil, fmt.Errorf("indexer required")
	}
	if deps.Loans == nil {
		return nil, fmt.Errorf("loan service required")
	}
	if deps.Indicator == nil {
		deps.Indicator = health.NewIndicator()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.OrDiscard(deps.Logger),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, deps.Metrics)
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(api chi.Router) {
		if s.limiter != nil {
			api.Use(s.limiter.Middleware)
		}
		api.Get("/prices", s.handlePrices)
		api.Get("/troves", s.handleTrovesByAccount)
		api.Get("/troves/{prefixedId}", s.handleTroveByID)
		api.Get("/loans/{prefixedId}", s.handleLoan)
		api.Get("/interest-rate-brackets", s.handleBrackets)
		api.Get("/interest-batches/{branchId}", s.handleInterestBatches)
		api.Get("/governance", s.handleGovernance)
		api.Get("/governance/allocations/users/{address}", s.handleUserAllocations)
		api.Get("/governance/allocations/initiatives/{address}", s.handleTotalAllocations)
		api.Get("/subgraph/status", s.handleSubgraphStatus)
		api.Get("/block-number", s.handleBlockNumber)
	})

	return otelhttp.NewHandler(r, "trovedesk.http")
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns only after in-flight requests have completed or
// ShutdownTimeout has elapsed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		shutdownDone <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", "address", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
