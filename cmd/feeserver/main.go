// Package main provides the unified fee engine server that runs all
// components together:
// - Reserve watcher (continuous): WebSocket subscriptions keep pool snapshots fresh
// - Claim job (scheduled): pulls accrued fees from the AMM service into the treasury
// - Distribution job (scheduled): pays out the undistributed claim backlog
// - Snapshot job (scheduled): appends valuation timeseries points
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"solana-fee-engine/internal/amm"
	"solana-fee-engine/internal/analytics"
	"solana-fee-engine/internal/claims"
	"solana-fee-engine/internal/distribution"
	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/observability"
	"solana-fee-engine/internal/solana"
	"solana-fee-engine/internal/storage"
	"solana-fee-engine/internal/storage/memory"
	"solana-fee-engine/internal/storage/migrations"
	pgstore "solana-fee-engine/internal/storage/postgres"
	"solana-fee-engine/internal/valuation"
	"solana-fee-engine/internal/watch"
)

// productVariants lists the launch products this deployment distributes for.
var productVariants = []domain.ProductVariant{"agent", "trading"}

// Server holds all components of the unified service.
type Server struct {
	// Components
	fetcher   *claims.Fetcher
	executor  *distribution.Executor
	snapshot  *analytics.SnapshotJob
	pools     storage.PoolStore
	valuation valuation.Config
	logger    *log.Logger

	// Schedules
	claimInterval      time.Duration
	distributeInterval time.Duration
	snapshotInterval   time.Duration

	// State
	mu                sync.Mutex
	started           time.Time
	claimRunning      bool
	distributeRunning bool
	snapshotRunning   bool
	lastClaimRun      time.Time
	lastDistributeRun time.Time
	lastSnapshotRun   time.Time
	claimRuns         int
	distributeRuns    int
	snapshotRuns      int
}

// allStores holds all storage implementations.
type allStores struct {
	pools  storage.PoolStore
	tokens storage.TokenStore
	claims storage.FeeClaimStore
	dists  storage.DistributionStore
	points storage.ValuationPointStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (empty disables the reserve watcher)")
	ammURL := flag.String("amm-url", os.Getenv("AMM_URL"), "Market-making service base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	httpAddr := flag.String("http-addr", ":8080", "HTTP listen address (jobs, valuation, health, metrics)")
	claimInterval := flag.Duration("claim-interval", 15*time.Minute, "Claim job interval")
	distributeInterval := flag.Duration("distribute-interval", 1*time.Hour, "Distribution job interval")
	snapshotInterval := flag.Duration("snapshot-interval", 5*time.Minute, "Valuation snapshot interval")
	minClaim := flag.Int64("min-claim-lamports", claims.DefaultConfig().MinClaimLamports, "Dust threshold for claims")
	minDistribution := flag.Int64("min-distribution-lamports", distribution.DefaultConfig().MinDistributionLamports, "Dust threshold for payouts")
	treasuryMargin := flag.Uint64("treasury-margin-lamports", 100_000_000, "Treasury safety margin; distribution runs are skipped below it")
	creatorShareBps := flag.Int("creator-share-bps", 3000, "Creator fee share in basis points")
	agentShareBps := flag.Int("agent-share-bps", 3000, "Owning-agent fee share in basis points")
	tradingAgentShareBps := flag.Int("trading-agent-share-bps", 3000, "Trading-agent fee share in basis points")
	totalSupply := flag.String("total-supply", "1000000000", "Token total supply for market cap")
	graduationThreshold := flag.String("graduation-threshold", "85", "Real base reserves that complete the curve")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[feeserver] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *ammURL == "" {
		logger.Fatal("--amm-url is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	treasurySecret := os.Getenv("TREASURY_SECRET_KEY")
	if treasurySecret == "" {
		logger.Fatal("TREASURY_SECRET_KEY environment variable is required")
	}

	signer, err := solana.NewKeypairSigner(treasurySecret)
	if err != nil {
		logger.Fatalf("Invalid treasury secret key: %v", err)
	}

	valuationCfg, err := parseValuationConfig(*totalSupply, *graduationThreshold)
	if err != nil {
		logger.Fatalf("Invalid valuation config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores (migrations applied for database-backed modes)
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Create clients
	rpc := solana.NewHTTPClient(*rpcEndpoint)
	ammClient := amm.NewHTTPClient(*ammURL)

	// Create components
	shares := domain.ShareTable{CreatorBps: *creatorShareBps, AgentBps: *agentShareBps, TradingAgentBps: *tradingAgentShareBps}
	policies := createPolicies(shares, signer.PublicKey())

	fetcher := claims.NewFetcher(
		stores.pools, stores.tokens, stores.claims,
		ammClient, rpc, signer,
		claims.Config{MinClaimLamports: *minClaim, PoolDelay: claims.DefaultConfig().PoolDelay},
		log.New(os.Stdout, "[claims] ", log.LstdFlags|log.Lshortfile),
	)

	distLogger := log.New(os.Stdout, "[distribute] ", log.LstdFlags|log.Lshortfile)
	grouper := distribution.NewGrouper(stores.claims, stores.pools, stores.tokens, policies, distLogger)
	guard := distribution.NewGuard(rpc, signer.PublicKey(), *treasuryMargin, distLogger)
	executor := distribution.NewExecutor(
		grouper, guard, stores.claims, stores.dists, rpc, signer,
		distribution.Config{MinDistributionLamports: *minDistribution, PayoutDelay: distribution.DefaultConfig().PayoutDelay},
		distLogger,
	)

	snapshot := analytics.NewSnapshotJob(
		stores.pools, stores.points, valuationCfg,
		log.New(os.Stdout, "[analytics] ", log.LstdFlags|log.Lshortfile),
	)

	server := &Server{
		fetcher:            fetcher,
		executor:           executor,
		snapshot:           snapshot,
		pools:              stores.pools,
		valuation:          valuationCfg,
		logger:             logger,
		claimInterval:      *claimInterval,
		distributeInterval: *distributeInterval,
		snapshotInterval:   *snapshotInterval,
		started:            time.Now(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		}
	}()

	// Start reserve watcher when a WebSocket endpoint is configured
	if *wsEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Fatalf("Failed to create websocket client: %v", err)
		}
		defer ws.Close()

		watcher := watch.NewWatcher(stores.pools, ws, rpc, log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile))
		if err := watcher.Start(ctx); err != nil {
			logger.Fatalf("Failed to start reserve watcher: %v", err)
		}
		defer watcher.Wait()
	} else {
		logger.Println("No --ws-endpoint, reserve watcher disabled")
	}

	// Start HTTP server
	go server.startHTTPServer(ctx, *httpAddr)

	// Run the schedulers until cancelled
	server.Run(ctx)

	logger.Println("Shutdown complete")
}

// parseValuationConfig parses the curve constants.
func parseValuationConfig(totalSupply, graduationThreshold string) (valuation.Config, error) {
	supply, err := decimal.NewFromString(totalSupply)
	if err != nil {
		return valuation.Config{}, fmt.Errorf("parse total supply: %w", err)
	}
	threshold, err := decimal.NewFromString(graduationThreshold)
	if err != nil {
		return valuation.Config{}, fmt.Errorf("parse graduation threshold: %w", err)
	}
	return valuation.Config{TotalSupply: supply, GraduationThreshold: threshold}, nil
}

// createPolicies builds the per-variant distribution policies. All variants
// currently share one share table and the treasury wallet; they differ in
// recipient resolution inputs carried on their tokens.
func createPolicies(shares domain.ShareTable, treasuryWallet string) domain.PolicySet {
	policies := make(domain.PolicySet, len(productVariants))
	for _, variant := range productVariants {
		policies[variant] = domain.DistributionPolicy{
			Variant:        variant,
			Shares:         shares,
			TreasuryWallet: treasuryWallet,
			Resolve:        domain.AgentRecipientResolver(shares),
		}
	}
	return policies
}

// createStores creates all required stores, applying migrations for the
// database-backed mode.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		dists := memory.NewDistributionStore()
		stores := &allStores{
			pools:  memory.NewPoolStore(),
			tokens: memory.NewTokenStore(),
			claims: memory.NewFeeClaimStore(dists),
			dists:  dists,
			points: memory.NewValuationPointStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("apply postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores := &allStores{
		pools:  pgstore.NewPoolStore(pool),
		tokens: pgstore.NewTokenStore(pool),
		claims: pgstore.NewFeeClaimStore(pool),
		dists:  pgstore.NewDistributionStore(pool),
		points: analytics.NewValuationPointStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// Run drives the job schedulers until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		s.runScheduler(ctx, "claim", s.claimInterval, func(ctx context.Context) { s.runClaim(ctx) })
	}()
	go func() {
		defer wg.Done()
		s.runScheduler(ctx, "distribute", s.distributeInterval, func(ctx context.Context) { s.runDistribute(ctx) })
	}()
	go func() {
		defer wg.Done()
		s.runScheduler(ctx, "snapshot", s.snapshotInterval, func(ctx context.Context) { s.runSnapshot(ctx) })
	}()

	wg.Wait()
}

// runScheduler runs fn immediately and then on every tick.
func (s *Server) runScheduler(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) {
	s.logger.Printf("Starting %s scheduler (interval: %v)...", name, interval)

	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// runClaim executes one claim job run unless one is already in flight.
func (s *Server) runClaim(ctx context.Context) (*claims.RunSummary, error) {
	s.mu.Lock()
	if s.claimRunning {
		s.mu.Unlock()
		s.logger.Println("Claim job already running, skipping...")
		return nil, errAlreadyRunning
	}
	s.claimRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.claimRunning = false
		s.lastClaimRun = time.Now()
		s.claimRuns++
		s.mu.Unlock()
	}()

	summary, err := s.fetcher.Run(ctx)
	if err != nil {
		s.logger.Printf("Claim job error: %v", err)
	}
	return summary, err
}

// runDistribute executes one distribution run unless one is already in flight.
func (s *Server) runDistribute(ctx context.Context) (*distribution.RunSummary, error) {
	s.mu.Lock()
	if s.distributeRunning {
		s.mu.Unlock()
		s.logger.Println("Distribution job already running, skipping...")
		return nil, errAlreadyRunning
	}
	s.distributeRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.distributeRunning = false
		s.lastDistributeRun = time.Now()
		s.distributeRuns++
		s.mu.Unlock()
	}()

	summary, err := s.executor.Run(ctx)
	if err != nil {
		s.logger.Printf("Distribution job error: %v", err)
	}
	return summary, err
}

// runSnapshot executes one snapshot run unless one is already in flight.
func (s *Server) runSnapshot(ctx context.Context) (*analytics.SnapshotRunSummary, error) {
	s.mu.Lock()
	if s.snapshotRunning {
		s.mu.Unlock()
		s.logger.Println("Snapshot job already running, skipping...")
		return nil, errAlreadyRunning
	}
	s.snapshotRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.snapshotRunning = false
		s.lastSnapshotRun = time.Now()
		s.snapshotRuns++
		s.mu.Unlock()
	}()

	summary, err := s.snapshot.Run(ctx)
	if err != nil {
		s.logger.Printf("Snapshot job error: %v", err)
	}
	return summary, err
}

var errAlreadyRunning = errors.New("job already running")

// startHTTPServer starts the HTTP server for job triggers, valuation reads,
// health, status and metrics.
func (s *Server) startHTTPServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Job triggers
	mux.HandleFunc("/jobs/claim", func(w http.ResponseWriter, r *http.Request) {
		s.handleJob(w, r, func(ctx context.Context) (any, error) { return s.runClaim(ctx) })
	})
	mux.HandleFunc("/jobs/distribute", func(w http.ResponseWriter, r *http.Request) {
		s.handleJob(w, r, func(ctx context.Context) (any, error) { return s.runDistribute(ctx) })
	})
	mux.HandleFunc("/jobs/snapshot", func(w http.ResponseWriter, r *http.Request) {
		s.handleJob(w, r, func(ctx context.Context) (any, error) { return s.runSnapshot(ctx) })
	})

	// Valuation read
	mux.HandleFunc("/valuation", s.handleValuation)

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// handleJob runs one job and writes its summary. A run that completes with
// zero work is still 200; 500 is reserved for whole-run setup faults.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request, run func(context.Context) (any, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summary, err := run(r.Context())
	if errors.Is(err, errAlreadyRunning) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// ValuationResponse is the JSON response for /valuation.
type ValuationResponse struct {
	PoolID             string  `json:"poolId"`
	TokenID            string  `json:"tokenId"`
	Status             string  `json:"status"`
	Price              float64 `json:"price"`
	MarketCap          float64 `json:"marketCap"`
	BondingProgressPct float64 `json:"bondingProgressPct"`
	IsGraduated        bool    `json:"isGraduated"`
	Fallback           bool    `json:"fallback"`
}

// handleValuation resolves a pool's current valuation from its stored
// reserve snapshot.
func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	poolID := r.URL.Query().Get("pool")
	if poolID == "" {
		http.Error(w, "pool query parameter is required", http.StatusBadRequest)
		return
	}

	pool, err := s.pools.GetByID(r.Context(), poolID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "pool not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	v := valuation.ResolveOrFallback(pool.Reserves, s.valuation, valuation.Valuation{})

	price, _ := v.Price.Float64()
	marketCap, _ := v.MarketCap.Float64()
	progress, _ := v.BondingProgressPct.Float64()

	writeJSON(w, http.StatusOK, ValuationResponse{
		PoolID:             pool.PoolID,
		TokenID:            pool.TokenID,
		Status:             string(pool.Status),
		Price:              price,
		MarketCap:          marketCap,
		BondingProgressPct: progress,
		IsGraduated:        v.IsGraduated,
		Fallback:           v.Fallback,
	})
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status            string    `json:"status"`
	Uptime            string    `json:"uptime"`
	LastClaimRun      time.Time `json:"last_claim_run,omitempty"`
	LastDistributeRun time.Time `json:"last_distribute_run,omitempty"`
	LastSnapshotRun   time.Time `json:"last_snapshot_run,omitempty"`
	ClaimRuns         int       `json:"claim_runs"`
	DistributeRuns    int       `json:"distribute_runs"`
	SnapshotRuns      int       `json:"snapshot_runs"`
	ClaimRunning      bool      `json:"claim_running"`
	DistributeRunning bool      `json:"distribute_running"`
	SnapshotRunning   bool      `json:"snapshot_running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:            "running",
		Uptime:            time.Since(s.started).String(),
		LastClaimRun:      s.lastClaimRun,
		LastDistributeRun: s.lastDistributeRun,
		LastSnapshotRun:   s.lastSnapshotRun,
		ClaimRuns:         s.claimRuns,
		DistributeRuns:    s.distributeRuns,
		SnapshotRuns:      s.snapshotRuns,
		ClaimRunning:      s.claimRunning,
		DistributeRunning: s.distributeRunning,
		SnapshotRunning:   s.snapshotRunning,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
