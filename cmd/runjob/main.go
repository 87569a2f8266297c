// Package main provides a one-shot job runner for external schedulers.
// Runs exactly one job (claim | distribute | snapshot) and prints its
// summary as JSON. Invocations are expected to be non-overlapping; the
// caller's scheduler owns that guarantee.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"solana-fee-engine/internal/amm"
	"solana-fee-engine/internal/analytics"
	"solana-fee-engine/internal/claims"
	"solana-fee-engine/internal/distribution"
	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/solana"
	"solana-fee-engine/internal/storage"
	"solana-fee-engine/internal/storage/migrations"
	pgstore "solana-fee-engine/internal/storage/postgres"
	"solana-fee-engine/internal/valuation"
)

// productVariants lists the launch products this deployment distributes for.
var productVariants = []domain.ProductVariant{"agent", "trading"}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	ammURL := flag.String("amm-url", os.Getenv("AMM_URL"), "Market-making service base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	minClaim := flag.Int64("min-claim-lamports", claims.DefaultConfig().MinClaimLamports, "Dust threshold for claims")
	minDistribution := flag.Int64("min-distribution-lamports", distribution.DefaultConfig().MinDistributionLamports, "Dust threshold for payouts")
	treasuryMargin := flag.Uint64("treasury-margin-lamports", 100_000_000, "Treasury safety margin; distribution runs are skipped below it")
	creatorShareBps := flag.Int("creator-share-bps", 3000, "Creator fee share in basis points")
	agentShareBps := flag.Int("agent-share-bps", 3000, "Owning-agent fee share in basis points")
	tradingAgentShareBps := flag.Int("trading-agent-share-bps", 3000, "Trading-agent fee share in basis points")
	totalSupply := flag.String("total-supply", "1000000000", "Token total supply for market cap")
	graduationThreshold := flag.String("graduation-threshold", "85", "Real base reserves that complete the curve")
	timeout := flag.Duration("timeout", 30*time.Minute, "Whole-run timeout")

	flag.Parse()

	logger := log.New(os.Stderr, "[runjob] ", log.LstdFlags|log.Lshortfile)

	job := flag.Arg(0)
	if job != "claim" && job != "distribute" && job != "snapshot" {
		logger.Fatalf("Usage: %s [flags] claim|distribute|snapshot", os.Args[0])
	}

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling job...", sig)
		cancel()
	}()

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Failed to apply postgres migrations: %v", err)
	}

	pools := pgstore.NewPoolStore(pool)
	tokens := pgstore.NewTokenStore(pool)
	claimStore := pgstore.NewFeeClaimStore(pool)
	dists := pgstore.NewDistributionStore(pool)

	var summary any

	switch job {
	case "claim":
		summary, err = runClaim(ctx, logger, pools, tokens, claimStore,
			*rpcEndpoint, *ammURL, *minClaim)

	case "distribute":
		summary, err = runDistribute(ctx, logger, pools, tokens, claimStore, dists,
			*rpcEndpoint, *minDistribution, *treasuryMargin,
			*creatorShareBps, *agentShareBps, *tradingAgentShareBps)

	case "snapshot":
		summary, err = runSnapshot(ctx, logger, pools,
			*clickhouseDSN, *totalSupply, *graduationThreshold)
	}

	if err != nil {
		logger.Fatalf("Job %s failed: %v", job, err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Fatalf("Failed to encode summary: %v", err)
	}
	fmt.Println(string(out))
}

// runClaim executes one claim pass.
func runClaim(
	ctx context.Context,
	logger *log.Logger,
	pools storage.PoolStore,
	tokens storage.TokenStore,
	claimStore storage.FeeClaimStore,
	rpcEndpoint, ammURL string,
	minClaim int64,
) (*claims.RunSummary, error) {
	if rpcEndpoint == "" {
		return nil, fmt.Errorf("--rpc-endpoint is required")
	}
	if ammURL == "" {
		return nil, fmt.Errorf("--amm-url is required")
	}
	signer, err := treasurySigner()
	if err != nil {
		return nil, err
	}

	cfg := claims.DefaultConfig()
	cfg.MinClaimLamports = minClaim

	fetcher := claims.NewFetcher(
		pools, tokens, claimStore,
		amm.NewHTTPClient(ammURL), solana.NewHTTPClient(rpcEndpoint), signer,
		cfg, logger,
	)
	return fetcher.Run(ctx)
}

// runDistribute executes one distribution pass.
func runDistribute(
	ctx context.Context,
	logger *log.Logger,
	pools storage.PoolStore,
	tokens storage.TokenStore,
	claimStore storage.FeeClaimStore,
	dists storage.DistributionStore,
	rpcEndpoint string,
	minDistribution int64,
	treasuryMargin uint64,
	creatorShareBps, agentShareBps, tradingAgentShareBps int,
) (*distribution.RunSummary, error) {
	if rpcEndpoint == "" {
		return nil, fmt.Errorf("--rpc-endpoint is required")
	}
	signer, err := treasurySigner()
	if err != nil {
		return nil, err
	}

	shares := domain.ShareTable{CreatorBps: creatorShareBps, AgentBps: agentShareBps, TradingAgentBps: tradingAgentShareBps}
	policies := make(domain.PolicySet, len(productVariants))
	for _, variant := range productVariants {
		policies[variant] = domain.DistributionPolicy{
			Variant:        variant,
			Shares:         shares,
			TreasuryWallet: signer.PublicKey(),
			Resolve:        domain.AgentRecipientResolver(shares),
		}
	}

	rpc := solana.NewHTTPClient(rpcEndpoint)
	grouper := distribution.NewGrouper(claimStore, pools, tokens, policies, logger)
	guard := distribution.NewGuard(rpc, signer.PublicKey(), treasuryMargin, logger)

	cfg := distribution.DefaultConfig()
	cfg.MinDistributionLamports = minDistribution

	executor := distribution.NewExecutor(grouper, guard, claimStore, dists, rpc, signer, cfg, logger)
	return executor.Run(ctx)
}

// runSnapshot executes one valuation snapshot pass.
func runSnapshot(
	ctx context.Context,
	logger *log.Logger,
	pools storage.PoolStore,
	clickhouseDSN, totalSupply, graduationThreshold string,
) (*analytics.SnapshotRunSummary, error) {
	if clickhouseDSN == "" {
		return nil, fmt.Errorf("--clickhouse-dsn is required")
	}

	supply, err := decimal.NewFromString(totalSupply)
	if err != nil {
		return nil, fmt.Errorf("parse total supply: %w", err)
	}
	threshold, err := decimal.NewFromString(graduationThreshold)
	if err != nil {
		return nil, fmt.Errorf("parse graduation threshold: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	job := analytics.NewSnapshotJob(
		pools, analytics.NewValuationPointStore(conn),
		valuation.Config{TotalSupply: supply, GraduationThreshold: threshold},
		logger,
	)
	return job.Run(ctx)
}

// treasurySigner builds the signer from the TREASURY_SECRET_KEY env var.
func treasurySigner() (*solana.KeypairSigner, error) {
	secret := os.Getenv("TREASURY_SECRET_KEY")
	if secret == "" {
		return nil, fmt.Errorf("TREASURY_SECRET_KEY environment variable is required")
	}
	return solana.NewKeypairSigner(secret)
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
