package distribution

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/observability"
	"solana-fee-engine/internal/solana"
	"solana-fee-engine/internal/storage"
)

// Config configures the payout executor.
type Config struct {
	// MinDistributionLamports is the payout threshold: groups whose
	// computed payout falls below it are swept (claims settled with no
	// transfer) instead of paying dust.
	MinDistributionLamports int64

	// PayoutDelay is the pause between groups. One treasury key signs
	// everything, so payouts are strictly sequential.
	PayoutDelay time.Duration
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		MinDistributionLamports: 100_000,
		PayoutDelay:             1 * time.Second,
	}
}

// RunSummary reports one distribution run.
type RunSummary struct {
	// Processed is the number of recipient groups examined.
	Processed int `json:"processed"`
	// Distributed is the number of payouts settled on chain.
	Distributed int `json:"distributed"`
	// Swept is the number of groups settled below the payout threshold.
	Swept int `json:"swept"`
	// TotalLamports is the sum of settled payout amounts.
	TotalLamports int64 `json:"totalAmount"`
	// Errors holds one message per failed group.
	Errors []string `json:"errors"`
	// GuardAborted reports that the treasury guard skipped the run.
	GuardAborted bool `json:"guardAborted,omitempty"`
}

// Executor runs the distribution job: group the backlog, guard the
// treasury, settle one transfer per group, and flip each member claim
// together with the payout record of its final leg. A claim fanned out to
// several recipient groups flips only once every group has settled; a
// failed leg leaves the claim pending and the full recipient set is
// retried next run.
type Executor struct {
	grouper *Grouper
	guard   *Guard
	claims  storage.FeeClaimStore
	dists   storage.DistributionStore
	rpc     solana.RPCClient
	signer  solana.Signer
	config  Config
	logger  *log.Logger
}

// NewExecutor creates a payout executor.
func NewExecutor(
	grouper *Grouper,
	guard *Guard,
	claims storage.FeeClaimStore,
	dists storage.DistributionStore,
	rpc solana.RPCClient,
	signer solana.Signer,
	config Config,
	logger *log.Logger,
) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	return &Executor{
		grouper: grouper,
		guard:   guard,
		claims:  claims,
		dists:   dists,
		rpc:     rpc,
		signer:  signer,
		config:  config,
		logger:  logger,
	}
}

// Run executes one distribution pass. Groups are processed sequentially;
// one group's failure is recorded and the run moves on. Run returns an
// error only on whole-run setup faults (guard read, backlog load).
func (e *Executor) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	summary := &RunSummary{Errors: []string{}}

	ok, balance, err := e.guard.Check(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		summary.GuardAborted = true
		return summary, nil
	}

	groups, err := e.grouper.Group(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Printf("[distribute] starting run: %d recipient groups, treasury balance %d", len(groups), balance)

	// Outstanding legs per claim. A claim flips when its count hits zero.
	legs := make(map[int64]int, len(groups))
	for _, group := range groups {
		for _, id := range group.ClaimIDs {
			legs[id]++
		}
	}

	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && e.config.PayoutDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(e.config.PayoutDelay):
			}
		}

		summary.Processed++

		paid, swept, err := e.settleGroup(ctx, group, legs)
		if err != nil {
			msg := fmt.Sprintf("group %s/%s: %v", group.Variant, group.Wallet, err)
			e.logger.Printf("[distribute] %s", msg)
			summary.Errors = append(summary.Errors, msg)
			continue
		}
		if swept {
			summary.Swept++
			observability.RecordSweep()
			continue
		}
		summary.Distributed++
		summary.TotalLamports += paid
		observability.RecordPayout(paid)
	}

	observability.RecordJobDuration("distribute", time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulDistributeRun.SetToCurrentTime()

	e.logger.Printf("[distribute] run complete: processed=%d distributed=%d swept=%d total=%d errors=%d",
		summary.Processed, summary.Distributed, summary.Swept, summary.TotalLamports, len(summary.Errors))

	return summary, nil
}

// settleGroup settles one recipient group: sweep below the threshold, or
// transfer the payout and retire the settled leg for each member claim.
func (e *Executor) settleGroup(ctx context.Context, group *domain.RecipientGroup, legs map[int64]int) (int64, bool, error) {
	payout := group.PayoutAmount()

	if payout < e.config.MinDistributionLamports {
		// Swept: the leg settles with no transfer and no distribution row.
		if err := e.settleClaims(ctx, group, legs, nil); err != nil {
			observability.RecordDistributionError("sweep")
			return 0, false, fmt.Errorf("sweep claims: %w", err)
		}
		e.logger.Printf("[distribute] group %s/%s: payout %d below threshold %d, swept %d claims",
			group.Variant, group.Wallet, payout, e.config.MinDistributionLamports, len(group.ClaimIDs))
		return 0, true, nil
	}

	if !solana.ValidPublicKey(group.Wallet) {
		observability.RecordDistributionError("wallet")
		return 0, false, fmt.Errorf("recipient wallet %s is not a valid public key", group.Wallet)
	}

	sig, err := e.transfer(ctx, group.Wallet, uint64(payout))
	if err != nil {
		observability.RecordDistributionError("transfer")
		// The failed attempt is recorded for audit; the claims stay
		// pending and the group is retried next run.
		e.recordFailure(ctx, group, payout, sig)
		return 0, false, err
	}

	dist := &domain.Distribution{
		RecipientWallet: group.Wallet,
		Amount:          payout,
		TxRef:           sig,
		Status:          domain.DistributionStatusCompleted,
		CompletedAt:     time.Now().UnixMilli(),
	}
	if err := e.settleClaims(ctx, group, legs, dist); err != nil {
		observability.RecordDistributionError("mark")
		return 0, false, fmt.Errorf("mark claims distributed (tx %s): %w", sig, err)
	}

	e.logger.Printf("[distribute] group %s/%s: paid %d lamports across %d claims, tx %s",
		group.Variant, group.Wallet, payout, len(group.ClaimIDs), sig)
	return payout, false, nil
}

// settleClaims retires one settled leg per member claim. Claims whose last
// outstanding leg this is are flipped in the same transaction as the payout
// record; claims still owed other legs get only the record. dist is nil for
// swept groups.
func (e *Executor) settleClaims(ctx context.Context, group *domain.RecipientGroup, legs map[int64]int, dist *domain.Distribution) error {
	var final []int64
	for _, id := range group.ClaimIDs {
		legs[id]--
		if legs[id] == 0 {
			final = append(final, id)
		}
	}

	if len(final) > 0 {
		return e.claims.MarkDistributed(ctx, final, dist)
	}
	if dist != nil {
		if _, err := e.dists.Insert(ctx, dist); err != nil {
			return err
		}
	}
	return nil
}

// transfer builds, signs, submits and confirms one system transfer from the
// treasury. Returns the signature once confirmed; on error the returned
// signature is whatever was submitted (possibly empty).
func (e *Executor) transfer(ctx context.Context, recipient string, lamports uint64) (string, error) {
	blockhash, err := e.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransferTransaction(e.signer, recipient, lamports, blockhash)
	if err != nil {
		return "", fmt.Errorf("build transfer: %w", err)
	}

	sig, err := e.rpc.SendTransaction(ctx, tx.Base64)
	if err != nil {
		return "", fmt.Errorf("submit transfer: %w", err)
	}

	if err := e.rpc.ConfirmTransaction(ctx, sig); err != nil {
		return sig, fmt.Errorf("confirm transfer: %w", err)
	}

	return sig, nil
}

// recordFailure writes a failed distribution row for audit. The member
// claims are deliberately untouched.
func (e *Executor) recordFailure(ctx context.Context, group *domain.RecipientGroup, payout int64, sig string) {
	failed := &domain.Distribution{
		RecipientWallet: group.Wallet,
		Amount:          payout,
		TxRef:           sig,
		Status:          domain.DistributionStatusFailed,
		CompletedAt:     time.Now().UnixMilli(),
	}
	if _, err := e.dists.Insert(ctx, failed); err != nil {
		e.logger.Printf("[distribute] group %s/%s: record failed payout: %v", group.Variant, group.Wallet, err)
	}
}
