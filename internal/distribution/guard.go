package distribution

import (
	"context"
	"fmt"
	"log"

	"solana-fee-engine/internal/observability"
	"solana-fee-engine/internal/solana"
)

// Guard is the treasury balance pre-check: when the treasury cannot safely
// cover payouts plus transaction fees, the whole distribution run becomes a
// no-op rather than draining the account mid-batch.
type Guard struct {
	rpc            solana.RPCClient
	treasuryPubkey string
	minLamports    uint64
	logger         *log.Logger
}

// NewGuard creates a treasury guard. minLamports is the safety margin the
// treasury must hold before any payout is attempted.
func NewGuard(rpc solana.RPCClient, treasuryPubkey string, minLamports uint64, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.Default()
	}
	return &Guard{
		rpc:            rpc,
		treasuryPubkey: treasuryPubkey,
		minLamports:    minLamports,
		logger:         logger,
	}
}

// Check reads the treasury balance and reports whether distribution may
// proceed. A balance read failure blocks the run: paying out against an
// unknown balance is worse than waiting one interval.
func (g *Guard) Check(ctx context.Context) (bool, uint64, error) {
	balance, err := g.rpc.GetBalance(ctx, g.treasuryPubkey)
	if err != nil {
		return false, 0, fmt.Errorf("read treasury balance: %w", err)
	}

	observability.UpdateTreasuryBalance(balance)

	if balance < g.minLamports {
		g.logger.Printf("[distribute] treasury balance %d below safety margin %d, skipping run",
			balance, g.minLamports)
		observability.RecordGuardAbort()
		return false, balance, nil
	}

	return true, balance, nil
}
