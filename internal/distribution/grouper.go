// Package distribution turns the undistributed claim backlog into payouts:
// grouping claims per payable wallet, guarding the treasury balance, and
// settling one transfer per recipient group.
package distribution

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"solana-fee-engine/internal/domain"
	"solana-fee-engine/internal/storage"
)

// Grouper builds recipient groups from the undistributed claim backlog.
type Grouper struct {
	claims   storage.FeeClaimStore
	pools    storage.PoolStore
	tokens   storage.TokenStore
	policies domain.PolicySet
	logger   *log.Logger
}

// NewGrouper creates a grouper.
func NewGrouper(
	claims storage.FeeClaimStore,
	pools storage.PoolStore,
	tokens storage.TokenStore,
	policies domain.PolicySet,
	logger *log.Logger,
) *Grouper {
	if logger == nil {
		logger = log.Default()
	}
	return &Grouper{
		claims:   claims,
		pools:    pools,
		tokens:   tokens,
		policies: policies,
		logger:   logger,
	}
}

// resolvedClaim pairs a claim with its resolved recipient.
type resolvedClaim struct {
	claim     *domain.FeeClaim
	variant   domain.ProductVariant
	recipient domain.Recipient
}

// Group loads undistributed claims and folds them into one group per
// (variant, wallet, share). A claim whose token resolves to several
// stakeholder wallets appears in each of their groups. Claims whose token
// is inactive, unknown, or has no payable wallet are left pending
// untouched; they surface again next run. The share fraction is applied
// later to each group's sum, never per claim.
func (g *Grouper) Group(ctx context.Context) ([]*domain.RecipientGroup, error) {
	backlog, err := g.claims.ListUndistributed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list undistributed claims: %w", err)
	}
	if len(backlog) == 0 {
		return nil, nil
	}

	// Claims reference pools; pools reference tokens. Resolve both maps
	// up front.
	poolIDs := lo.Uniq(lo.Map(backlog, func(c *domain.FeeClaim, _ int) string {
		return c.PoolID
	}))

	poolsByID := make(map[string]*domain.Pool, len(poolIDs))
	for _, id := range poolIDs {
		pool, err := g.pools.GetByID(ctx, id)
		if err != nil {
			g.logger.Printf("[distribute] pool %s: %v, leaving its claims pending", id, err)
			continue
		}
		poolsByID[id] = pool
	}

	tokenIDs := lo.Uniq(lo.FilterMap(backlog, func(c *domain.FeeClaim, _ int) (string, bool) {
		pool, ok := poolsByID[c.PoolID]
		if !ok {
			return "", false
		}
		return pool.TokenID, true
	}))

	tokensByID, err := g.tokens.GetByIDs(ctx, tokenIDs)
	if err != nil {
		return nil, fmt.Errorf("load tokens: %w", err)
	}

	var resolved []resolvedClaim
	for _, claim := range backlog {
		pool, ok := poolsByID[claim.PoolID]
		if !ok {
			continue
		}
		token, ok := tokensByID[pool.TokenID]
		if !ok {
			g.logger.Printf("[distribute] claim %d: token %s not found, leaving pending", claim.ID, pool.TokenID)
			continue
		}
		if token.Status != domain.TokenStatusActive {
			continue
		}

		policy, err := g.policies.ForVariant(token.Variant)
		if err != nil {
			g.logger.Printf("[distribute] claim %d: %v, leaving pending", claim.ID, err)
			continue
		}

		recipients := policy.Resolve(token)
		if len(recipients) == 0 {
			// No payable wallet under this variant's rules.
			continue
		}

		for _, recipient := range recipients {
			resolved = append(resolved, resolvedClaim{
				claim:     claim,
				variant:   token.Variant,
				recipient: recipient,
			})
		}
	}

	grouped := lo.GroupBy(resolved, func(rc resolvedClaim) string {
		return string(rc.variant) + "|" + rc.recipient.Wallet + "|" + strconv.Itoa(rc.recipient.ShareBps)
	})

	groups := lo.MapToSlice(grouped, func(_ string, members []resolvedClaim) *domain.RecipientGroup {
		return &domain.RecipientGroup{
			Variant:  members[0].variant,
			Wallet:   members[0].recipient.Wallet,
			ShareBps: members[0].recipient.ShareBps,
			ClaimIDs: lo.Map(members, func(rc resolvedClaim, _ int) int64 {
				return rc.claim.ID
			}),
			TotalAmount: lo.SumBy(members, func(rc resolvedClaim) int64 {
				return rc.claim.Amount
			}),
		}
	})

	// Deterministic payout order.
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Variant != groups[j].Variant {
			return groups[i].Variant < groups[j].Variant
		}
		if groups[i].Wallet != groups[j].Wallet {
			return groups[i].Wallet < groups[j].Wallet
		}
		return groups[i].ShareBps < groups[j].ShareBps
	})

	return groups, nil
}
