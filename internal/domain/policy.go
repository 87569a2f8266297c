package domain

import "fmt"

// ProductVariant identifies one of the launch products sharing this engine.
// Variants differ only in share percentages, treasury key and recipient
// resolution; the pipeline itself is shared.
type ProductVariant string

// Recipient is a resolved payable wallet with its share fraction.
type Recipient struct {
	Wallet   string
	ShareBps int
}

// RecipientResolver maps a token to the set of wallets owed a share of its
// claimed fees. An empty set means no wallet is payable under the variant's
// rules. Wallets in the returned set are unique; a wallet owed under two
// roles carries the summed share.
type RecipientResolver func(t *Token) []Recipient

// DistributionPolicy parameterizes the distribution pipeline for one
// product variant: share table, treasury wallet and recipient resolution.
type DistributionPolicy struct {
	Variant        ProductVariant
	Shares         ShareTable
	TreasuryWallet string
	Resolve        RecipientResolver
}

// AgentRecipientResolver implements the default stakeholder rules. Each
// class collects its own share of the same claim: the creator wallet at the
// creator share, the owning agent at the agent share, and the trading-agent
// share to either the independent owner's wallet or the trading agent's own
// wallet. Tokens with a configured share table use it; an all-zero table
// falls back to the variant defaults. Tokens with no payable wallet at all
// resolve to an empty set and their claims stay pending.
func AgentRecipientResolver(defaults ShareTable) RecipientResolver {
	return func(t *Token) []Recipient {
		shares := t.Shares
		if shares == (ShareTable{}) {
			shares = defaults
		}

		var set []Recipient
		add := func(wallet string, bps int) {
			if wallet == "" || bps <= 0 {
				return
			}
			for i := range set {
				if set[i].Wallet == wallet {
					set[i].ShareBps += bps
					return
				}
			}
			set = append(set, Recipient{Wallet: wallet, ShareBps: bps})
		}

		add(t.CreatorWallet, shares.CreatorBps)
		if t.AgentWallet != nil {
			add(*t.AgentWallet, shares.AgentBps)
		}
		switch {
		case t.TradingAgentOwned && t.TradingAgentOwnerWallet != nil && *t.TradingAgentOwnerWallet != "":
			add(*t.TradingAgentOwnerWallet, shares.TradingAgentBps)
		case t.TradingAgentWallet != nil:
			add(*t.TradingAgentWallet, shares.TradingAgentBps)
		}
		return set
	}
}

// PolicySet selects a DistributionPolicy per product variant at call time.
type PolicySet map[ProductVariant]DistributionPolicy

// ForVariant returns the policy for a variant.
func (ps PolicySet) ForVariant(v ProductVariant) (DistributionPolicy, error) {
	p, ok := ps[v]
	if !ok {
		return DistributionPolicy{}, fmt.Errorf("no distribution policy for variant %q", v)
	}
	return p, nil
}
