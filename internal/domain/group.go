package domain

// RecipientGroup is the derived unit of payout: all undistributed claims
// that resolve to the same payable wallet under one product variant.
// Not persisted; rebuilt from the claim backlog on every distribution run.
type RecipientGroup struct {
	Variant  ProductVariant
	Wallet   string
	ShareBps int

	ClaimIDs    []int64
	TotalAmount int64 // summed claimed lamports across member claims
}

// PayoutAmount applies the group's share fraction to the summed claimed
// amount. The share is applied to the sum, not summed per claim, so rounding
// never drifts across many small claims. Integer division floors.
func (g *RecipientGroup) PayoutAmount() int64 {
	return g.TotalAmount * int64(g.ShareBps) / 10000
}
