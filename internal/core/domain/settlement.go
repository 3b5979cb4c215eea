package domain

// Settlement math. All amounts are integers in the token's smallest unit
// (base 10^9). The functions are pure and monotonic in views and likes,
// which is what makes "pay only for growth" hold: a later report with
// larger inputs can never compute a smaller gross due.

// EffectiveViews returns views plus likes weighted by the campaign
// multiplier. This is the billable unit for payout.
func EffectiveViews(views, likes, likeWeight int64) int64 {
	return views + likes*likeWeight
}

// GrossDue returns the total payout implied by the reported metrics:
// floor(effectiveViews / 1000) * cpm. Callers must supply non-negative
// inputs; validation happens upstream.
func GrossDue(views, likes, likeWeight, cpm int64) int64 {
	return EffectiveViews(views, likes, likeWeight) / 1000 * cpm
}
