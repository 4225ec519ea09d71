// Package fees computes the money split for a booking: what the buyer
// pays, what the host receives, what the platform keeps, and the referral
// commission carved out of the host's share.
package fees

import "math"

// Rates are percentages in [0,100]. Referral is 0 when the event does not
// allow referrals or no referral link is attached.
type Rates struct {
	UserFee     float64
	HostFee     float64
	PlatformFee float64
	CGST        float64
	SGST        float64
	Referral    float64
}

type Breakdown struct {
	Base                   float64
	UserFee                float64
	HostFee                float64
	PlatformFee            float64
	Tax                    float64
	UserPays               float64
	HostGetsBeforeReferral float64
	ReferralAmount         float64
	HostGets               float64
	AdminGets              float64
}

// Calculate is pure. It must be fed the same base price at order-creation
// time and at settlement time, otherwise the two computations diverge.
func Calculate(base float64, r Rates) Breakdown {
	b := Breakdown{Base: base}
	b.UserFee = base * r.UserFee / 100
	b.HostFee = base * r.HostFee / 100
	b.PlatformFee = base * r.PlatformFee / 100
	b.Tax = base * (r.CGST + r.SGST) / 100
	b.UserPays = base + b.UserFee + b.Tax
	b.HostGetsBeforeReferral = base - b.HostFee
	b.ReferralAmount = b.HostGetsBeforeReferral * r.Referral / 100
	b.HostGets = b.HostGetsBeforeReferral - b.ReferralAmount
	b.AdminGets = b.UserFee + b.HostFee + b.PlatformFee
	return b
}

// Line is one package selection priced at its own base.
type Line struct {
	Base     float64
	Quantity int
}

// Aggregate computes per package at its own price and sums the per-unit
// results across quantities. A single blended rate over the pooled total
// would misprice mixed selections.
func Aggregate(lines []Line, r Rates) Breakdown {
	var agg Breakdown
	for _, l := range lines {
		unit := Calculate(l.Base, r)
		q := float64(l.Quantity)
		agg.Base += unit.Base * q
		agg.UserFee += unit.UserFee * q
		agg.HostFee += unit.HostFee * q
		agg.PlatformFee += unit.PlatformFee * q
		agg.Tax += unit.Tax * q
		agg.UserPays += unit.UserPays * q
		agg.HostGetsBeforeReferral += unit.HostGetsBeforeReferral * q
		agg.ReferralAmount += unit.ReferralAmount * q
		agg.HostGets += unit.HostGets * q
		agg.AdminGets += unit.AdminGets * q
	}
	return agg
}

// Round2 rounds to two decimals for wire boundaries; internal arithmetic
// stays unrounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
