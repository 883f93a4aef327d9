package compensation

import "github.com/pvplan/pvplan/internal/domain"

// RoyaltyDiscountThreshold is the discount at which a rank is
// Supervisor-equivalent: the root earns royalties only at or above it, and
// only legs at or above it generate royalties.
const RoyaltyDiscountThreshold = 50

// royaltyScale maps personal volume floors to royalty percentages,
// highest floor first.
var royaltyScale = []struct {
	minVolume float64
	percent   int
}{
	{2500, 5},
	{2000, 4},
	{1500, 3},
	{1000, 2},
	{500, 1},
}

// RoyaltyPercent returns the royalty percentage a root with the given
// personal volume earns. The scale depends on personal volume, not rank.
func RoyaltyPercent(personalVolume float64) int {
	v := domain.ClampVolume(personalVolume)
	for _, step := range royaltyScale {
		if v >= step.minVolume {
			return step.percent
		}
	}
	return 0
}

// Earnings is the four-component breakdown for one rank hypothesis.
type Earnings struct {
	Retail                 float64 `json:"retail"`
	Wholesale              float64 `json:"wholesale"`
	Royalty                float64 `json:"royalty"`
	ProductionBonus        float64 `json:"production_bonus"`
	RoyaltyPercent         int     `json:"royalty_percent"` // applied rate, 0 when not eligible
	ProductionBonusPercent int     `json:"production_bonus_percent"`
}

// Total sums the four components.
func (e Earnings) Total() float64 {
	return e.Retail + e.Wholesale + e.Royalty + e.ProductionBonus
}

// calculate prices the downline as if the root held rank. When contrib is
// non-nil it must be parallel to nodes and receives per-member amounts.
//
//	retail     = turnover(pv) × discount
//	wholesale  = Σ turnover(n) × max(0, discount − discount(n))
//	royalty    = Σ turnover(n) × royalty%(pv)   for discount(n) ≥ 50, if discount ≥ 50
//	production = Σ turnover(n) × bonus%(rank)   for every n
func calculate(rank domain.Rank, personal float64, nodes []node, contrib []domain.Contribution) Earnings {
	discount := rank.Discount()

	e := Earnings{ProductionBonusPercent: rank.ProductionBonus()}
	if discount >= RoyaltyDiscountThreshold {
		e.RoyaltyPercent = RoyaltyPercent(personal)
	}
	e.Retail = domain.Turnover(personal) * float64(discount) / 100

	for i, n := range nodes {
		turnover := n.turnover()
		memberDiscount := n.rank.Discount()

		var wholesale, royalty, bonus float64
		if margin := discount - memberDiscount; margin > 0 {
			wholesale = turnover * float64(margin) / 100
		}
		if e.RoyaltyPercent > 0 && memberDiscount >= RoyaltyDiscountThreshold {
			royalty = turnover * float64(e.RoyaltyPercent) / 100
		}
		if e.ProductionBonusPercent > 0 {
			bonus = turnover * float64(e.ProductionBonusPercent) / 100
		}

		e.Wholesale += wholesale
		e.Royalty += royalty
		e.ProductionBonus += bonus

		if contrib != nil {
			contrib[i].Wholesale = wholesale
			contrib[i].Royalty = royalty
			contrib[i].ProductionBonus = bonus
		}
	}
	return e
}

// Calculate prices an input snapshot at an explicit root rank, bypassing
// rank resolution. Member ranks are still resolved per member.
func Calculate(in domain.PlanInput, rank domain.Rank) Earnings {
	return calculate(rank, domain.ClampVolume(in.PersonalVolume), flatten(in.Downline), nil)
}
