package compensation

import "github.com/pvplan/pvplan/internal/domain"

// Compute runs the full pipeline on an input snapshot. It is pure: the
// input is only read, nothing is cached, and concurrent calls are safe.
// Negative volumes are treated as zero.
func Compute(in domain.PlanInput) domain.CompensationResult {
	personal := domain.ClampVolume(in.PersonalVolume)
	nodes := flatten(in.Downline)
	vols := aggregate(personal, nodes)
	rank := ResolveRoot(personal, vols.TotalVolume, vols.RoyaltyPoints)

	contrib := make([]domain.Contribution, len(nodes))
	for i, n := range nodes {
		contrib[i] = domain.Contribution{
			MemberID: n.member.ID,
			Name:     n.member.Name,
			Depth:    n.depth,
			Rank:     n.rank,
			Volume:   n.volume,
			Turnover: n.turnover(),
		}
	}
	e := calculate(rank, personal, nodes, contrib)

	info := rank.Info()
	return domain.CompensationResult{
		Rank:                   rank,
		DiscountPercent:        info.DiscountPercent,
		RoyaltyPercent:         e.RoyaltyPercent,
		ProductionBonusPercent: e.ProductionBonusPercent,
		QualificationTime:      info.QualificationTime,

		RetailProfit:    e.Retail,
		WholesaleProfit: e.Wholesale,
		RoyaltyEarnings: e.Royalty,
		ProductionBonus: e.ProductionBonus,
		TotalEarnings:   e.Total(),

		PersonalVolume:      personal,
		Turnover:            domain.Turnover(personal),
		TotalVolume:         vols.TotalVolume,
		SupervisorLegVolume: vols.SupervisorLegVolume,
		RoyaltyPoints:       vols.RoyaltyPoints,
		DownlineMembers:     vols.Members,

		Next:          project(rank, vols, nodes),
		Contributions: contrib,
	}
}
