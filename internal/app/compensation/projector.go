package compensation

import "github.com/pvplan/pvplan/internal/domain"

// project prices current volumes at the successor of current. It returns
// nil when current is already the top rank.
func project(current domain.Rank, v Volumes, nodes []node) *domain.NextRank {
	next, ok := current.Next()
	if !ok {
		return nil
	}

	gap, unit := Gap(next, v)
	return &domain.NextRank{
		Rank:              next,
		DiscountPercent:   next.Discount(),
		Gap:               gap,
		GapUnit:           unit,
		PotentialEarnings: calculate(next, v.PersonalVolume, nodes, nil).Total(),
		QualificationTime: next.QualificationTime(),
	}
}

// Gap returns how far the given volumes are from qualifying for target,
// floored at zero. Royalty-gated ranks are measured in royalty points,
// the others in volume points against the same figure the resolver uses.
func Gap(target domain.Rank, v Volumes) (float64, domain.GapUnit) {
	if th, ok := target.RoyaltyThreshold(); ok {
		return floorZero(float64(th - v.RoyaltyPoints)), domain.GapRoyaltyPoints
	}

	switch target {
	case domain.RankSupervisor:
		return floorZero(SupervisorVolume - v.TotalVolume), domain.GapVolumePoints
	case domain.RankSuccessBuilder:
		return floorZero(SuccessBuilderVolume - v.PersonalVolume), domain.GapVolumePoints
	case domain.RankSeniorConsultant:
		return floorZero(SeniorConsultantVolume - v.TotalVolume), domain.GapVolumePoints
	default:
		return 0, domain.GapVolumePoints
	}
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
