package compensation

import "github.com/pvplan/pvplan/internal/domain"

// Volume thresholds for the ranks below the royalty-gated ones.
const (
	SeniorConsultantVolume = 500
	SuccessBuilderVolume   = 1000
	SupervisorVolume       = 4000
)

// DeriveMemberRank maps a downline member's own volume to a base rank.
func DeriveMemberRank(volume float64) domain.Rank {
	v := domain.ClampVolume(volume)
	switch {
	case v >= SupervisorVolume:
		return domain.RankSupervisor
	case v >= SuccessBuilderVolume:
		return domain.RankSuccessBuilder
	case v >= SeniorConsultantVolume:
		return domain.RankSeniorConsultant
	default:
		return domain.RankMember
	}
}

// ResolveMember returns the manual rank when one is pinned, else the rank
// derived from the member's volume. An unknown pinned rank panics.
func ResolveMember(m domain.Member) domain.Rank {
	if r, ok := m.Rank.Manual(); ok {
		r.Info()
		return r
	}
	return DeriveMemberRank(m.Volume)
}

// ResolveRoot classifies the root actor. The royalty-point track is checked
// first, top rank down; only when no royalty threshold is met do volumes
// decide. Success Builder looks at personal volume alone.
func ResolveRoot(personalVolume, totalVolume float64, royaltyPoints int) domain.Rank {
	for r := domain.RankPresident; r >= domain.RankWorldTeam; r-- {
		if th, ok := r.RoyaltyThreshold(); ok && royaltyPoints >= th {
			return r
		}
	}

	personal := domain.ClampVolume(personalVolume)
	total := domain.ClampVolume(totalVolume)
	switch {
	case total >= SupervisorVolume:
		return domain.RankSupervisor
	case personal >= SuccessBuilderVolume:
		return domain.RankSuccessBuilder
	case total >= SeniorConsultantVolume:
		return domain.RankSeniorConsultant
	default:
		return domain.RankMember
	}
}
