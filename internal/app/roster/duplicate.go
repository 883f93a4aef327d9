package roster

import (
	"fmt"

	"github.com/pvplan/pvplan/internal/domain"
)

// MaxGeneratedMembers caps the size of a generated duplication network.
const MaxGeneratedMembers = 100_000

// DuplicationPlan describes a uniform network: Directs recruits on the
// first level, each member recruiting PerMember people, Depth levels deep.
type DuplicationPlan struct {
	Directs   int                `json:"directs"`
	PerMember int                `json:"per_member"`
	Depth     int                `json:"depth"`
	Volume    float64            `json:"volume"`
	Rank      domain.RankSetting `json:"rank"`
}

// Size returns how many members the plan generates, or -1 when it would
// exceed MaxGeneratedMembers.
func (p DuplicationPlan) Size() int {
	if p.Directs <= 0 || p.Depth <= 0 {
		return 0
	}
	total, level := 0, p.Directs
	for d := 1; d <= p.Depth; d++ {
		if level > MaxGeneratedMembers-total {
			return -1
		}
		total += level
		if d == p.Depth || p.PerMember <= 0 {
			break
		}
		if level > MaxGeneratedMembers/p.PerMember {
			return -1
		}
		level *= p.PerMember
	}
	return total
}

// Duplicate generates the network described by p.
func Duplicate(p DuplicationPlan) ([]domain.Member, error) {
	if p.Directs < 0 || p.PerMember < 0 || p.Depth < 0 {
		return nil, fmt.Errorf("%w: negative duplication parameter", domain.ErrInvalidRoster)
	}
	if p.Size() < 0 {
		return nil, fmt.Errorf("%w: duplication exceeds %d members", domain.ErrInvalidRoster, MaxGeneratedMembers)
	}
	if p.Directs == 0 || p.Depth == 0 {
		return nil, nil
	}

	var seq int
	var build func(depth, n int) []domain.Member
	build = func(depth, n int) []domain.Member {
		out := make([]domain.Member, n)
		for i := range out {
			seq++
			m := NewMember(fmt.Sprintf("L%d-%d", depth, seq))
			m.Volume = domain.ClampVolume(p.Volume)
			m.Rank = p.Rank
			if depth < p.Depth && p.PerMember > 0 {
				m.Children = build(depth+1, p.PerMember)
			}
			out[i] = m
		}
		return out
	}
	return build(1, p.Directs), nil
}
