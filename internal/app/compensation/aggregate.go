// Package compensation is the marketing-plan engine: it resolves ranks and
// computes earnings for a root actor over its downline tree.
//
// Pipeline (one pass per Compute call, no retained state):
//  1. Flatten the downline and resolve every member's rank
//  2. Aggregate volumes and royalty points
//  3. Resolve the root rank (royalty-point track, then volume track)
//  4. Compute retail, wholesale, royalty and production bonus
//  5. Project earnings at the next rank
package compensation

import (
	"math"

	"github.com/pvplan/pvplan/internal/domain"
)

// RoyaltyPointPercent is the share of Supervisor-leg volume that accrues
// as royalty points.
const RoyaltyPointPercent = 5

// ─── Flattened Downline ─────────────────────────────────────────────────────

// node is a resolved, read-only view of one downline member.
type node struct {
	member *domain.Member
	depth  int
	rank   domain.Rank
	volume float64
}

func (n node) turnover() float64 { return n.volume * domain.CurrencyPerVolumePoint }

// flatten walks the forest depth-first in roster order. It uses an explicit
// stack so arbitrarily deep rosters cannot exhaust the goroutine stack.
func flatten(downline []domain.Member) []node {
	type frame struct {
		m     *domain.Member
		depth int
	}

	stack := make([]frame, 0, len(downline))
	for i := len(downline) - 1; i >= 0; i-- {
		stack = append(stack, frame{&downline[i], 1})
	}

	var out []node
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		out = append(out, node{
			member: f.m,
			depth:  f.depth,
			rank:   ResolveMember(*f.m),
			volume: domain.ClampVolume(f.m.Volume),
		})
		for i := len(f.m.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{&f.m.Children[i], f.depth + 1})
		}
	}
	return out
}

// ─── Volume Aggregates ──────────────────────────────────────────────────────

// Volumes holds the tree-wide figures rank resolution depends on.
type Volumes struct {
	PersonalVolume      float64 `json:"personal_volume"`
	DownlineVolume      float64 `json:"downline_volume"`
	TotalVolume         float64 `json:"total_volume"` // personal + downline
	SupervisorLegVolume float64 `json:"supervisor_leg_volume"`
	RoyaltyPoints       int     `json:"royalty_points"`
	DownlineTurnover    float64 `json:"downline_turnover"`
	Members             int     `json:"members"`
}

// Aggregate computes the volume figures for an input snapshot.
func Aggregate(in domain.PlanInput) Volumes {
	return aggregate(domain.ClampVolume(in.PersonalVolume), flatten(in.Downline))
}

func aggregate(personal float64, nodes []node) Volumes {
	v := Volumes{PersonalVolume: personal, Members: len(nodes)}
	for _, n := range nodes {
		v.DownlineVolume += n.volume
		v.DownlineTurnover += n.turnover()
		if n.rank >= domain.RankSupervisor {
			v.SupervisorLegVolume += n.volume
		}
	}
	v.TotalVolume = personal + v.DownlineVolume
	v.RoyaltyPoints = RoyaltyPoints(v.SupervisorLegVolume)
	return v
}

// RoyaltyPoints converts Supervisor-leg volume into whole royalty points.
// Points are floored, never rounded.
func RoyaltyPoints(supervisorLegVolume float64) int {
	v := domain.ClampVolume(supervisorLegVolume)
	return int(math.Floor(v * RoyaltyPointPercent / 100))
}

// SubtreeVolume returns a member's volume plus that of all its descendants.
func SubtreeVolume(m domain.Member) float64 {
	var total float64
	for _, n := range flatten([]domain.Member{m}) {
		total += n.volume
	}
	return total
}

// Levels summarizes the downline per depth (1 = direct recruits).
func Levels(downline []domain.Member) []domain.LevelSummary {
	var out []domain.LevelSummary
	for _, n := range flatten(downline) {
		for len(out) < n.depth {
			out = append(out, domain.LevelSummary{Depth: len(out) + 1})
		}
		lvl := &out[n.depth-1]
		lvl.Members++
		lvl.Volume += n.volume
		lvl.Turnover += n.turnover()
	}
	return out
}
