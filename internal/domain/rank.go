package domain

import (
	"fmt"
	"strings"
)

// ─── Rank ───────────────────────────────────────────────────────────────────
// Ranks are totally ordered: a higher value is a higher rank. The table below
// is exhaustive; looking up a value outside it is an integration bug and
// panics instead of falling back to a default discount.

// Rank is a marketing-plan qualification level.
type Rank int

const (
	RankMember Rank = iota
	RankSeniorConsultant
	RankSuccessBuilder
	RankSupervisor
	RankWorldTeam
	RankGET
	RankGET25
	RankMillionaire
	RankMillionaire75
	RankPresident
)

// RankInfo is one row of the rank table.
type RankInfo struct {
	Rank                   Rank   `json:"rank"`
	Name                   string `json:"name"`
	DiscountPercent        int    `json:"discount_percent"`
	ProductionBonusPercent int    `json:"production_bonus_percent"`
	RoyaltyThreshold       int    `json:"royalty_threshold,omitempty"` // 0 = volume-qualified rank
	QualificationTime      string `json:"qualification_time"`
}

var rankTable = [...]RankInfo{
	{RankMember, "Member", 25, 0, 0, "immediate"},
	{RankSeniorConsultant, "Senior Consultant", 35, 0, 0, "2 months (accumulated)"},
	{RankSuccessBuilder, "Success Builder", 42, 0, 0, "1 month (single order)"},
	{RankSupervisor, "Supervisor", 50, 0, 0, "12 months or 2 months"},
	{RankWorldTeam, "World Team", 50, 0, 500, "4 consecutive months"},
	{RankGET, "GET", 50, 2, 1000, "3 consecutive months"},
	{RankGET25, "GET 2.5", 50, 2, 2500, "3 consecutive months"},
	{RankMillionaire, "Millionaire", 50, 4, 4000, "3 consecutive months"},
	{RankMillionaire75, "Millionaire 7.5", 50, 4, 7500, "3 consecutive months"},
	{RankPresident, "President", 50, 6, 10000, "3 consecutive months"},
}

// rankAliases maps normalized alternative names onto ranks.
var rankAliases = map[string]Rank{
	"qualifiedproducer": RankSuccessBuilder,
	"sb":                RankSuccessBuilder,
	"sc":                RankSeniorConsultant,
	"sup":               RankSupervisor,
	"wt":                RankWorldTeam,
}

// Valid reports whether r is a member of the rank table.
func (r Rank) Valid() bool {
	return r >= RankMember && int(r) < len(rankTable)
}

// Info returns the rank's table row. It panics for unknown ranks.
func (r Rank) Info() RankInfo {
	if !r.Valid() {
		panic(fmt.Sprintf("domain: rank %d is not in the rank table", int(r)))
	}
	return rankTable[r]
}

// String returns the display name of the rank.
func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", int(r))
	}
	return rankTable[r].Name
}

// Discount returns the wholesale discount percentage for the rank.
func (r Rank) Discount() int { return r.Info().DiscountPercent }

// ProductionBonus returns the production bonus percentage (0 below GET).
func (r Rank) ProductionBonus() int { return r.Info().ProductionBonusPercent }

// QualificationTime returns how long the rank takes to qualify for.
func (r Rank) QualificationTime() string { return r.Info().QualificationTime }

// RoyaltyThreshold returns the royalty points required for a
// royalty-gated rank. ok is false for volume-qualified ranks.
func (r Rank) RoyaltyThreshold() (points int, ok bool) {
	info := r.Info()
	return info.RoyaltyThreshold, info.RoyaltyThreshold > 0
}

// Next returns the successor rank, or false at the top of the table.
func (r Rank) Next() (Rank, bool) {
	r.Info()
	if r == RankPresident {
		return r, false
	}
	return r + 1, true
}

// Ranks returns the full rank table in ascending order.
func Ranks() []RankInfo {
	out := make([]RankInfo, len(rankTable))
	copy(out, rankTable[:])
	return out
}

// ParseRank resolves a rank name. Matching ignores case, spaces,
// underscores and hyphens, so "get_2.5" and "GET 2.5" are equivalent.
func ParseRank(s string) (Rank, error) {
	key := normalizeRankName(s)
	if key == "" {
		return 0, fmt.Errorf("%w: empty name", ErrUnknownRank)
	}
	for _, info := range rankTable {
		if normalizeRankName(info.Name) == key {
			return info.Rank, nil
		}
	}
	if r, ok := rankAliases[key]; ok {
		return r, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRank, s)
}

func normalizeRankName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// MarshalText encodes the rank by name (JSON and TOML).
func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRank, int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a rank name.
func (r *Rank) UnmarshalText(b []byte) error {
	parsed, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ─── Rank Setting ───────────────────────────────────────────────────────────

// RankSetting says how a downline member's rank is obtained: derived from
// its volume at compute time, or pinned manually by the user. The zero
// value is Derived.
type RankSetting struct {
	rank   Rank
	manual bool
}

// DerivedRank returns a setting that derives the rank from volume.
func DerivedRank() RankSetting { return RankSetting{} }

// ManualRank pins a rank regardless of volume.
func ManualRank(r Rank) RankSetting { return RankSetting{rank: r, manual: true} }

// Manual returns the pinned rank, if any.
func (s RankSetting) Manual() (Rank, bool) { return s.rank, s.manual }

// IsManual reports whether the rank is pinned.
func (s RankSetting) IsManual() bool { return s.manual }

// String returns "auto" for derived settings, else the rank name.
func (s RankSetting) String() string {
	if !s.manual {
		return "auto"
	}
	return s.rank.String()
}

// Equal reports whether two settings resolve the same way.
func (s RankSetting) Equal(o RankSetting) bool {
	return s.manual == o.manual && (!s.manual || s.rank == o.rank)
}

// MarshalText encodes "auto" or the pinned rank name.
func (s RankSetting) MarshalText() ([]byte, error) {
	if !s.manual {
		return []byte("auto"), nil
	}
	return s.rank.MarshalText()
}

// UnmarshalText accepts "", "auto" or "derived" for derived ranks and any
// rank name for a manual pin.
func (s *RankSetting) UnmarshalText(b []byte) error {
	switch normalizeRankName(string(b)) {
	case "", "auto", "derived":
		*s = DerivedRank()
		return nil
	}
	r, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*s = ManualRank(r)
	return nil
}
