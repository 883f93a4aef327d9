// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture and depends on nothing.
package domain

import (
	"math"
	"time"
)

// CurrencyPerVolumePoint converts volume points into turnover (1 PV = 2).
const CurrencyPerVolumePoint = 2

// MaxVolume caps a single volume figure so derived integer points stay
// representable.
const MaxVolume = 1e12

// ClampVolume returns v, 0 for negative, NaN and infinite volumes, or
// MaxVolume when v exceeds it.
func ClampVolume(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Min(v, MaxVolume)
}

// Turnover converts a volume into currency.
func Turnover(volume float64) float64 {
	return ClampVolume(volume) * CurrencyPerVolumePoint
}

// ─── Roster Types ───────────────────────────────────────────────────────────

// Member is one recruit in the downline. Children are owned by value so a
// roster can be copied and edited without aliasing the original.
type Member struct {
	ID       string      `json:"id" toml:"id" yaml:"id"`
	Name     string      `json:"name" toml:"name" yaml:"name"`
	Rank     RankSetting `json:"rank" toml:"rank" yaml:"rank"`
	Volume   float64     `json:"volume" toml:"volume" yaml:"volume"` // volume points (PV)
	Children []Member    `json:"children,omitempty" toml:"children,omitempty" yaml:"children,omitempty"`
}

// PlanInput is a snapshot of the root actor: its own volume and its
// downline forest.
type PlanInput struct {
	PersonalVolume float64  `json:"personal_volume" toml:"personal_volume" yaml:"personal_volume"`
	Downline       []Member `json:"downline" toml:"downline" yaml:"downline"`
}

// ─── Result Types ───────────────────────────────────────────────────────────

// GapUnit names the quantity a next-rank gap is measured in.
type GapUnit string

const (
	GapVolumePoints  GapUnit = "volume_points"
	GapRoyaltyPoints GapUnit = "royalty_points"
)

// NextRank projects earnings at the successor rank on current volumes.
type NextRank struct {
	Rank              Rank    `json:"rank"`
	DiscountPercent   int     `json:"discount_percent"`
	Gap               float64 `json:"gap"`
	GapUnit           GapUnit `json:"gap_unit"`
	PotentialEarnings float64 `json:"potential_earnings"`
	QualificationTime string  `json:"qualification_time"`
}

// Contribution is what a single downline member earns the root.
type Contribution struct {
	MemberID        string  `json:"member_id"`
	Name            string  `json:"name"`
	Depth           int     `json:"depth"` // 1 = direct recruit
	Rank            Rank    `json:"rank"`
	Volume          float64 `json:"volume"`
	Turnover        float64 `json:"turnover"`
	Wholesale       float64 `json:"wholesale"`
	Royalty         float64 `json:"royalty"`
	ProductionBonus float64 `json:"production_bonus"`
}

// Total returns the member's combined contribution.
func (c Contribution) Total() float64 {
	return c.Wholesale + c.Royalty + c.ProductionBonus
}

// CompensationResult is the full, derived outcome of one computation.
type CompensationResult struct {
	Rank                   Rank    `json:"rank"`
	DiscountPercent        int     `json:"discount_percent"`
	RoyaltyPercent         int     `json:"royalty_percent"`
	ProductionBonusPercent int     `json:"production_bonus_percent"`
	QualificationTime      string  `json:"qualification_time"`

	RetailProfit    float64 `json:"retail_profit"`
	WholesaleProfit float64 `json:"wholesale_profit"`
	RoyaltyEarnings float64 `json:"royalty_earnings"`
	ProductionBonus float64 `json:"production_bonus"`
	TotalEarnings   float64 `json:"total_earnings"`

	PersonalVolume      float64 `json:"personal_volume"`
	Turnover            float64 `json:"turnover"`
	TotalVolume         float64 `json:"total_volume"`
	SupervisorLegVolume float64 `json:"supervisor_leg_volume"`
	RoyaltyPoints       int     `json:"royalty_points"`
	DownlineMembers     int     `json:"downline_members"`

	Next          *NextRank      `json:"next,omitempty"` // nil at the top rank
	Contributions []Contribution `json:"contributions,omitempty"`
}

// LevelSummary aggregates one depth of the downline.
type LevelSummary struct {
	Depth    int     `json:"depth"`
	Members  int     `json:"members"`
	Volume   float64 `json:"volume"`
	Turnover float64 `json:"turnover"`
}

// ─── License Types ──────────────────────────────────────────────────────────

// License is an access code held by the external license registry.
type License struct {
	Code      string    `json:"code"`
	Holder    string    `json:"holder"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // zero = never
	Revoked   bool      `json:"revoked"`
}

// Expired reports whether the license has lapsed at now.
func (l License) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && !now.Before(l.ExpiresAt)
}

// LicenseStatus is the answer to a license lookup.
type LicenseStatus struct {
	Code      string     `json:"code"`
	Valid     bool       `json:"valid"`
	Reason    string     `json:"reason,omitempty"`
	Holder    string     `json:"holder,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
