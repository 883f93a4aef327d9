package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Roster errors
	ErrUnknownRank    = errors.New("unknown rank")
	ErrMemberNotFound = errors.New("downline member not found")
	ErrInvalidRoster  = errors.New("invalid roster")
	ErrRosterFormat   = errors.New("unsupported roster format")

	// License errors
	ErrLicenseNotFound = errors.New("license code not found")
	ErrLicenseRevoked  = errors.New("license code revoked")
	ErrLicenseExpired  = errors.New("license code expired")
	ErrEmptyCode       = errors.New("license code is empty")
)
