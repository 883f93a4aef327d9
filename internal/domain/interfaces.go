package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LicenseStore abstracts the key-value license registry.
type LicenseStore interface {
	UpsertLicense(l License) error
	// LookupLicense matches the code case-insensitively.
	LookupLicense(code string) (*License, error)
	RevokeLicense(code string) error
	ListLicenses() ([]License, error)
}
