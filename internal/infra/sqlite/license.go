package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pvplan/pvplan/internal/domain"
)

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Codes match case-insensitively: "ab12" and "AB12" are the same license.
		`CREATE TABLE IF NOT EXISTS license_codes (
			code       TEXT PRIMARY KEY COLLATE NOCASE,
			holder     TEXT NOT NULL DEFAULT '',
			issued_at  TEXT NOT NULL,
			expires_at TEXT,
			revoked    INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_license_holder ON license_codes(holder)`,
	}
}

var _ domain.LicenseStore = (*DB)(nil)

// ─── License Operations ─────────────────────────────────────────────────────

// UpsertLicense inserts or replaces a license code.
func (db *DB) UpsertLicense(l domain.License) error {
	code := strings.TrimSpace(l.Code)
	if code == "" {
		return domain.ErrEmptyCode
	}
	issued := l.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	var expires sql.NullString
	if !l.ExpiresAt.IsZero() {
		expires = sql.NullString{String: l.ExpiresAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := db.db.Exec(`
		INSERT INTO license_codes (code, holder, issued_at, expires_at, revoked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			holder     = excluded.holder,
			issued_at  = excluded.issued_at,
			expires_at = excluded.expires_at,
			revoked    = excluded.revoked
	`, code, l.Holder, issued.UTC().Format(time.RFC3339), expires, boolToInt(l.Revoked))
	if err != nil {
		return fmt.Errorf("upsert license: %w", err)
	}
	return nil
}

// LookupLicense finds a license by exact, case-insensitive code.
func (db *DB) LookupLicense(code string) (*domain.License, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrEmptyCode
	}

	var (
		l       domain.License
		issued  string
		expires sql.NullString
		revoked int
	)
	err := db.db.QueryRow(`
		SELECT code, holder, issued_at, expires_at, revoked
		FROM license_codes WHERE code = ?
	`, code).Scan(&l.Code, &l.Holder, &issued, &expires, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLicenseNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup license: %w", err)
	}

	l.IssuedAt, _ = time.Parse(time.RFC3339, issued)
	if expires.Valid {
		l.ExpiresAt, _ = time.Parse(time.RFC3339, expires.String)
	}
	l.Revoked = revoked == 1
	return &l, nil
}

// RevokeLicense marks a license as revoked.
func (db *DB) RevokeLicense(code string) error {
	res, err := db.db.Exec(`UPDATE license_codes SET revoked = 1 WHERE code = ?`, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("revoke license: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrLicenseNotFound, code)
	}
	return nil
}

// ListLicenses returns every license ordered by issue time, newest first.
func (db *DB) ListLicenses() ([]domain.License, error) {
	rows, err := db.db.Query(`
		SELECT code, holder, issued_at, expires_at, revoked
		FROM license_codes ORDER BY issued_at DESC, code
	`)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	var out []domain.License
	for rows.Next() {
		var (
			l       domain.License
			issued  string
			expires sql.NullString
			revoked int
		)
		if err := rows.Scan(&l.Code, &l.Holder, &issued, &expires, &revoked); err != nil {
			return nil, err
		}
		l.IssuedAt, _ = time.Parse(time.RFC3339, issued)
		if expires.Valid {
			l.ExpiresAt, _ = time.Parse(time.RFC3339, expires.String)
		}
		l.Revoked = revoked == 1
		out = append(out, l)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
