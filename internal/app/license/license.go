// Package license answers "is this access code valid?" on top of a
// domain.LicenseStore. The compensation engine never consults it; the CLI
// and HTTP layers gate access with it when the registry is enabled.
package license

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pvplan/pvplan/internal/domain"
)

// Status reasons reported for invalid codes.
const (
	ReasonNotFound = "not_found"
	ReasonRevoked  = "revoked"
	ReasonExpired  = "expired"
	ReasonEmpty    = "empty"
)

// Service manages license codes.
type Service struct {
	store domain.LicenseStore
	now   func() time.Time
	cache *expirable.LRU[string, *domain.License] // nil value = known missing
}

// NewService creates a license service backed by store.
func NewService(store domain.LicenseStore) *Service {
	return &Service{store: store, now: time.Now}
}

// WithCache keeps up to size lookups for ttl. Edits made through this
// service invalidate their entry; edits made elsewhere (another process
// sharing the database) become visible after ttl.
func (s *Service) WithCache(size int, ttl time.Duration) *Service {
	if size > 0 && ttl > 0 {
		s.cache = expirable.NewLRU[string, *domain.License](size, nil, ttl)
	}
	return s
}

func cacheKey(code string) string { return strings.ToLower(strings.TrimSpace(code)) }

func (s *Service) lookup(code string) (*domain.License, error) {
	if s.cache != nil {
		if l, ok := s.cache.Get(cacheKey(code)); ok {
			if l == nil {
				return nil, domain.ErrLicenseNotFound
			}
			return l, nil
		}
	}
	l, err := s.store.LookupLicense(code)
	if s.cache != nil {
		switch {
		case err == nil:
			s.cache.Add(cacheKey(code), l)
		case errors.Is(err, domain.ErrLicenseNotFound):
			s.cache.Add(cacheKey(code), nil)
		}
	}
	return l, err
}

func (s *Service) forget(code string) {
	if s.cache != nil {
		s.cache.Remove(cacheKey(code))
	}
}

// Check reports whether code is a usable license at now.
// Lookup failures other than "not found" are returned as errors.
func (s *Service) Check(code string, now time.Time) (domain.LicenseStatus, error) {
	code = strings.TrimSpace(code)
	status := domain.LicenseStatus{Code: code}
	if code == "" {
		status.Reason = ReasonEmpty
		return status, nil
	}

	l, err := s.lookup(code)
	switch {
	case errors.Is(err, domain.ErrLicenseNotFound):
		status.Reason = ReasonNotFound
		return status, nil
	case err != nil:
		return status, fmt.Errorf("check license: %w", err)
	}

	status.Code = l.Code
	status.Holder = l.Holder
	if !l.ExpiresAt.IsZero() {
		exp := l.ExpiresAt
		status.ExpiresAt = &exp
	}
	switch {
	case l.Revoked:
		status.Reason = ReasonRevoked
	case l.Expired(now):
		status.Reason = ReasonExpired
	default:
		status.Valid = true
	}
	return status, nil
}

// Require is Check that turns an invalid status into its sentinel error.
func (s *Service) Require(code string) error {
	st, err := s.Check(code, s.now())
	if err != nil {
		return err
	}
	if st.Valid {
		return nil
	}
	switch st.Reason {
	case ReasonRevoked:
		return domain.ErrLicenseRevoked
	case ReasonExpired:
		return domain.ErrLicenseExpired
	case ReasonEmpty:
		return domain.ErrEmptyCode
	}
	return domain.ErrLicenseNotFound
}

// Issue creates and stores a fresh code for holder. A ttl <= 0 never expires.
func (s *Service) Issue(holder string, ttl time.Duration) (domain.License, error) {
	now := s.now().UTC().Truncate(time.Second)
	l := domain.License{
		Code:     NewCode(),
		Holder:   strings.TrimSpace(holder),
		IssuedAt: now,
	}
	if ttl > 0 {
		l.ExpiresAt = now.Add(ttl)
	}
	if err := s.store.UpsertLicense(l); err != nil {
		return domain.License{}, fmt.Errorf("issue license: %w", err)
	}
	s.forget(l.Code)
	return l, nil
}

// Add registers an externally issued code.
func (s *Service) Add(code, holder string, expiresAt time.Time) (domain.License, error) {
	l := domain.License{
		Code:      strings.TrimSpace(code),
		Holder:    strings.TrimSpace(holder),
		IssuedAt:  s.now().UTC().Truncate(time.Second),
		ExpiresAt: expiresAt,
	}
	if l.Code == "" {
		return domain.License{}, domain.ErrEmptyCode
	}
	if err := s.store.UpsertLicense(l); err != nil {
		return domain.License{}, fmt.Errorf("add license: %w", err)
	}
	s.forget(l.Code)
	return l, nil
}

// Revoke invalidates a code.
func (s *Service) Revoke(code string) error {
	if strings.TrimSpace(code) == "" {
		return domain.ErrEmptyCode
	}
	s.forget(code)
	return s.store.RevokeLicense(code)
}

// List returns every stored license.
func (s *Service) List() ([]domain.License, error) {
	return s.store.ListLicenses()
}

// NewCode returns a random code of the form XXXX-XXXX-XXXX-XXXX.
func NewCode() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return hex[0:4] + "-" + hex[4:8] + "-" + hex[8:12] + "-" + hex[12:16]
}
