package userstate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tekradar/userstate/internal/preferences"
)

// TermsType identifies one of the legal documents the user agrees to. The only
// valid values are TermsOfService and PrivacyPolicy; the zero TermsType is
// rejected with ErrUnsupportedKind.
type TermsType struct {
	name string
	key  string
}

// The two document kinds. They are fixed for the life of the program and must
// not be reassigned; ParseTermsType and TermsTypes return these values.
var (
	// TermsOfService is the terms of service agreement.
	TermsOfService = TermsType{name: "terms_of_service", key: keyTermsOfServiceUpdate}
	// PrivacyPolicy is the privacy policy agreement.
	PrivacyPolicy = TermsType{name: "privacy_policy", key: keyPrivacyPolicyUpdate}
)

// TermsTypes returns every document kind.
func TermsTypes() []TermsType {
	return []TermsType{TermsOfService, PrivacyPolicy}
}

// ParseTermsType accepts the canonical names plus the short aliases "tos"
// and "privacy", case-insensitively.
func ParseTermsType(s string) (TermsType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "terms_of_service", "terms-of-service", "tos":
		return TermsOfService, nil
	case "privacy_policy", "privacy-policy", "privacy":
		return PrivacyPolicy, nil
	}
	return TermsType{}, fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
}

func (t TermsType) String() string {
	if t.name == "" {
		return "unsupported"
	}
	return t.name
}

func (t TermsType) preferenceKey() (string, error) {
	if t.key == "" {
		return "", ErrUnsupportedKind
	}
	return t.key, nil
}

// GetLastUpdateDate returns when the user last agreed to the document, or the
// zero time if they never have.
func (s *Store) GetLastUpdateDate(ctx context.Context, kind TermsType) (time.Time, error) {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	key, err := kind.preferenceKey()
	if err != nil {
		return time.Time{}, err
	}
	t, err := preferences.GetValue(ctx, s.prefs, key, time.Time{})
	if err != nil {
		return time.Time{}, fmt.Errorf("reading %s update date: %w", kind, err)
	}
	return t, nil
}

// SaveLastUpdateDate records that the user agreed to the document at t.
func (s *Store) SaveLastUpdateDate(ctx context.Context, kind TermsType, t time.Time) error {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	key, err := kind.preferenceKey()
	if err != nil {
		return err
	}
	if err := preferences.SetValue(ctx, s.prefs, key, t.UTC()); err != nil {
		return fmt.Errorf("saving %s update date: %w", kind, err)
	}
	return nil
}

// IsAllAgreed reports whether an agreement is recorded for every document.
// Only presence counts, so an agreement saved with the zero time still counts.
func (s *Store) IsAllAgreed(ctx context.Context) (bool, error) {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	for _, kind := range TermsTypes() {
		ok, err := s.prefs.Contains(ctx, kind.key)
		if err != nil {
			return false, fmt.Errorf("checking %s agreement: %w", kind, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// RemoveAllUpdateDate forgets every recorded agreement.
func (s *Store) RemoveAllUpdateDate(ctx context.Context) error {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	for _, kind := range TermsTypes() {
		if err := s.prefs.Remove(ctx, kind.key); err != nil {
			return fmt.Errorf("removing %s update date: %w", kind, err)
		}
	}
	return nil
}
