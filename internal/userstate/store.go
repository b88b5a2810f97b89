// Package userstate persists the client's user state on top of a
// preferences.Store: when the app was first used, when the user last agreed
// to the terms of service and privacy policy, and per region the timestamp of
// the last processed exposure key batch.
package userstate

import (
	"github.com/juju/clock"

	"github.com/tekradar/userstate/internal/preferences"
)

// Preference keys owned by this package.
const (
	keyStartDate               = "start_date"
	keyTermsOfServiceUpdate    = "terms_of_service_last_update_date"
	keyPrivacyPolicyUpdate     = "privacy_policy_last_update_date"
	keyLastProcessTekTimestamp = "last_process_tek_timestamp"
)

// MethodTracer marks method entry and exit for diagnostics.
type MethodTracer interface {
	MethodEntered()
	MethodExited()
}

// RegionCodec converts the region checkpoint map to and from the string it
// is stored as.
type RegionCodec interface {
	Encode(m map[string]int64) (string, error)
	Decode(text string) (map[string]int64, error)
}

// Store provides typed access to the user state. It holds no locks; see
// SetLastProcessedTimestamp for the consequence.
type Store struct {
	prefs  preferences.Store
	codec  RegionCodec
	tracer MethodTracer
	clock  clock.Clock
}

// New returns a Store over prefs. clk supplies "now" for the start date
// default and days-of-use.
func New(prefs preferences.Store, codec RegionCodec, tracer MethodTracer, clk clock.Clock) *Store {
	return &Store{
		prefs:  prefs,
		codec:  codec,
		tracer: tracer,
		clock:  clk,
	}
}
