package userstate

import "errors"

var (
	// ErrUnsupportedKind indicates a TermsType outside TermsOfService and PrivacyPolicy.
	ErrUnsupportedKind = errors.New("unsupported terms type")

	// ErrMalformedData indicates the stored region checkpoint map exists but cannot be decoded.
	ErrMalformedData = errors.New("malformed region checkpoint map")

	// ErrInvalidRegion indicates a region id that is not valid UTF-8 and so
	// cannot be stored as a distinct key of the region checkpoint map.
	ErrInvalidRegion = errors.New("invalid region id")
)
