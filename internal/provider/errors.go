package provider

import "errors"

// Failure taxonomy for provider calls. The aggregator recovers all of these
// locally; callers above it only ever see them inside its report.
var (
	ErrUnavailable       = errors.New("provider unavailable")
	ErrAuthFailed        = errors.New("provider authentication failed")
	ErrMalformedResponse = errors.New("provider returned malformed response")
	ErrTimeout           = errors.New("provider request timed out")
	ErrInvalidDateRange  = errors.New("invalid date range: start after end")
)
