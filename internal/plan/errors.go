package plan

import "errors"

// Plan fingerprinting errors.
var (
	// ErrInvalidPlanInput is returned when the input cannot be interpreted
	// as a plan record at all (nil pointer, JSON null).
	ErrInvalidPlanInput = errors.New("invalid plan input")

	// ErrInvalidFingerprintFormat is returned when a fingerprint is not a
	// 64-character hex digest.
	ErrInvalidFingerprintFormat = errors.New("invalid fingerprint format")
)
