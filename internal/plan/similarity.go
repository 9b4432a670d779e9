package plan

import (
	"math"
	"math/bits"
)

// Similarity scores the bitwise agreement of two fingerprints on [0.0, 1.0].
// Equal strings short-circuit to exactly 1.0 before any validation; for
// everything else both arguments must be well-formed digests or the call
// fails with ErrInvalidFingerprintFormat.
//
// The raw agreement ratio (matching bit positions out of 256) is passed
// through a square root before returning. This inflates mid-range scores so
// that moderately similar plans register above typical acceptance
// thresholds: the result ranks candidates, it is not a calibrated
// probability. The exponent is pinned at 0.5 to keep scores comparable
// across versions.
//
// Similarity is symmetric and returns 1.0 only for equal strings or full
// 256-bit agreement.
func Similarity(a, b Fingerprint) (float64, error) {
	if a == b {
		return 1.0, nil
	}

	rawA, err := a.decode()
	if err != nil {
		return 0, err
	}
	rawB, err := b.decode()
	if err != nil {
		return 0, err
	}

	matches := Bits
	for i := range rawA {
		matches -= bits.OnesCount8(rawA[i] ^ rawB[i])
	}

	return math.Sqrt(float64(matches) / float64(Bits)), nil
}
