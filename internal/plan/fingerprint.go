package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint dimensions.
const (
	// Size is the fingerprint width in bytes (SHA-256).
	Size = sha256.Size

	// EncodedLen is the length of the hex rendering.
	EncodedLen = Size * 2

	// Bits is the fingerprint width in bits.
	Bits = Size * 8
)

// Fingerprint is the hex rendering of a 256-bit plan identity digest.
type Fingerprint string

// projection is the canonical identity view of a plan. Struct field order
// fixes the key order of the serialized form and must stay lexicographic.
type projection struct {
	Approach string   `json:"approach"`
	Goal     string   `json:"goal"`
	Steps    []string `json:"steps"`
}

// Fingerprint derives the identity digest of the plan. It is a pure
// function of Goal, Approach, and the ordered step descriptions: two plans
// with the same steps in a different order are different plans. Missing
// fields default to empty, so a zero-value plan yields a valid, fixed
// digest. A nil plan fails with ErrInvalidPlanInput.
func (p *Plan) Fingerprint() (Fingerprint, error) {
	if p == nil {
		return "", ErrInvalidPlanInput
	}

	proj := projection{
		Approach: p.Approach,
		Goal:     p.Goal,
		// Always a list, never null, so a plan without steps keeps a
		// stable serialized form.
		Steps: make([]string, 0, len(p.Steps)),
	}
	for _, s := range p.Steps {
		proj.Steps = append(proj.Steps, s.Description)
	}

	data, err := json.Marshal(proj)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPlanInput, err)
	}

	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

// Validate checks that the fingerprint is a well-formed fixed-length hex
// digest. It returns ErrInvalidFingerprintFormat otherwise.
func (f Fingerprint) Validate() error {
	_, err := f.decode()
	return err
}

// decode parses the hex rendering back into the 32 digest bytes.
func (f Fingerprint) decode() ([]byte, error) {
	if len(f) != EncodedLen {
		return nil, fmt.Errorf("%w: got %d characters, want %d", ErrInvalidFingerprintFormat, len(f), EncodedLen)
	}
	raw, err := hex.DecodeString(string(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFingerprintFormat, err)
	}
	return raw, nil
}

// String returns the full hex rendering.
func (f Fingerprint) String() string {
	return string(f)
}

// Short returns a truncated rendering for display.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}
	return string(f[:12])
}
