// Package matcher resolves AFD identity records into a deduplicated employee
// registry and binds every punch record to an employee.
//
// Time clocks frequently register the same person more than once: a record
// may be re-sent with a corrected name, with an operation letter glued to the
// front of the name, or with a transcription error in the identifier. The
// resolver absorbs these variants in four steps, in order:
//  1. prefix artifact: "IMARIA" is "MARIA" when "MARIA" is already known
//  2. exact normalized name
//  3. identifier variation (cyclic rotation or small Hamming distance)
//  4. otherwise a new employee
//
// A consolidation pass then merges any employees that still share a
// normalized name.
//
// Punches are bound by direct identifier lookup, then by alternate
// identifiers, then by identifier variation. Punches that match nobody are
// kept under their raw key with an empty name.
//
// The variation scans are linear in the number of employees, which makes the
// whole resolution quadratic. Rosters of a few hundred people are fine.
//
// Example usage:
//
//	engine := matcher.NewEngine(matcher.DefaultMatchingConfig())
//	result, err := engine.Process(extraction)
//	for _, e := range result.Employees { ... }
package matcher

import (
	"fmt"
	"strings"
)

// MatchingConfig tunes identity resolution
type MatchingConfig struct {
	// MaxHammingDistance is the largest number of differing positions for
	// two keys to count as the same person.
	MaxHammingDistance int `mapstructure:"max_hamming_distance" json:"maxHammingDistance"`

	// DetectRotations treats cyclic rotations of a key as the same key.
	DetectRotations bool `mapstructure:"detect_rotations" json:"detectRotations"`

	// PrefixLetters are the operation letters that may leak into names.
	PrefixLetters string `mapstructure:"prefix_letters" json:"prefixLetters"`
}

// DefaultMatchingConfig returns the standard resolution rules
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		MaxHammingDistance: 3,
		DetectRotations:    true,
		PrefixLetters:      "IAE",
	}
}

// Validate checks the configuration
func (mc *MatchingConfig) Validate() error {
	if mc.MaxHammingDistance < 0 || mc.MaxHammingDistance >= keyLength {
		return fmt.Errorf("max hamming distance must be between 0 and %d, got %d", keyLength-1, mc.MaxHammingDistance)
	}
	for _, r := range mc.PrefixLetters {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("prefix letters must be uppercase ASCII, got %q", mc.PrefixLetters)
		}
	}
	return nil
}

// Clone returns a copy of the configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	clone := *mc
	return &clone
}

func (mc *MatchingConfig) String() string {
	return fmt.Sprintf("MatchingConfig{MaxHammingDistance: %d, DetectRotations: %t, PrefixLetters: %s}",
		mc.MaxHammingDistance, mc.DetectRotations, mc.PrefixLetters)
}

func (mc *MatchingConfig) isPrefixLetter(b byte) bool {
	return strings.IndexByte(mc.PrefixLetters, b) >= 0
}
