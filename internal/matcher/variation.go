package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	keyLength    = 10
	paddedLength = 11
)

// NormalizeName folds accents, uppercases and trims a name so that
// "Conceição " and "CONCEICAO" compare equal.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.TrimSpace(strings.ToUpper(folded))
}

// PadKey left-pads an identifier with zeros to the 11-digit block width
func PadKey(id string) string {
	if len(id) >= paddedLength {
		return id
	}
	return strings.Repeat("0", paddedLength-len(id)) + id
}

// HammingDistance counts differing positions. Strings of different length
// get -1.
func HammingDistance(a, b string) int {
	if len(a) != len(b) {
		return -1
	}
	d := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			d++
		}
	}
	return d
}

// IsRotation reports whether b is a cyclic rotation of a
func IsRotation(a, b string) bool {
	return len(a) == len(b) && strings.Contains(a+a, b)
}

// IsVariation reports whether two identifiers denote the same person under
// the default rules.
func IsVariation(a, b string) bool {
	return DefaultMatchingConfig().IsVariation(a, b)
}

// IsVariation reports whether two identifiers denote the same person. Only
// 10-digit keys are compared beyond equality.
func (mc *MatchingConfig) IsVariation(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) != keyLength || len(b) != keyLength {
		return false
	}
	if mc.DetectRotations && (IsRotation(a, b) || IsRotation(b, a)) {
		return true
	}
	return HammingDistance(a, b) <= mc.MaxHammingDistance
}

// stripPrefixArtifact returns the name without a leading operation letter
// when the letter is directly followed by another uppercase letter.
func (mc *MatchingConfig) stripPrefixArtifact(normalized string) (string, bool) {
	if len(normalized) < 2 || !mc.isPrefixLetter(normalized[0]) {
		return "", false
	}
	next, _ := utf8.DecodeRuneInString(normalized[1:])
	if !unicode.IsUpper(next) {
		return "", false
	}
	return normalized[1:], true
}
