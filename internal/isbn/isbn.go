// Package isbn normalizes raw book identifiers into comparable keys.
package isbn

import "strings"

// Normalize strips every character that is not an ASCII letter or digit and
// returns the remainder. Length and checksum are deliberately not validated;
// any alphanumeric residue is accepted as a key. Returns "" when nothing
// usable remains.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// NormalizeForCover returns the identifier in the strict form cover lookups
// accept: exactly 10 or 13 ASCII digits. Returns "" for anything else.
// This is a separate, stricter normalization used only when fetching cover
// art; the canonical key always comes from Normalize.
func NormalizeForCover(raw string) string {
	clean := Normalize(raw)
	if len(clean) != 10 && len(clean) != 13 {
		return ""
	}
	for i := 0; i < len(clean); i++ {
		if clean[i] < '0' || clean[i] > '9' {
			return ""
		}
	}
	return clean
}
