package secrets

import (
	"crypto/sha256"
	"encoding/hex"
)

// Style selects how a secret is masked.
type Style string

// Masking styles.
const (
	// StylePartial keeps the first characters.
	StylePartial Style = "partial"
	// StyleFull replaces the whole value.
	StyleFull Style = "full"
	// StyleHash replaces the value by a short SHA-256 digest, so equal
	// secrets can still be recognized in logs.
	StyleHash Style = "hash"
)

// Replacement is appended to or substituted for masked text.
const Replacement = "***"

// DefaultShowChars is the prefix kept by StylePartial.
const DefaultShowChars = 4

// MaskValue masks value with style.
func MaskValue(value string, style Style) string {
	switch style {
	case StyleFull:
		return Replacement
	case StyleHash:
		return hashMask(value)
	default:
		return partialMask(value, DefaultShowChars)
	}
}

// partialMask shows the first n characters and masks the rest. Values too
// short to hide anything are masked completely.
func partialMask(value string, n int) string {
	if len(value) <= 2*n {
		return Replacement
	}
	return value[:n] + Replacement
}

func hashMask(value string) string {
	hash := sha256.Sum256([]byte(value))
	return "sha256:" + hex.EncodeToString(hash[:])[:16]
}
