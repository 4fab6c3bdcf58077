package utils

import "strings"

// fingerprintLength keeps fingerprints cheap to store and compare
// while still catching copy-paste spam with varied suffixes.
const fingerprintLength = 50

// MessageFingerprint reduces message content to a similarity key:
// lowercased, whitespace removed, truncated. Short messages return ""
// and are not tracked, mass hellos in a welcome channel are not spam.
func MessageFingerprint(content string) string {
	if len(content) <= 20 {
		return ""
	}
	var b strings.Builder
	b.Grow(fingerprintLength)
	for _, r := range strings.ToLower(content) {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= fingerprintLength {
			break
		}
	}
	return b.String()
}
