package temporalkg

import "strings"

// SanitizeLabel normalizes a raw entity label or relationship type for the
// graph store (spec §4.3): replace any rune outside
// [A-Za-z0-9_一-龥] with "_", collapse runs of "_", trim leading
// and trailing "_". defaultValue is returned when the result is empty.
func SanitizeLabel(raw, defaultValue string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if isAllowedRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	collapsed := collapseUnderscores(b.String())
	trimmed := strings.Trim(collapsed, "_")
	if trimmed == "" {
		return defaultValue
	}
	return trimmed
}

// SanitizeEntityLabel sanitizes a node label, defaulting to "Entity".
func SanitizeEntityLabel(raw string) string {
	return SanitizeLabel(raw, "Entity")
}

// SanitizeRelationshipType sanitizes an edge type, defaulting to "RELATED".
func SanitizeRelationshipType(raw string) string {
	return SanitizeLabel(raw, "RELATED")
}

func isAllowedRune(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	case r >= 0x4e00 && r <= 0x9fa5:
		return true
	}
	return false
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevUnderscore := false
	for _, r := range s {
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
