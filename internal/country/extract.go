// Package country derives a country name from a free-form address string.
//
// The rule is deliberately permissive: the country is whatever follows the
// last comma, trimmed. No lookup, alias resolution, or case folding happens,
// so "1 Sky Rd, Paris, france " yields "france" and an address without any
// comma is returned whole.
package country

import "strings"

// Extract returns the trimmed last comma-separated segment of address.
// Empty and whitespace-only addresses yield "", as does an address whose
// final segment is blank (for example "123 Main St, ").
func Extract(address string) string {
	if strings.TrimSpace(address) == "" {
		return ""
	}

	// strings.Split always returns at least one element for a non-empty input
	parts := strings.Split(address, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}
