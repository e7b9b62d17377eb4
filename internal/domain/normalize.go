package domain

import "strings"

// NormalizeDestination trims leading/trailing whitespace and collapses internal whitespace runs.
func NormalizeDestination(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
