package models

import "strings"

// ParseScopes splits a comma separated scope string, trimming entries and
// dropping empty ones.
func ParseScopes(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinScopes is the inverse of ParseScopes.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, ",")
}
