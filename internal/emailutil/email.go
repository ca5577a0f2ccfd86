package emailutil

import "strings"

// Normalize lowercases and trims an address so allowlist comparisons
// are case- and whitespace-insensitive.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExtractDomain returns the part after the "@", or "" when the input
// is not a plain address.
func ExtractDomain(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
