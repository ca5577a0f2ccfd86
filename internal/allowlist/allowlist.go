// Package allowlist decides whether a verified identity's email is
// permitted to use the portal. This is the only authorization layer:
// anything past the allowlist is a full user.
package allowlist

import (
	"strings"

	"github.com/meridianhq/portal/internal/emailutil"
)

// Filter holds the parsed allowlist. Entries starting with "@" are
// domain suffix filters; all others are exact matches. Comparison is
// case-insensitive.
type Filter struct {
	domains []string
	exact   map[string]struct{}
}

// New parses allowlist entries. Empty or whitespace-only entries are
// dropped. An empty filter permits every verified identity.
func New(entries []string) *Filter {
	f := &Filter{exact: make(map[string]struct{})}
	for _, entry := range entries {
		entry = emailutil.Normalize(entry)
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "@") {
			f.domains = append(f.domains, entry)
		} else {
			f.exact[entry] = struct{}{}
		}
	}
	return f
}

// Allowed reports whether the email passes the allowlist.
func (f *Filter) Allowed(email string) bool {
	if f.Empty() {
		return true
	}

	email = emailutil.Normalize(email)
	if _, ok := f.exact[email]; ok {
		return true
	}
	for _, domain := range f.domains {
		if strings.HasSuffix(email, domain) {
			return true
		}
	}
	return false
}

// Empty reports whether no entries are configured.
func (f *Filter) Empty() bool {
	return len(f.domains) == 0 && len(f.exact) == 0
}
