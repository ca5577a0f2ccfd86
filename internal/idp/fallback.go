package idp

import (
	"fmt"

	"github.com/meridianhq/portal/internal/emailutil"
)

// fallbackEmail returns the provider-supplied email, or a synthesized
// placeholder when the provider has none. The placeholder is stable per
// subject so the allowlist can still pin individual accounts.
func fallbackEmail(email, subject, provider string) string {
	if email != "" {
		return emailutil.Normalize(email)
	}
	return fmt.Sprintf("%s@%s.invalid", subject, provider)
}

// fallbackName returns the display name, falling back to the email and
// finally the subject identifier.
func fallbackName(name, email, subject string) string {
	if name != "" {
		return name
	}
	if email != "" {
		return email
	}
	return subject
}
