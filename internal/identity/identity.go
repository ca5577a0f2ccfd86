package identity

import "time"

// Provider tags identify which trust source verified an identity.
// The tag is set by the verifying component, never by the caller.
const (
	ProviderGateway = "cloudflare-access"
	ProviderGoogle  = "google"
	ProviderLark    = "lark"
)

// Identity is the normalized result of any credential source. It is
// consumed immediately to mint a session and never persisted server-side.
type Identity struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
