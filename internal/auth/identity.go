package auth

import "strings"

// Canonical claim types emitted by the providers in this repo.
const (
	ClaimTypeSubject = "sub"
	ClaimTypeEmail   = "email"
	ClaimTypeName    = "name"
)

// Claim is a single (type, value) pair received from an external provider.
// Order is preserved as received.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Identity represents a normalized external authentication identity
// returned by an OAuth provider. It contains facts only, no decisions.
type Identity struct {
	Provider    string  `json:"provider"`     // e.g. "google", "github"
	ProviderKey string  `json:"provider_key"` // provider-scoped unique user identifier
	DisplayName string  `json:"display_name"` // human-readable provider name
	Claims      []Claim `json:"claims"`
}

// Email extracts the best candidate email from the claims. Providers differ
// in how they label the email claim (GitHub in particular), so the lookup
// widens in three steps: the canonical email type, a claim named "email" in
// any casing, then any claim whose type merely contains "email". The first
// non-empty value wins. No match is not an error, just no candidate.
func (i *Identity) Email() string {
	for _, c := range i.Claims {
		if c.Type == ClaimTypeEmail && c.Value != "" {
			return c.Value
		}
	}
	for _, c := range i.Claims {
		if strings.EqualFold(c.Type, ClaimTypeEmail) && c.Value != "" {
			return c.Value
		}
	}
	for _, c := range i.Claims {
		if strings.Contains(strings.ToLower(c.Type), ClaimTypeEmail) && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// Name returns the display-name claim, or "" when the provider sent none.
func (i *Identity) Name() string {
	for _, c := range i.Claims {
		if c.Type == ClaimTypeName && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
