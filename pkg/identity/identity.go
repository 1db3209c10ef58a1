// Package identity provides login-email normalization. Portal emails are the
// login key for client accounts, so the stored value must always be the
// canonical trimmed, lowercased form — lookups and writes both go through
// NormalizeEmail to keep them comparable.
package identity

import "strings"

// Identity is the authenticated principal carried through request contexts
// and token claims.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// NormalizeEmail returns the canonical form of an email address:
// whitespace trimmed, entire address lowercased.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// LoginEmail derives the portal login email from an explicit portal address
// and a fallback contact address. Returns "" when neither yields a usable
// address.
func LoginEmail(portalEmail, email string) string {
	if v := NormalizeEmail(portalEmail); v != "" {
		return v
	}
	return NormalizeEmail(email)
}
