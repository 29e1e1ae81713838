package auth

import "fmt"

// Identity is an authenticated caller. It is built once per request
// from verified token claims, optionally enriched from the stored user
// record, and discarded when the request ends. Nothing here is
// persisted by this package.
type Identity struct {
	// UserID is the stable, opaque subject identifier. Always set.
	UserID string `json:"userid"`
	// Email from the token claims, if present.
	Email string `json:"email,omitempty"`
	// Name is the display name from the token claims, if present.
	Name string `json:"name,omitempty"`
	// Roles declared on the stored user record. May name roles the
	// hierarchy does not know; those are skipped during expansion.
	Roles []string `json:"roles,omitempty"`
	// Overrides are per-user permission overrides: true force-grants
	// the scope, false force-revokes it. Keys are validated Scopes,
	// so a malformed override cannot exist past construction.
	Overrides map[Scope]bool `json:"-"`
}

// ParseOverrides validates a raw scope→bool mapping (as stored on the
// user record) into typed overrides. Any malformed key fails the whole
// mapping; overrides are a security control and must not be partially
// applied.
func ParseOverrides(raw map[string]bool) (map[Scope]bool, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	overrides := make(map[Scope]bool, len(raw))
	for key, allow := range raw {
		scope, err := ParseScope(key)
		if err != nil {
			return nil, fmt.Errorf("permission override: %w", err)
		}
		overrides[scope] = allow
	}
	return overrides, nil
}
