package auth

import (
	"fmt"
	"strings"
)

// WildcardAction grants every action on a resource when used as the
// action part of a scope, e.g. "users:*".
const WildcardAction = "*"

// Scope is one grantable capability, the pair of a resource and an
// action. Scopes are only constructed through ParseScope, so a Scope
// value in hand is always well formed.
type Scope struct {
	Resource string
	Action   string
}

// ParseScope parses a "resource:action" string. Both parts must be
// non-empty and the string must contain exactly one colon.
func ParseScope(s string) (Scope, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Scope{}, fmt.Errorf("invalid scope %q: want resource:action", s)
	}
	return Scope{Resource: parts[0], Action: parts[1]}, nil
}

// MustScope parses a scope and panics on failure. For package-level
// constants and tests only.
func MustScope(s string) Scope {
	scope, err := ParseScope(s)
	if err != nil {
		panic(err)
	}
	return scope
}

// String returns the "resource:action" form.
func (s Scope) String() string {
	return s.Resource + ":" + s.Action
}

// IsWildcard reports whether this scope grants every action on its resource.
func (s Scope) IsWildcard() bool {
	return s.Action == WildcardAction
}

// Wildcard returns the wildcard scope for this scope's resource.
func (s Scope) Wildcard() Scope {
	return Scope{Resource: s.Resource, Action: WildcardAction}
}

// ScopeSet is a set of scopes, the shape of an effective permission set.
type ScopeSet map[Scope]struct{}

// NewScopeSet builds a set from the given scopes.
func NewScopeSet(scopes ...Scope) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return set
}

// Add inserts a scope into the set.
func (ss ScopeSet) Add(s Scope) {
	ss[s] = struct{}{}
}

// Remove deletes a scope from the set. Removing an absent scope is a no-op.
func (ss ScopeSet) Remove(s Scope) {
	delete(ss, s)
}

// Contains reports exact membership, with no wildcard expansion.
func (ss ScopeSet) Contains(s Scope) bool {
	_, ok := ss[s]
	return ok
}

// Strings returns the scopes in "resource:action" form, for logging.
// Order is unspecified.
func (ss ScopeSet) Strings() []string {
	out := make([]string, 0, len(ss))
	for s := range ss {
		out = append(out, s.String())
	}
	return out
}
