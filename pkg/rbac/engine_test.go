package rbac

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjlangley/social-golf-spa/pkg/auth"
	"github.com/sjlangley/social-golf-spa/pkg/observability"
)

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	require.NoError(t, cfg.Validate())
	return NewEngine(cfg, observability.NewLogger(observability.ErrorLevel, io.Discard))
}

func roleSet(roles ...Role) map[Role]struct{} {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func TestExpandRoles(t *testing.T) {
	engine := testEngine(t, DefaultConfig())

	tests := []struct {
		name  string
		roles []string
		want  map[Role]struct{}
	}{
		{"admin expands to all", []string{"admin"}, roleSet(RoleAdmin, RoleWriter, RoleReader)},
		{"writer expands to writer and reader", []string{"writer"}, roleSet(RoleWriter, RoleReader)},
		{"reader stays reader", []string{"reader"}, roleSet(RoleReader)},
		{"writer plus reader does not add admin", []string{"writer", "reader"}, roleSet(RoleWriter, RoleReader)},
		{"duplicates collapse", []string{"admin", "admin", "writer"}, roleSet(RoleAdmin, RoleWriter, RoleReader)},
		{"empty input", nil, roleSet()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.ExpandRoles(tt.roles))
		})
	}
}

func TestExpandRolesIsExtensiveAndIdempotent(t *testing.T) {
	engine := testEngine(t, DefaultConfig())

	inputs := [][]string{{"admin"}, {"writer"}, {"reader"}, {"admin", "reader"}}
	for _, roles := range inputs {
		expanded := engine.ExpandRoles(roles)

		// Extensive: every recognized input role is in its own closure.
		for _, r := range roles {
			assert.Contains(t, expanded, Role(r))
		}

		// Idempotent: expanding the closure yields the closure.
		names := make([]string, 0, len(expanded))
		for r := range expanded {
			names = append(names, string(r))
		}
		assert.Equal(t, expanded, engine.ExpandRoles(names))
	}
}

func TestExpandRolesSkipsUnrecognized(t *testing.T) {
	engine := testEngine(t, DefaultConfig())

	expanded := engine.ExpandRoles([]string{"superuser", "writer", "intern"})
	assert.Equal(t, roleSet(RoleWriter, RoleReader), expanded)
}

func TestExpandRolesTerminatesOnCycle(t *testing.T) {
	// A cycle is a misconfiguration but must not recurse forever.
	cfg := Config{
		Hierarchy: map[Role][]Role{
			"a": {"b"},
			"b": {"a"},
		},
		Grants: map[Role][]auth.Scope{},
	}
	engine := testEngine(t, cfg)

	expanded := engine.ExpandRoles([]string{"a"})
	assert.Equal(t, roleSet("a", "b"), expanded)
}

func TestEffectivePermissions(t *testing.T) {
	engine := testEngine(t, DefaultConfig())

	tests := []struct {
		name      string
		identity  auth.Identity
		contains  []string
		excludes  []string
	}{
		{
			name:     "reader gets read only",
			identity: auth.Identity{UserID: "u1", Roles: []string{"reader"}},
			contains: []string{"users:read"},
			excludes: []string{"users:create", "users:edit", "users:*"},
		},
		{
			name:     "writer inherits read",
			identity: auth.Identity{UserID: "u2", Roles: []string{"writer"}},
			contains: []string{"users:read", "users:create", "users:edit"},
			excludes: []string{"users:*"},
		},
		{
			name:     "admin gets wildcard",
			identity: auth.Identity{UserID: "u3", Roles: []string{"admin"}},
			contains: []string{"users:*", "users:read"},
		},
		{
			name: "false override removes role-derived grant",
			identity: auth.Identity{
				UserID:    "u4",
				Roles:     []string{"reader"},
				Overrides: map[auth.Scope]bool{auth.MustScope("users:read"): false},
			},
			excludes: []string{"users:read"},
		},
		{
			name: "true override grants scope no role implies",
			identity: auth.Identity{
				UserID:    "u5",
				Roles:     []string{"reader"},
				Overrides: map[auth.Scope]bool{auth.MustScope("courses:edit"): true},
			},
			contains: []string{"users:read", "courses:edit"},
		},
		{
			name: "removing absent scope is a no-op",
			identity: auth.Identity{
				UserID:    "u6",
				Roles:     []string{"reader"},
				Overrides: map[auth.Scope]bool{auth.MustScope("users:delete"): false},
			},
			contains: []string{"users:read"},
			excludes: []string{"users:delete"},
		},
		{
			name:     "no roles no overrides",
			identity: auth.Identity{UserID: "u7"},
			excludes: []string{"users:read"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effective := engine.EffectivePermissions(&tt.identity)
			for _, s := range tt.contains {
				assert.True(t, effective.Contains(auth.MustScope(s)), "expected %s", s)
			}
			for _, s := range tt.excludes {
				assert.False(t, effective.Contains(auth.MustScope(s)), "did not expect %s", s)
			}
		})
	}
}

func TestOverrideRemovalDoesNotTouchWildcard(t *testing.T) {
	engine := testEngine(t, DefaultConfig())

	identity := auth.Identity{
		UserID:    "admin-1",
		Roles:     []string{"admin"},
		Overrides: map[auth.Scope]bool{auth.MustScope("users:delete"): false},
	}
	effective := engine.EffectivePermissions(&identity)

	// The specific key is removed but the wildcard grant stays, so the
	// gate still allows the action through the wildcard.
	assert.False(t, effective.Contains(auth.MustScope("users:delete")))
	assert.True(t, effective.Contains(auth.MustScope("users:*")))
	assert.True(t, Authorize(effective, auth.MustScope("users:delete")))
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		granted  []string
		required string
		want     bool
	}{
		{"exact match", []string{"users:read"}, "users:read", true},
		{"wildcard matches any action", []string{"users:*"}, "users:read", true},
		{"wildcard matches delete", []string{"users:*"}, "users:delete", true},
		{"no grant", []string{"users:read"}, "users:delete", false},
		{"wrong resource", []string{"users:*"}, "courses:read", false},
		{"empty set", nil, "users:read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := auth.NewScopeSet()
			for _, s := range tt.granted {
				set.Add(auth.MustScope(s))
			}
			assert.Equal(t, tt.want, Authorize(set, auth.MustScope(tt.required)))
		})
	}
}

func TestReloadSwapsPolicy(t *testing.T) {
	engine := testEngine(t, DefaultConfig())
	identity := auth.Identity{UserID: "u1", Roles: []string{"reader"}}

	assert.True(t, Authorize(engine.EffectivePermissions(&identity), auth.MustScope("users:read")))

	engine.Reload(Config{
		Hierarchy: map[Role][]Role{RoleReader: {}},
		Grants:    map[Role][]auth.Scope{RoleReader: {auth.MustScope("courses:read")}},
	})

	effective := engine.EffectivePermissions(&identity)
	assert.False(t, Authorize(effective, auth.MustScope("users:read")))
	assert.True(t, Authorize(effective, auth.MustScope("courses:read")))
}
