package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Scope
		wantErr bool
	}{
		{"simple", "users:read", Scope{Resource: "users", Action: "read"}, false},
		{"wildcard action", "users:*", Scope{Resource: "users", Action: "*"}, false},
		{"no colon", "usersread", Scope{}, true},
		{"two colons", "users:read:extra", Scope{}, true},
		{"empty resource", ":read", Scope{}, true},
		{"empty action", "users:", Scope{}, true},
		{"empty string", "", Scope{}, true},
		{"only colon", ":", Scope{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScope(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestMustScopePanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { MustScope("not-a-scope") })
	assert.NotPanics(t, func() { MustScope("users:read") })
}

func TestScopeWildcard(t *testing.T) {
	scope := MustScope("users:read")
	assert.False(t, scope.IsWildcard())
	assert.Equal(t, MustScope("users:*"), scope.Wildcard())
	assert.True(t, scope.Wildcard().IsWildcard())
}

func TestScopeSet(t *testing.T) {
	set := NewScopeSet(MustScope("users:read"), MustScope("users:edit"))

	assert.True(t, set.Contains(MustScope("users:read")))
	assert.False(t, set.Contains(MustScope("users:delete")))

	set.Remove(MustScope("users:read"))
	assert.False(t, set.Contains(MustScope("users:read")))

	// Removing an absent scope is a no-op.
	set.Remove(MustScope("users:read"))
	assert.Len(t, set, 1)

	set.Add(MustScope("users:*"))
	assert.ElementsMatch(t, []string{"users:edit", "users:*"}, set.Strings())
}

func TestParseOverrides(t *testing.T) {
	overrides, err := ParseOverrides(map[string]bool{
		"users:read":   false,
		"courses:edit": true,
	})
	require.NoError(t, err)
	assert.Equal(t, map[Scope]bool{
		MustScope("users:read"):   false,
		MustScope("courses:edit"): true,
	}, overrides)

	empty, err := ParseOverrides(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestParseOverridesRejectsMalformedKeys(t *testing.T) {
	tests := []string{"usersread", "users:read:extra", ":read", "users:", ""}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := ParseOverrides(map[string]bool{key: true})
			assert.Error(t, err)
		})
	}
}
