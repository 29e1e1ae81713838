package rbac

import (
	"fmt"

	"github.com/sjlangley/social-golf-spa/pkg/auth"
)

// Role is a named role in the hierarchy.
type Role string

// Built-in role names for the reference policy.
const (
	RoleAdmin  Role = "admin"
	RoleWriter Role = "writer"
	RoleReader Role = "reader"
)

// Config is an explicitly constructed role policy: the inheritance
// graph plus the scopes each role directly grants. It replaces any
// process-global tables so tests and deployments can substitute
// alternate hierarchies.
type Config struct {
	// Hierarchy maps each role to the roles it directly inherits.
	// The graph is expected to be a DAG; a cycle is tolerated during
	// expansion (the visited set terminates it) but indicates a
	// misconfigured policy.
	Hierarchy map[Role][]Role
	// Grants maps each role to the scopes it directly grants.
	Grants map[Role][]auth.Scope
}

// Validate checks that every role referenced by the config is declared
// in the hierarchy.
func (c Config) Validate() error {
	for role, inherited := range c.Hierarchy {
		for _, parent := range inherited {
			if _, ok := c.Hierarchy[parent]; !ok {
				return fmt.Errorf("role %q inherits undeclared role %q", role, parent)
			}
		}
	}
	for role := range c.Grants {
		if _, ok := c.Hierarchy[role]; !ok {
			return fmt.Errorf("grants reference undeclared role %q", role)
		}
	}
	return nil
}

// DefaultConfig returns the reference policy: admin inherits writer,
// writer inherits reader; readers can list users, writers can create
// and edit them, admins can do anything to them.
func DefaultConfig() Config {
	return Config{
		Hierarchy: map[Role][]Role{
			RoleAdmin:  {RoleWriter},
			RoleWriter: {RoleReader},
			RoleReader: {},
		},
		Grants: map[Role][]auth.Scope{
			RoleReader: {auth.MustScope("users:read")},
			RoleWriter: {auth.MustScope("users:create"), auth.MustScope("users:edit")},
			RoleAdmin:  {auth.MustScope("users:*")},
		},
	}
}
