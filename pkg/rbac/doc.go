// Package rbac computes a caller's effective permissions from role
// hierarchy plus per-user overrides, and decides scope authorization.
//
// # Model
//
// A Config declares a DAG of role inheritance and the scopes each role
// directly grants. ExpandRoles takes the role names on a user record to
// their transitive closure; EffectivePermissions unions the closure's
// grants and applies the user's overrides (true adds, false removes).
// Authorize is a pure predicate over the resulting set, honoring the
// resource:* wildcard.
//
// The effective set is derived fresh per request and never stored.
//
// Policies can be built in code (DefaultConfig) or loaded from a YAML
// file (LoadConfigFile), with optional hot reload via WatchConfigFile.
package rbac
