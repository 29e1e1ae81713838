// Package auth provides bearer-token verification and the identity
// model for the golf API.
//
// # Overview
//
// A request's bearer credential is verified as an OIDC ID token against
// the configured identity provider and audience. Verified claims become
// an Identity, which the users package may enrich with stored roles and
// per-user permission overrides before the rbac package computes the
// caller's effective permission set.
//
// # Scopes
//
// A Scope is a validated resource:action pair:
//
//	scope, err := auth.ParseScope("users:read")
//
// The wildcard action "*" grants every action on a resource. Override
// mappings on stored user records are validated through ParseOverrides
// at construction time, so malformed scope keys are unrepresentable in
// a live Identity.
package auth
