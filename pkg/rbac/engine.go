package rbac

import (
	"sync"

	"github.com/sjlangley/social-golf-spa/pkg/auth"
	"github.com/sjlangley/social-golf-spa/pkg/observability"
)

// Engine evaluates role expansion, override resolution and scope
// authorization against an injected Config. It holds no per-request
// state and is safe for concurrent use; Reload swaps the policy
// atomically under the lock.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	logger *observability.Logger
}

// NewEngine creates an engine over the given policy.
func NewEngine(cfg Config, logger *observability.Logger) *Engine {
	return &Engine{cfg: cfg, logger: logger}
}

// Reload replaces the policy. Used by the config file watcher.
func (e *Engine) Reload(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

// ExpandRoles returns the transitive closure of the given role names
// under the inheritance graph, including the recognized inputs
// themselves. Unrecognized names are logged and skipped; they never
// abort expansion, since partial role data must not block
// authorization entirely. The result is a set: iteration order is
// unspecified.
func (e *Engine) ExpandRoles(roles []string) map[Role]struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	expanded := make(map[Role]struct{})

	var add func(role Role)
	add = func(role Role) {
		if _, seen := expanded[role]; seen {
			// Visited check doubles as the cycle guard for a
			// misconfigured hierarchy.
			return
		}
		expanded[role] = struct{}{}
		for _, inherited := range e.cfg.Hierarchy[role] {
			add(inherited)
		}
	}

	for _, name := range roles {
		role := Role(name)
		if _, known := e.cfg.Hierarchy[role]; !known {
			e.logger.WithField("role", name).Warn("Unrecognized role on user record")
			continue
		}
		add(role)
	}

	return expanded
}

// EffectivePermissions computes the caller's effective permission set:
// the union of every expanded role's grants, then per-scope overrides
// applied on top. A true override adds its scope, a false override
// removes it (a no-op when absent). An override always wins over a
// role-derived grant, but revoking a specific scope does not touch a
// wildcard that also covers it; the gate still honors the wildcard.
//
// Overrides may also grant scopes no role implies at all; that is
// intended policy, the stored-record write path is the control point.
func (e *Engine) EffectivePermissions(identity *auth.Identity) auth.ScopeSet {
	expanded := e.ExpandRoles(identity.Roles)

	e.mu.RLock()
	defer e.mu.RUnlock()

	effective := auth.NewScopeSet()
	for role := range expanded {
		for _, scope := range e.cfg.Grants[role] {
			effective.Add(scope)
		}
	}

	for scope, allow := range identity.Overrides {
		if allow {
			effective.Add(scope)
		} else {
			effective.Remove(scope)
		}
	}

	return effective
}

// Authorize reports whether the effective permission set grants the
// required scope, either exactly or through the resource wildcard.
// Pure predicate, no side effects.
func Authorize(permissions auth.ScopeSet, required auth.Scope) bool {
	if permissions.Contains(required) {
		return true
	}
	return permissions.Contains(required.Wildcard())
}
