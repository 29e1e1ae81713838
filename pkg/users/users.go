// Package users reads stored user records and exposes them for listing
// and for enriching authenticated identities.
package users

import (
	"fmt"

	"github.com/sjlangley/social-golf-spa/pkg/auth"
	"github.com/sjlangley/social-golf-spa/pkg/docstore"
)

// Collection is the document collection holding user records.
const Collection = "users"

// User is a stored user record. Roles and Overrides feed the
// authorization engine; the rest is profile data.
type User struct {
	UserID    string              `json:"userid"`
	Email     string              `json:"email,omitempty"`
	Name      string              `json:"name,omitempty"`
	Roles     []string            `json:"roles,omitempty"`
	Overrides map[auth.Scope]bool `json:"-"`
}

// FromDocument decodes a stored user record. The document ID is
// authoritative for the user ID. Malformed roles or permission
// overrides fail the whole record; a user with a half-read security
// posture must not be produced.
func FromDocument(doc *docstore.Document) (*User, error) {
	user := &User{UserID: doc.ID}

	if v, ok := doc.Data["email"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("user %s: email is not a string", doc.ID)
		}
		user.Email = s
	}
	if v, ok := doc.Data["name"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("user %s: name is not a string", doc.ID)
		}
		user.Name = s
	}

	if v, ok := doc.Data["roles"]; ok {
		roles, err := toStringSlice(v)
		if err != nil {
			return nil, fmt.Errorf("user %s: roles: %w", doc.ID, err)
		}
		user.Roles = roles
	}

	if v, ok := doc.Data["permissions"]; ok {
		raw, err := toBoolMap(v)
		if err != nil {
			return nil, fmt.Errorf("user %s: permissions: %w", doc.ID, err)
		}
		overrides, err := auth.ParseOverrides(raw)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", doc.ID, err)
		}
		user.Overrides = overrides
	}

	return user, nil
}

func toStringSlice(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("value %v is not a string list", v)
}

func toBoolMap(v interface{}) (map[string]bool, error) {
	switch m := v.(type) {
	case map[string]bool:
		out := make(map[string]bool, len(m))
		for k, b := range m {
			out[k] = b
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]bool, len(m))
		for k, item := range m {
			b, ok := item.(bool)
			if !ok {
				return nil, fmt.Errorf("value for %q is not a bool", k)
			}
			out[k] = b
		}
		return out, nil
	}
	return nil, fmt.Errorf("value %v is not a scope map", v)
}
