package rbac

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sjlangley/social-golf-spa/pkg/auth"
)

// policyFile is the YAML shape of a role policy file:
//
//	roles:
//	  admin:
//	    inherits: [writer]
//	    grants: ["users:*"]
//	  writer:
//	    inherits: [reader]
//	    grants: ["users:create", "users:edit"]
//	  reader:
//	    grants: ["users:read"]
type policyFile struct {
	Roles map[string]policyRole `yaml:"roles"`
}

type policyRole struct {
	Inherits []string `yaml:"inherits"`
	Grants   []string `yaml:"grants"`
}

// LoadConfigFile reads a role policy from a YAML file. Scope strings
// are validated during parsing, so a malformed grant fails the load
// rather than surfacing later as a runtime mismatch.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if len(file.Roles) == 0 {
		return Config{}, fmt.Errorf("policy file declares no roles")
	}

	cfg := Config{
		Hierarchy: make(map[Role][]Role, len(file.Roles)),
		Grants:    make(map[Role][]auth.Scope, len(file.Roles)),
	}

	for name, role := range file.Roles {
		inherited := make([]Role, 0, len(role.Inherits))
		for _, parent := range role.Inherits {
			inherited = append(inherited, Role(parent))
		}
		cfg.Hierarchy[Role(name)] = inherited

		grants := make([]auth.Scope, 0, len(role.Grants))
		for _, raw := range role.Grants {
			scope, err := auth.ParseScope(raw)
			if err != nil {
				return Config{}, fmt.Errorf("role %q: %w", name, err)
			}
			grants = append(grants, scope)
		}
		cfg.Grants[Role(name)] = grants
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
