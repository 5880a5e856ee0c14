package compliance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads substance rule overrides from a YAML file and layers them
// on top of the built-in table. Certifiers occasionally publish updated
// restriction lists between releases; the override file ships those without
// a rebuild.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler arquivo de regras: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("erro ao interpretar regras: %w", err)
	}

	for i, r := range rf.Rules {
		if r.Term == "" {
			return nil, fmt.Errorf("regra %d sem termo", i+1)
		}
		switch r.Level {
		case LevelProhibited, LevelAttention, LevelAllowed:
		default:
			return nil, fmt.Errorf("regra %q com nível inválido %q", r.Term, r.Level)
		}
	}

	return NewRuleSetWith(rf.Rules), nil
}
