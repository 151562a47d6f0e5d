package flags

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultDayPassPattern marks a check-in as a day pass visit.
const DefaultDayPassPattern = `(?i)Day Pass|Entry Pass`

//go:embed rules/default.yaml
var defaultRules []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// RuleSet is the top level of a rule file.
type RuleSet struct {
	Version int               `yaml:"version" validate:"gte=1"`
	Rules   []models.FlagRule `yaml:"rules" validate:"dive"`
}

// Enabled returns the enabled rules in file order.
func (s RuleSet) Enabled() []models.FlagRule {
	rules := make([]models.FlagRule, 0, len(s.Rules))
	for _, r := range s.Rules {
		if r.Enabled {
			rules = append(rules, r)
		}
	}
	return rules
}

// LoadRules reads the rule file at path, or the built-in rules when path is empty.
func LoadRules(path string) (RuleSet, error) {
	if path == "" {
		return ParseRules(defaultRules)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a rule file. Unknown keys are rejected.
func ParseRules(data []byte) (RuleSet, error) {
	var set RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil {
		return RuleSet{}, fmt.Errorf("failed to decode rules: %w", err)
	}
	if err := ValidateRules(set); err != nil {
		return RuleSet{}, err
	}
	return set, nil
}

// ValidateRules checks struct constraints, unique flag names and day pass patterns.
func ValidateRules(set RuleSet) error {
	if err := validate.Struct(set); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}

	seen := make(map[string]struct{}, len(set.Rules))
	for _, r := range set.Rules {
		if _, dup := seen[r.FlagName]; dup {
			return fmt.Errorf("invalid rules: duplicate flag_name %q", r.FlagName)
		}
		seen[r.FlagName] = struct{}{}

		if r.Criteria.IsEmpty() {
			return fmt.Errorf("invalid rules: %s has no criteria", r.FlagName)
		}
		if r.Criteria.DayPassPattern != "" {
			if _, err := regexp.Compile(r.Criteria.DayPassPattern); err != nil {
				return fmt.Errorf("invalid rules: %s day_pass_pattern: %w", r.FlagName, err)
			}
		}
	}
	return nil
}
