package classifier

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// Override forces a severity on candidates it matches.
type Override interface {
	Match(bug models.BugCandidate) bool
	Severity() models.Severity
	Reason() string
}

// OverrideFunc adapts a predicate to Override.
type OverrideFunc struct {
	Predicate func(models.BugCandidate) bool
	Target    models.Severity
	Why       string
}

// Match implements Override.
func (o OverrideFunc) Match(bug models.BugCandidate) bool { return o.Predicate != nil && o.Predicate(bug) }

// Severity implements Override.
func (o OverrideFunc) Severity() models.Severity { return o.Target }

// Reason implements Override.
func (o OverrideFunc) Reason() string { return o.Why }

// Rule is one override declared in a YAML rule pack.
type Rule struct {
	ID       string    `yaml:"id"`
	When     RuleMatch `yaml:"match"`
	Level    string    `yaml:"severity"`
	Because  string    `yaml:"reason"`
	severity models.Severity
}

// RuleMatch lists optional attributes; every attribute set must hold.
type RuleMatch struct {
	Type             string  `yaml:"type"`
	Category         string  `yaml:"category"`
	Environment      string  `yaml:"environment"`
	PatternName      string  `yaml:"patternName"`
	MinErrorRate     float64 `yaml:"minErrorRate"`
	MinAffectedUsers float64 `yaml:"minAffectedUsers"`
}

// RuleFile is the YAML root structure.
type RuleFile struct {
	Overrides []Rule `yaml:"overrides"`
}

// LoadOverrides reads a rule pack. An empty path or missing file yields no overrides.
func LoadOverrides(path string) ([]Override, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes and validates a YAML rule pack.
func ParseOverrides(data []byte) ([]Override, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse override rules: %w", err)
	}
	out := make([]Override, 0, len(file.Overrides))
	for i := range file.Overrides {
		rule := file.Overrides[i]
		rule.severity = models.ParseSeverity(rule.Level)
		if rule.severity == "" {
			return nil, fmt.Errorf("override %q: unknown severity %q", rule.ID, rule.Level)
		}
		if rule.When == (RuleMatch{}) {
			return nil, fmt.Errorf("override %q: match is empty", rule.ID)
		}
		if rule.Because == "" {
			rule.Because = "override rule " + rule.ID
		}
		out = append(out, rule)
	}
	return out, nil
}

// Match implements Override.
func (r Rule) Match(bug models.BugCandidate) bool {
	m := r.When
	if m.Type != "" && !strings.EqualFold(m.Type, bug.Type) {
		return false
	}
	if m.Category != "" && !strings.EqualFold(m.Category, bug.Category) {
		return false
	}
	if m.Environment != "" && !strings.EqualFold(m.Environment, bug.Environment) {
		return false
	}
	if m.PatternName != "" && !matchedPattern(bug, m.PatternName) {
		return false
	}
	if m.MinErrorRate > 0 && bug.ErrorRate < m.MinErrorRate {
		return false
	}
	if m.MinAffectedUsers > 0 && bug.AffectedUsers < m.MinAffectedUsers {
		return false
	}
	return true
}

// Severity implements Override.
func (r Rule) Severity() models.Severity { return r.severity }

// Reason implements Override.
func (r Rule) Reason() string { return r.Because }

func matchedPattern(bug models.BugCandidate, name string) bool {
	for _, p := range bug.MatchedPatterns {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}
