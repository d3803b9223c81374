package rootcause

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

const (
	riskHigh   = "high"
	riskMedium = "medium"
)

var riskyKey = regexp.MustCompile(`(?i)(password|secret|key|token|url|host|timeout|limit|enabled|disabled)`)

func (a *Analyzer) analyzeConfiguration(at time.Time, actx models.AnalysisContext) models.ConfigurationAnalysis {
	var out models.ConfigurationAnalysis

	for _, change := range actx.ConfigHistory {
		age := at.Sub(change.Timestamp)
		if age < 0 || age > a.cfg.ConfigDriftWindow {
			continue
		}
		risk := riskMedium
		if riskyKey.MatchString(change.Key) {
			risk = riskHigh
		}
		out.Drift = append(out.Drift, models.ConfigDrift{Change: change, Risk: risk})
	}

	for _, key := range actx.RequiredConfigs {
		if _, ok := lookupPath(actx.CurrentConfig, key); !ok {
			out.Missing = append(out.Missing, key)
		}
	}

	keys := make([]string, 0, len(actx.ConfigSchema))
	for key := range actx.ConfigSchema {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, ok := lookupPath(actx.CurrentConfig, key)
		if !ok {
			continue
		}
		out.Invalid = append(out.Invalid, a.validateValue(key, value, actx.ConfigSchema[key])...)
	}
	return out
}

// lookupPath resolves a dotted key against nested maps.
func lookupPath(cfg map[string]any, dotted string) (any, bool) {
	var current any = cfg
	for _, part := range strings.Split(dotted, ".") {
		var next any
		var ok bool
		switch node := current.(type) {
		case map[string]any:
			next, ok = node[part]
		case map[any]any:
			next, ok = node[part]
		}
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func (a *Analyzer) validateValue(key string, value any, rule models.SchemaRule) []models.ConfigViolation {
	var out []models.ConfigViolation
	violate := func(kind, format string, args ...any) {
		out = append(out, models.ConfigViolation{Key: key, Rule: kind, Message: fmt.Sprintf(format, args...)})
	}

	if rule.Type != "" && !hasType(value, rule.Type) {
		violate("type", "expected %s, got %T", rule.Type, value)
		return out
	}
	if n, ok := toFloat(value); ok {
		if rule.Min != nil && n < *rule.Min {
			violate("min", "%v is below minimum %v", n, *rule.Min)
		}
		if rule.Max != nil && n > *rule.Max {
			violate("max", "%v is above maximum %v", n, *rule.Max)
		}
	}
	if s, ok := value.(string); ok && rule.Pattern != "" {
		if re, err := a.compile(rule.Pattern); err != nil {
			a.logger.Warn("invalid config schema pattern", slog.String("key", key), slog.Any("error", err))
		} else if !re.MatchString(s) {
			violate("pattern", "%q does not match %s", s, rule.Pattern)
		}
	}
	if len(rule.Enum) > 0 {
		text := fmt.Sprint(value)
		allowed := false
		for _, candidate := range rule.Enum {
			if candidate == text {
				allowed = true
				break
			}
		}
		if !allowed {
			violate("enum", "%q is not one of [%s]", text, strings.Join(rule.Enum, ", "))
		}
	}
	return out
}

// compile caches schema patterns; the same schema is evaluated for every candidate in a batch.
func (a *Analyzer) compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := a.patterns.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	a.patterns.Add(pattern, re)
	return re, nil
}

func hasType(value any, kind string) bool {
	switch strings.ToLower(kind) {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := toFloat(value)
		return ok
	case "integer":
		n, ok := toFloat(value)
		return ok && n == float64(int64(n))
	case "boolean", "bool":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		switch value.(type) {
		case map[string]any, map[any]any:
			return true
		}
		return false
	default:
		return true
	}
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
