package patterns

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// PatternID identifies a built-in failure signature.
type PatternID int

const (
	NullReference PatternID = iota
	MemoryExhaustion
	Timeout
	ConnectionFailure
	DataCorruption
	SecurityViolation
	RaceCondition
	AssertionFailure
	TypeError
	RateLimit
	UIRendering
	Deprecation
)

// Pattern is a named, ordered list of case-insensitive signatures.
type Pattern struct {
	Name       string
	Signatures []*regexp.Regexp
	Severity   models.Severity
	Category   string
}

// Match tests signatures in order and stops at the first hit.
func (p Pattern) Match(text string) bool {
	for _, sig := range p.Signatures {
		if sig.MatchString(text) {
			return true
		}
	}
	return false
}

type definition struct {
	name       string
	signatures []string
	severity   models.Severity
	category   string
}

var builtinDefinitions = map[PatternID]definition{
	NullReference: {
		name: "null_reference",
		signatures: []string{
			`cannot read propert(y|ies)\b.*\bof (null|undefined)`,
			`null ?pointer`,
			`nil pointer dereference`,
			`NullReferenceException`,
			`is not an object`,
			`'NoneType' object`,
		},
		severity: models.SeverityHigh,
		category: "runtime",
	},
	MemoryExhaustion: {
		name: "memory_exhaustion",
		signatures: []string{
			`out of memory`,
			`heap (out of memory|limit)`,
			`OutOfMemoryError`,
			`allocation failed`,
			`maximum call stack size exceeded`,
		},
		severity: models.SeverityCritical,
		category: "resource",
	},
	Timeout: {
		name: "timeout",
		signatures: []string{
			`time(d)? ?out`,
			`deadline exceeded`,
			`ETIMEDOUT`,
			`request took too long`,
		},
		severity: models.SeverityMedium,
		category: "performance",
	},
	ConnectionFailure: {
		name: "connection_failure",
		signatures: []string{
			`ECONNREFUSED`,
			`ECONNRESET`,
			`connection (refused|reset|closed|lost)`,
			`socket hang up`,
			`network (error|unreachable)`,
			`no route to host`,
		},
		severity: models.SeverityHigh,
		category: "network",
	},
	DataCorruption: {
		name: "data_corruption",
		signatures: []string{
			`data corrupt`,
			`checksum (mismatch|failed)`,
			`integrity (violation|check failed)`,
			`invalid (data|state) (format|detected)`,
			`unexpected end of (json|input)`,
		},
		severity: models.SeverityCritical,
		category: "data",
	},
	SecurityViolation: {
		name: "security_violation",
		signatures: []string{
			`unauthori[sz]ed`,
			`forbidden`,
			`access denied`,
			`permission denied`,
			`csrf`,
			`xss`,
			`sql injection`,
			`invalid (token|signature|credentials)`,
		},
		severity: models.SeverityCritical,
		category: "security",
	},
	RaceCondition: {
		name: "race_condition",
		signatures: []string{
			`race condition`,
			`data race`,
			`deadlock`,
			`concurrent modification`,
			`lock (timeout|wait)`,
		},
		severity: models.SeverityHigh,
		category: "concurrency",
	},
	AssertionFailure: {
		name: "assertion_failure",
		signatures: []string{
			`assertion ?(error|failed)`,
			`expected .+ (to (be|equal)|but got)`,
			`expect\(.+\)\.to`,
		},
		severity: models.SeverityMedium,
		category: "functional",
	},
	TypeError: {
		name: "type_error",
		signatures: []string{
			`TypeError`,
			`is not a function`,
			`is not defined`,
			`undefined method`,
			`ClassCastException`,
		},
		severity: models.SeverityHigh,
		category: "runtime",
	},
	RateLimit: {
		name: "rate_limit",
		signatures: []string{
			`rate limit`,
			`too many requests`,
			`\b429\b`,
			`quota exceeded`,
			`throttl`,
		},
		severity: models.SeverityMedium,
		category: "capacity",
	},
	UIRendering: {
		name: "ui_rendering",
		signatures: []string{
			`element (not found|not visible|is not clickable)`,
			`failed to render`,
			`hydration`,
			`layout shift`,
		},
		severity: models.SeverityLow,
		category: "usability",
	},
	Deprecation: {
		name: "deprecation",
		signatures: []string{
			`deprecat`,
			`will be removed in`,
		},
		severity: models.SeverityLow,
		category: "maintenance",
	},
}

var builtins = compileBuiltins()

func compileBuiltins() []Pattern {
	out := make([]Pattern, 0, len(builtinDefinitions))
	for id := NullReference; id <= Deprecation; id++ {
		def := builtinDefinitions[id]
		p, err := compile(def.name, def.signatures, def.severity, def.category)
		if err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}

func compile(name string, signatures []string, severity models.Severity, category string) (Pattern, error) {
	p := Pattern{Name: name, Severity: severity, Category: category}
	for _, sig := range signatures {
		re, err := regexp.Compile("(?i)" + sig)
		if err != nil {
			return Pattern{}, fmt.Errorf("pattern %s: compile %q: %w", name, sig, err)
		}
		p.Signatures = append(p.Signatures, re)
	}
	return p, nil
}

// Builtin returns the registry entry for id.
func Builtin(id PatternID) (Pattern, bool) {
	if id < NullReference || id > Deprecation {
		return Pattern{}, false
	}
	return builtins[id], true
}

// String returns the pattern name.
func (id PatternID) String() string {
	if p, ok := Builtin(id); ok {
		return p.Name
	}
	return fmt.Sprintf("PatternID(%d)", int(id))
}

// Library is the immutable pattern taxonomy used by the detector.
type Library struct {
	patterns []Pattern
}

// NewLibrary returns the built-in taxonomy followed by extra patterns.
// Duplicate names are rejected.
func NewLibrary(extra ...Pattern) (*Library, error) {
	seen := make(map[string]struct{}, len(builtins)+len(extra))
	all := make([]Pattern, 0, len(builtins)+len(extra))
	for _, p := range append(append([]Pattern(nil), builtins...), extra...) {
		key := strings.ToLower(p.Name)
		if key == "" {
			return nil, fmt.Errorf("pattern without name")
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate pattern %q", p.Name)
		}
		if !p.Severity.Valid() {
			return nil, fmt.Errorf("pattern %q: invalid severity %q", p.Name, p.Severity)
		}
		if len(p.Signatures) == 0 {
			return nil, fmt.Errorf("pattern %q: no signatures", p.Name)
		}
		seen[key] = struct{}{}
		all = append(all, p)
	}
	return &Library{patterns: all}, nil
}

// DefaultLibrary returns the built-in taxonomy only.
func DefaultLibrary() *Library {
	return &Library{patterns: append([]Pattern(nil), builtins...)}
}

// Patterns returns a copy of the registered patterns in evaluation order.
func (l *Library) Patterns() []Pattern {
	return append([]Pattern(nil), l.patterns...)
}

// Detect returns every pattern with at least one matching signature.
func (l *Library) Detect(text string) []models.PatternMatch {
	if l == nil || strings.TrimSpace(text) == "" {
		return nil
	}
	var matches []models.PatternMatch
	for _, p := range l.patterns {
		if p.Match(text) {
			matches = append(matches, models.PatternMatch{Name: p.Name, Severity: p.Severity, Category: p.Category})
		}
	}
	return matches
}
