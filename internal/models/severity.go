package models

import "strings"

// Severity captures intrinsic badness tiers.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities: critical=4 ... low=1, unknown=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the four known tiers.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// ParseSeverity normalises free-form input, returning "" for unknown values.
func ParseSeverity(value string) Severity {
	s := Severity(strings.ToLower(strings.TrimSpace(value)))
	if s.Valid() {
		return s
	}
	return ""
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Priority is the actionable queue rank.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Rank orders priorities so that P0 sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	default:
		return 3
	}
}

// Complexity estimates how hard a fix is.
type Complexity string

const (
	ComplexityTrivial     Complexity = "trivial"
	ComplexitySimple      Complexity = "simple"
	ComplexityModerate    Complexity = "moderate"
	ComplexityComplex     Complexity = "complex"
	ComplexityVeryComplex Complexity = "very_complex"
)

// FixRisk is the chance a fix causes collateral damage.
type FixRisk string

const (
	FixRiskLow    FixRisk = "low"
	FixRiskMedium FixRisk = "medium"
	FixRiskHigh   FixRisk = "high"
)

// Reproducibility is tri-state; the zero value means unknown.
type Reproducibility string

const (
	ReproducibleAlways       Reproducibility = "true"
	ReproducibleIntermittent Reproducibility = "intermittent"
	ReproducibleNever        Reproducibility = "false"
)

// ParseReproducibility accepts booleans and the "intermittent" keyword.
func ParseReproducibility(value string) Reproducibility {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "always":
		return ReproducibleAlways
	case "intermittent", "sometimes", "flaky":
		return ReproducibleIntermittent
	case "false", "no", "never":
		return ReproducibleNever
	default:
		return ""
	}
}
