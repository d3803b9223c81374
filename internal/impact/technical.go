package impact

import "github.com/miradorstack/mirador-triage/internal/models"

func technicalImpact(bug models.BugCandidate, actx models.AnalysisContext) models.TechnicalImpact {
	out := models.TechnicalImpact{
		Complexity:   complexityScore(bug),
		Dependencies: dependencyScore(bug, actx),
		TechDebt:     techDebtScore(bug),
		Architecture: architectureScore(bug),
		Performance:  performanceScore(bug),
	}
	out.Score = out.Complexity*0.3 +
		out.Dependencies*0.2 +
		out.TechDebt*0.15 +
		out.Architecture*0.2 +
		out.Performance*0.15
	return out
}

func complexityScore(bug models.BugCandidate) float64 {
	score := 0.0
	switch {
	case bug.FilesAffected > 20:
		score += 40
	case bug.FilesAffected > 10:
		score += 30
	case bug.FilesAffected > 5:
		score += 20
	case bug.FilesAffected > 1:
		score += 10
	}
	switch {
	case bug.LinesChanged > 1000:
		score += 30
	case bug.LinesChanged > 500:
		score += 20
	case bug.LinesChanged > 100:
		score += 10
	}
	score += clamp(float64(bug.IntegrationPoints)*5, 0, 20)
	if bug.RequiresExtensiveTesting {
		score += 10
	}
	if bug.RequiresMigration || bug.InfrastructureChange {
		score += 10
	}
	return clamp(score, 0, 100)
}

// dependencyScore weighs fan-out by kind; the context dependency graph wins over
// the candidate's own lists when it knows the component.
func dependencyScore(bug models.BugCandidate, actx models.AnalysisContext) float64 {
	internal, external, critical := len(bug.Dependencies), len(bug.ExternalDependencies), len(bug.CriticalDependencies)
	if deps, ok := actx.DependencyGraph[bug.Component]; ok {
		internal, external, critical = len(deps.Internal), len(deps.External), len(deps.Critical)
	}
	return clamp(float64(2*internal+3*external+5*critical), 0, 100)
}

func techDebtScore(bug models.BugCandidate) float64 {
	score := bug.TechDebt
	if bug.QuickFix {
		score += 20
	}
	if bug.RefactorPlanned {
		score -= 30
	}
	return clamp(score, 0, 100)
}

func architectureScore(bug models.BugCandidate) float64 {
	switch {
	case bug.ArchitecturalChange:
		return 80
	case bug.IntegrationPoints > 3:
		return 40
	default:
		return 0
	}
}

func performanceScore(bug models.BugCandidate) float64 {
	switch {
	case bug.Degradation > 0.5:
		return 100
	case bug.Degradation > 0.2:
		return 60
	case bug.Degradation > 0:
		return 30
	default:
		return 0
	}
}
