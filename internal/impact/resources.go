package impact

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-triage/internal/models"
)

var baseHours = map[models.Complexity]float64{
	models.ComplexityTrivial:     2,
	models.ComplexitySimple:      8,
	models.ComplexityModerate:    24,
	models.ComplexityComplex:     80,
	models.ComplexityVeryComplex: 200,
}

const (
	researchHours    = 16.0
	hoursPerPerson   = 80.0
	workdayHours     = 8.0
	calibrationBlend = 0.7
)

func complexityOf(bug models.BugCandidate) models.Complexity {
	if _, ok := baseHours[bug.Complexity]; ok {
		return bug.Complexity
	}
	return models.ComplexityModerate
}

func (c *Calculator) estimateResources(bug models.BugCandidate, actx models.AnalysisContext) models.ResourceEstimate {
	dev := baseHours[complexityOf(bug)]
	if bug.ArchitecturalChange {
		dev *= 2
	}
	if bug.FilesAffected > 10 {
		dev *= 1.5
	}
	if len(bug.ExternalDependencies) > 0 {
		dev *= 1.3
	}
	if bug.RequiresResearch {
		dev += researchHours
	}
	calibration := c.calibration(bug, actx)
	dev *= calibration

	testing := dev * c.cfg.Costs.QAMultiplier
	if bug.RegressionTesting {
		testing += 8
	}
	if bug.PerformanceTesting {
		testing += 16
	}
	if bug.SecurityTesting {
		testing += 24
	}

	deploy := 2.0
	if bug.RequiresMigration {
		deploy += 8
	}
	if bug.InfrastructureChange {
		deploy += 16
	}
	if bug.RequiresCoordination {
		deploy += 4
	}
	if bug.RequiresDowntime {
		deploy += 6
	}
	if bug.MultiRegion {
		deploy *= 2
	}

	roles := c.cfg.Costs.Roles
	out := models.ResourceEstimate{
		Development: models.Effort{Hours: dev, Cost: c.cost(dev, roles.Developer)},
		Testing:     models.Effort{Hours: testing, Cost: c.cost(testing, roles.QA)},
		Deployment:  models.Effort{Hours: deploy, Cost: c.cost(deploy, roles.Operations)},
		Calibration: calibration,
	}
	out.Total.Hours = dev + testing + deploy
	out.Total.Cost = out.Development.Cost + out.Testing.Cost + out.Deployment.Cost
	out.Total.People = int(math.Max(1, math.Ceil(out.Total.Hours/hoursPerPerson)))
	return out
}

func (c *Calculator) cost(hours, role float64) float64 {
	return hours * c.cfg.Costs.HourlyRate * role * c.cfg.Costs.OverheadMultiplier
}

// calibration blends past estimate accuracy for the same complexity and category
// into a multiplier; 1 when there is no usable history.
func (c *Calculator) calibration(bug models.BugCandidate, actx models.AnalysisContext) float64 {
	complexity := complexityOf(bug)
	var estimated, actual []float64
	records := append(c.history.Records(), actx.HistoricalEstimates...)
	for _, r := range records {
		if r.Complexity != complexity || !strings.EqualFold(r.Category, bug.Category) || r.EstimatedHours <= 0 || r.ActualHours < 0 {
			continue
		}
		estimated = append(estimated, r.EstimatedHours)
		actual = append(actual, r.ActualHours)
	}
	if len(estimated) == 0 {
		return 1
	}
	meanEstimated := stat.Mean(estimated, nil)
	meanActual := stat.Mean(actual, nil)
	return 1 + calibrationBlend*(meanActual/meanEstimated-1)
}

func (c *Calculator) timelineImpact(bug models.BugCandidate, resources models.ResourceEstimate, actx models.AnalysisContext) models.TimelineImpact {
	people := math.Max(1, float64(resources.Total.People))
	out := models.TimelineImpact{FixDurationDays: math.Ceil(resources.Total.Hours / (people * workdayHours))}

	now := c.clock.Now()
	atRisk, criticalAtRisk := 0, 0
	for _, m := range actx.Milestones {
		if !touchesComponent(m, bug.Component) {
			continue
		}
		days := m.Date.Sub(now).Hours() / 24
		if days < 0 {
			continue
		}
		mi := models.MilestoneImpact{
			Name:      m.Name,
			Date:      m.Date,
			DaysUntil: days,
			AtRisk:    days < out.FixDurationDays,
			Critical:  m.Critical,
		}
		if mi.AtRisk {
			atRisk++
			if m.Critical {
				criticalAtRisk++
			}
		}
		out.MilestoneImpact = append(out.MilestoneImpact, mi)
	}
	out.CriticalPath = criticalAtRisk > 0
	out.Score = clamp(out.FixDurationDays*5+float64(atRisk)*25+float64(criticalAtRisk)*25, 0, 100)
	return out
}

func touchesComponent(m models.Milestone, component string) bool {
	if len(m.Components) == 0 {
		return true
	}
	for _, c := range m.Components {
		if strings.EqualFold(c, component) {
			return true
		}
	}
	return false
}
