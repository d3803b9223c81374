package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate reports every inconsistent setting at once. The returned error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.Workers < 1 {
		errs = append(errs, fmt.Errorf("engine.workers must be >= 1, got %d", c.Engine.Workers))
	}
	if c.Insights.Timeout < 0 {
		errs = append(errs, fmt.Errorf("insights.timeout must be >= 0, got %s", c.Insights.Timeout))
	}
	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Classifier.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.RootCause.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Impact.Validate(); err != nil {
		errs = append(errs, err)
	}
	return wrap(errs)
}

// Validate checks detector thresholds.
func (d DetectorConfig) Validate() error {
	var errs []error
	errs = appendPositive(errs, "detector.performanceThreshold", d.PerformanceThreshold)
	errs = appendUnit(errs, "detector.trendThreshold", d.TrendThreshold)
	errs = appendUnit(errs, "detector.errorRateThreshold", d.ErrorRateThreshold)
	errs = appendPositive(errs, "detector.memoryLeakThreshold", d.MemoryLeakThreshold)
	errs = appendUnit(errs, "detector.connectionThreshold", d.ConnectionThreshold)
	errs = appendUnit(errs, "detector.fdThreshold", d.FDThreshold)
	if d.LogPatternThreshold < 1 {
		errs = append(errs, fmt.Errorf("detector.logPatternThreshold must be >= 1, got %d", d.LogPatternThreshold))
	}
	switch d.MemoryRegressionAxis {
	case MemoryAxisIndex, MemoryAxisElapsed:
	default:
		errs = append(errs, fmt.Errorf("detector.memoryRegressionAxis must be %q or %q, got %q", MemoryAxisIndex, MemoryAxisElapsed, d.MemoryRegressionAxis))
	}
	return wrap(errs)
}

// Validate checks classifier weights and SLAs.
func (c ClassifierConfig) Validate() error {
	var errs []error
	w := c.Weights
	for name, v := range map[string]float64{
		"userImpact":     w.UserImpact,
		"businessImpact": w.BusinessImpact,
		"frequency":      w.Frequency,
		"effort":         w.Effort,
	} {
		if v < 0 || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("classifier.weights.%s must be >= 0, got %v", name, v))
		}
	}
	if sum := w.UserImpact + w.BusinessImpact + w.Frequency + w.Effort; sum <= 0 || sum > 1.0001 {
		errs = append(errs, fmt.Errorf("classifier weights must sum to (0,1], got %v", sum))
	}
	if c.SLA.P0 <= 0 || c.SLA.P1 <= 0 || c.SLA.P2 <= 0 || c.SLA.P3 <= 0 {
		errs = append(errs, errors.New("classifier.sla durations must be positive"))
	}
	return wrap(errs)
}

// Validate checks correlation settings.
func (r RootCauseConfig) Validate() error {
	var errs []error
	errs = appendUnit(errs, "rootCause.correlationThreshold", r.CorrelationThreshold)
	if r.TimeWindow <= 0 {
		errs = append(errs, fmt.Errorf("rootCause.timeWindow must be positive, got %s", r.TimeWindow))
	}
	if r.MinSampleSize < 1 {
		errs = append(errs, fmt.Errorf("rootCause.minSampleSize must be >= 1, got %d", r.MinSampleSize))
	}
	if r.ChainGap <= 0 || r.DeploymentWindow <= 0 || r.ConfigDriftWindow <= 0 || r.CommitLookback <= 0 {
		errs = append(errs, errors.New("rootCause windows must be positive"))
	}
	s := r.Saturation
	errs = appendUnit(errs, "rootCause.saturation.cpu", s.CPU)
	errs = appendUnit(errs, "rootCause.saturation.memory", s.Memory)
	errs = appendUnit(errs, "rootCause.saturation.disk", s.Disk)
	errs = appendUnit(errs, "rootCause.saturation.connections", s.Connections)
	for _, chain := range r.KnownChains {
		if len(chain.Steps) < 2 {
			errs = append(errs, fmt.Errorf("rootCause.knownChains %q needs at least 2 steps", chain.Name))
		}
	}
	if r.PatternCacheSize < 1 {
		errs = append(errs, fmt.Errorf("rootCause.patternCacheSize must be >= 1, got %d", r.PatternCacheSize))
	}
	return wrap(errs)
}

// Validate checks impact rates.
func (i ImpactConfig) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"impact.tierWeights.tier1":             i.TierWeights.Tier1,
		"impact.tierWeights.tier2":             i.TierWeights.Tier2,
		"impact.tierWeights.tier3":             i.TierWeights.Tier3,
		"impact.tierWeights.trial":             i.TierWeights.Trial,
		"impact.avgTransactionValue":           i.AvgTransactionValue,
		"impact.avgTicketCost":                 i.AvgTicketCost,
		"impact.penalties.availabilityPerHour": i.Penalties.AvailabilityPerHour,
		"impact.penalties.performancePerHour":  i.Penalties.PerformancePerHour,
		"impact.penalties.dataLoss":            i.Penalties.DataLoss,
		"impact.costs.qaMultiplier":            i.Costs.QAMultiplier,
		"impact.costs.roles.developer":         i.Costs.Roles.Developer,
		"impact.costs.roles.qa":                i.Costs.Roles.QA,
		"impact.costs.roles.operations":        i.Costs.Roles.Operations,
	} {
		if v < 0 || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %v", name, v))
		}
	}
	if i.TierWeights.Tier1 <= 0 {
		errs = append(errs, fmt.Errorf("impact.tierWeights.tier1 must be positive, got %v", i.TierWeights.Tier1))
	}
	errs = appendPositive(errs, "impact.costs.hourlyRate", i.Costs.HourlyRate)
	errs = appendPositive(errs, "impact.costs.overheadMultiplier", i.Costs.OverheadMultiplier)
	if i.TotalEnvironments < 1 {
		errs = append(errs, fmt.Errorf("impact.totalEnvironments must be >= 1, got %d", i.TotalEnvironments))
	}
	if i.HistoryCapacity < 1 {
		errs = append(errs, fmt.Errorf("impact.historyCapacity must be >= 1, got %d", i.HistoryCapacity))
	}
	return wrap(errs)
}

func appendPositive(errs []error, name string, v float64) []error {
	if !(v > 0) {
		return append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
	}
	return errs
}

func appendUnit(errs []error, name string, v float64) []error {
	if !(v >= 0 && v <= 1) {
		return append(errs, fmt.Errorf("%s must be within [0,1], got %v", name, v))
	}
	return errs
}

func wrap(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
