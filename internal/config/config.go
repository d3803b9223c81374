package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks configuration that fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Defaults.
const (
	DefaultMetricsAddress  = ":2112"
	DefaultHealthAddress   = ":50051"
	DefaultGracefulTimeout = 10 * time.Second
	DefaultWorkers         = 4
	DefaultInsightsTimeout = 5 * time.Second

	DefaultPerformanceThreshold = 1000.0
	DefaultErrorRateThreshold   = 0.05
	DefaultMemoryLeakThreshold  = 100.0
	DefaultLogPatternThreshold  = 5
	DefaultConnectionThreshold  = 0.9
	DefaultFDThreshold          = 0.8
	DefaultTrendThreshold       = 0.2

	DefaultCorrelationThreshold = 0.7
	DefaultTimeWindow           = 5 * time.Minute
	DefaultMinSampleSize        = 5
	DefaultChainGap             = 5 * time.Second
	DefaultDeploymentWindow     = 24 * time.Hour
	DefaultConfigDriftWindow    = 24 * time.Hour
	DefaultCommitLookback       = 7 * 24 * time.Hour
	DefaultPatternCacheSize     = 256

	DefaultAvgTransactionValue = 100.0
	DefaultAvgTicketCost       = 25.0
	DefaultAvailabilityPenalty = 1000.0
	DefaultPerformancePenalty  = 500.0
	DefaultDataLossPenalty     = 50000.0
	DefaultHourlyRate          = 100.0
	DefaultOverheadMultiplier  = 1.3
	DefaultQAMultiplier        = 0.5
	DefaultTotalEnvironments   = 3
	DefaultHistoryCapacity     = 512

	MemoryAxisIndex   = "index"
	MemoryAxisElapsed = "elapsed"
)

// Config captures every setting of the triage engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Inbox      InboxConfig      `yaml:"inbox"`
	Rules      RulesConfig      `yaml:"rules"`
	Patterns   PatternsConfig   `yaml:"patterns"`
	Insights   InsightsConfig   `yaml:"insights"`
	Engine     EngineConfig     `yaml:"engine"`
	Detector   DetectorConfig   `yaml:"detector"`
	Classifier ClassifierConfig `yaml:"classifier"`
	RootCause  RootCauseConfig  `yaml:"rootCause"`
	Impact     ImpactConfig     `yaml:"impact"`
}

// ServerConfig controls the listeners of serve mode.
type ServerConfig struct {
	MetricsAddress  string        `yaml:"metricsAddress"`
	HealthAddress   string        `yaml:"healthAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// InboxConfig configures the bundle drop directory watched in serve mode.
type InboxConfig struct {
	Dir    string `yaml:"dir"`
	OutDir string `yaml:"outDir"`
}

// RulesConfig controls classifier override rule-pack loading.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// PatternsConfig points at an optional extra pattern pack.
type PatternsConfig struct {
	Path string `yaml:"path"`
}

// InsightsConfig points at the Weaviate instance that keeps mined insights.
// An empty endpoint disables persistence.
type InsightsConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"apiKey"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EngineConfig controls batch fan-out.
type EngineConfig struct {
	Workers int `yaml:"workers"`
}

// DetectorConfig tunes the statistical detectors.
type DetectorConfig struct {
	PerformanceThreshold float64  `yaml:"performanceThreshold"`
	TrendThreshold       float64  `yaml:"trendThreshold"`
	ErrorRateThreshold   float64  `yaml:"errorRateThreshold"`
	MemoryLeakThreshold  float64  `yaml:"memoryLeakThreshold"`
	MemoryRegressionAxis string   `yaml:"memoryRegressionAxis"`
	LogPatternThreshold  int      `yaml:"logPatternThreshold"`
	ConnectionThreshold  float64  `yaml:"connectionThreshold"`
	FDThreshold          float64  `yaml:"fdThreshold"`
	ConnectionGauges     []string `yaml:"connectionGauges"`
	ConnectionLimitGauge string   `yaml:"connectionLimitGauge"`
}

// ClassifierWeights weight the four subscores into the final score.
type ClassifierWeights struct {
	UserImpact     float64 `yaml:"userImpact"`
	BusinessImpact float64 `yaml:"businessImpact"`
	Frequency      float64 `yaml:"frequency"`
	Effort         float64 `yaml:"effort"`
}

// SLAConfig maps priorities to response deadlines.
type SLAConfig struct {
	P0 time.Duration `yaml:"p0"`
	P1 time.Duration `yaml:"p1"`
	P2 time.Duration `yaml:"p2"`
	P3 time.Duration `yaml:"p3"`
}

// ClassifierConfig tunes classification.
type ClassifierConfig struct {
	Weights ClassifierWeights `yaml:"weights"`
	SLA     SLAConfig         `yaml:"sla"`
}

// SaturationThresholds are per-resource utilisation limits in [0,1].
type SaturationThresholds struct {
	CPU         float64 `yaml:"cpu"`
	Memory      float64 `yaml:"memory"`
	Disk        float64 `yaml:"disk"`
	Connections float64 `yaml:"connections"`
}

// CausePair declares that errors in Cause commonly trigger errors in Effect.
type CausePair struct {
	Cause  string `yaml:"cause"`
	Effect string `yaml:"effect"`
}

// KnownChain is an ordered list of message keywords forming a recognised cascade.
type KnownChain struct {
	Name  string   `yaml:"name"`
	Steps []string `yaml:"steps"`
}

// RootCauseConfig tunes correlation and root-cause analysis.
type RootCauseConfig struct {
	CorrelationThreshold float64              `yaml:"correlationThreshold"`
	TimeWindow           time.Duration        `yaml:"timeWindow"`
	MinSampleSize        int                  `yaml:"minSampleSize"`
	ChainGap             time.Duration        `yaml:"chainGap"`
	DeploymentWindow     time.Duration        `yaml:"deploymentWindow"`
	ConfigDriftWindow    time.Duration        `yaml:"configDriftWindow"`
	CommitLookback       time.Duration        `yaml:"commitLookback"`
	Saturation           SaturationThresholds `yaml:"saturation"`
	CausePairs           []CausePair          `yaml:"causePairs"`
	KnownChains          []KnownChain         `yaml:"knownChains"`
	PatternCacheSize     int                  `yaml:"patternCacheSize"`
}

// TierWeights weight affected customers by tier.
type TierWeights struct {
	Tier1 float64 `yaml:"tier1"`
	Tier2 float64 `yaml:"tier2"`
	Tier3 float64 `yaml:"tier3"`
	Trial float64 `yaml:"trial"`
}

// PenaltyRates are SLA penalty rates.
type PenaltyRates struct {
	AvailabilityPerHour float64 `yaml:"availabilityPerHour"`
	PerformancePerHour  float64 `yaml:"performancePerHour"`
	DataLoss            float64 `yaml:"dataLoss"`
}

// RoleMultipliers scale the hourly rate per activity.
type RoleMultipliers struct {
	Developer  float64 `yaml:"developer"`
	QA         float64 `yaml:"qa"`
	Operations float64 `yaml:"operations"`
}

// CostRates price engineering effort.
type CostRates struct {
	HourlyRate         float64         `yaml:"hourlyRate"`
	OverheadMultiplier float64         `yaml:"overheadMultiplier"`
	QAMultiplier       float64         `yaml:"qaMultiplier"`
	Roles              RoleMultipliers `yaml:"roles"`
}

// ImpactConfig tunes impact quantification.
type ImpactConfig struct {
	TierWeights         TierWeights  `yaml:"tierWeights"`
	AvgTransactionValue float64      `yaml:"avgTransactionValue"`
	AvgTicketCost       float64      `yaml:"avgTicketCost"`
	Penalties           PenaltyRates `yaml:"penalties"`
	Costs               CostRates    `yaml:"costs"`
	TotalEnvironments   int          `yaml:"totalEnvironments"`
	HistoryCapacity     int          `yaml:"historyCapacity"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_TRIAGE_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with every field at its named default.
func Default() Config {
	return Config{
		Server: ServerConfig{
			MetricsAddress:  DefaultMetricsAddress,
			HealthAddress:   DefaultHealthAddress,
			GracefulTimeout: DefaultGracefulTimeout,
		},
		Logging:    LoggingConfig{Level: "info", JSON: false},
		Inbox:      InboxConfig{Dir: "inbox", OutDir: "reports"},
		Rules:      RulesConfig{Path: "configs/rules/overrides.yaml"},
		Patterns:   PatternsConfig{Path: "configs/patterns/extra.yaml"},
		Insights:   InsightsConfig{Timeout: DefaultInsightsTimeout},
		Engine:     EngineConfig{Workers: DefaultWorkers},
		Detector:   DefaultDetector(),
		Classifier: DefaultClassifier(),
		RootCause:  DefaultRootCause(),
		Impact:     DefaultImpact(),
	}
}

// DefaultDetector returns detector defaults.
func DefaultDetector() DetectorConfig {
	return DetectorConfig{
		PerformanceThreshold: DefaultPerformanceThreshold,
		TrendThreshold:       DefaultTrendThreshold,
		ErrorRateThreshold:   DefaultErrorRateThreshold,
		MemoryLeakThreshold:  DefaultMemoryLeakThreshold,
		MemoryRegressionAxis: MemoryAxisIndex,
		LogPatternThreshold:  DefaultLogPatternThreshold,
		ConnectionThreshold:  DefaultConnectionThreshold,
		FDThreshold:          DefaultFDThreshold,
		ConnectionGauges:     []string{"db_pool_active_connections", "go_sql_open_connections"},
		ConnectionLimitGauge: "db_pool_max_connections",
	}
}

// DefaultClassifier returns classifier defaults.
func DefaultClassifier() ClassifierConfig {
	return ClassifierConfig{
		Weights: ClassifierWeights{UserImpact: 0.35, BusinessImpact: 0.30, Frequency: 0.20, Effort: 0.15},
		SLA: SLAConfig{
			P0: 4 * time.Hour,
			P1: 24 * time.Hour,
			P2: 7 * 24 * time.Hour,
			P3: 30 * 24 * time.Hour,
		},
	}
}

// DefaultRootCause returns root-cause analyzer defaults.
func DefaultRootCause() RootCauseConfig {
	return RootCauseConfig{
		CorrelationThreshold: DefaultCorrelationThreshold,
		TimeWindow:           DefaultTimeWindow,
		MinSampleSize:        DefaultMinSampleSize,
		ChainGap:             DefaultChainGap,
		DeploymentWindow:     DefaultDeploymentWindow,
		ConfigDriftWindow:    DefaultConfigDriftWindow,
		CommitLookback:       DefaultCommitLookback,
		Saturation:           SaturationThresholds{CPU: 0.8, Memory: 0.9, Disk: 0.85, Connections: 0.9},
		KnownChains: []KnownChain{
			{Name: "connection_cascade", Steps: []string{"connection", "timeout", "unavailable"}},
			{Name: "memory_cascade", Steps: []string{"memory", "gc", "crash"}},
			{Name: "auth_cascade", Steps: []string{"token", "unauthorized", "forbidden"}},
		},
		PatternCacheSize: DefaultPatternCacheSize,
	}
}

// DefaultImpact returns impact calculator defaults.
func DefaultImpact() ImpactConfig {
	return ImpactConfig{
		TierWeights:         TierWeights{Tier1: 10, Tier2: 5, Tier3: 2, Trial: 1},
		AvgTransactionValue: DefaultAvgTransactionValue,
		AvgTicketCost:       DefaultAvgTicketCost,
		Penalties: PenaltyRates{
			AvailabilityPerHour: DefaultAvailabilityPenalty,
			PerformancePerHour:  DefaultPerformancePenalty,
			DataLoss:            DefaultDataLossPenalty,
		},
		Costs: CostRates{
			HourlyRate:         DefaultHourlyRate,
			OverheadMultiplier: DefaultOverheadMultiplier,
			QAMultiplier:       DefaultQAMultiplier,
			Roles:              RoleMultipliers{Developer: 1.0, QA: 0.8, Operations: 1.2},
		},
		TotalEnvironments: DefaultTotalEnvironments,
		HistoryCapacity:   DefaultHistoryCapacity,
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_TRIAGE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_HEALTH_ADDRESS"); v != "" {
		cfg.Server.HealthAddress = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_GRACEFUL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.GracefulTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_TRIAGE_INBOX_DIR"); v != "" {
		cfg.Inbox.Dir = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_OUT_DIR"); v != "" {
		cfg.Inbox.OutDir = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_PATTERNS_PATH"); v != "" {
		cfg.Patterns.Path = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_WEAVIATE_ENDPOINT"); v != "" {
		cfg.Insights.Endpoint = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_WEAVIATE_API_KEY"); v != "" {
		cfg.Insights.APIKey = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_PERFORMANCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.PerformanceThreshold = f
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_ERROR_RATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.ErrorRateThreshold = f
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_MEMORY_LEAK_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detector.MemoryLeakThreshold = f
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_MEMORY_AXIS"); v != "" {
		cfg.Detector.MemoryRegressionAxis = strings.ToLower(v)
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CORRELATION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RootCause.CorrelationThreshold = f
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_TIME_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RootCause.TimeWindow = d
		}
	}
}
