package repo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// ErrUnsupportedFormat is returned for bundle files that are neither YAML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported bundle format")

// Format identifies a bundle encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// timeKeys are the object keys whose values are parsed as timestamps.
var timeKeys = map[string]bool{"timestamp": true, "date": true}

// FormatOf derives the bundle encoding from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// Bundle is a combined drop file: test results plus the context to analyse them in.
type Bundle struct {
	Results models.TestResults
	Context models.AnalysisContext
}

// BundleLoader decodes test-result and context bundles into models.
// Timestamps may be RFC3339, unix seconds or milliseconds, or free-form dates
// resolved against the loader's clock.
type BundleLoader struct {
	clock  utils.Clock
	logger *slog.Logger
}

// NewBundleLoader constructs a loader.
func NewBundleLoader(clock utils.Clock, logger *slog.Logger) *BundleLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &BundleLoader{clock: utils.ClockOrSystem(clock), logger: logger}
}

// LoadTestResults reads a test-result bundle file.
func (l *BundleLoader) LoadTestResults(path string) (models.TestResults, error) {
	var results models.TestResults
	tree, err := l.readTree(path)
	if err != nil {
		return results, err
	}
	if err := l.decodeResults(tree, &results); err != nil {
		return results, utils.NewAppError("repo.LoadTestResults", path, err)
	}
	if err := readScrapes(&results.Resources, filepath.Dir(path)); err != nil {
		return results, utils.NewAppError("repo.LoadTestResults", path, err)
	}
	return results, nil
}

// LoadContext reads an analysis-context bundle file.
func (l *BundleLoader) LoadContext(path string) (models.AnalysisContext, error) {
	var actx models.AnalysisContext
	tree, err := l.readTree(path)
	if err != nil {
		return actx, err
	}
	if err := l.decodeContext(tree, &actx); err != nil {
		return actx, utils.NewAppError("repo.LoadContext", path, err)
	}
	return actx, nil
}

// LoadBundle reads a combined file with top-level "results" and "context" keys.
func (l *BundleLoader) LoadBundle(path string) (Bundle, error) {
	var bundle Bundle
	tree, err := l.readTree(path)
	if err != nil {
		return bundle, err
	}
	return l.DecodeBundle(tree, path)
}

// DecodeBundle splits an already-parsed combined tree. name is the bundle
// path; scrape files it references resolve next to it.
func (l *BundleLoader) DecodeBundle(tree any, name string) (Bundle, error) {
	var bundle Bundle
	root, ok := tree.(map[string]any)
	if !ok {
		return bundle, utils.NewAppError("repo.LoadBundle", name, fmt.Errorf("bundle root must be an object"))
	}
	if results, ok := root["results"]; ok {
		if err := l.decodeResults(results, &bundle.Results); err != nil {
			return bundle, utils.NewAppError("repo.LoadBundle", name+": results", err)
		}
		if err := readScrapes(&bundle.Results.Resources, filepath.Dir(name)); err != nil {
			return bundle, utils.NewAppError("repo.LoadBundle", name+": results", err)
		}
	}
	if actx, ok := root["context"]; ok {
		if err := l.decodeContext(actx, &bundle.Context); err != nil {
			return bundle, utils.NewAppError("repo.LoadBundle", name+": context", err)
		}
	}
	return bundle, nil
}

// Parse decodes raw bytes into a generic tree with timestamps normalised to RFC3339.
func (l *BundleLoader) Parse(data []byte, format Format) (any, error) {
	var tree any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnsupportedFormat)
	}
	return l.normalize(tree), nil
}

func (l *BundleLoader) readTree(path string) (any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewAppError("repo.read", path, err)
	}
	tree, err := l.Parse(data, format)
	if err != nil {
		return nil, utils.NewAppError("repo.read", path, err)
	}
	return tree, nil
}

func (l *BundleLoader) decodeResults(tree any, out *models.TestResults) error {
	return remarshal(tree, out)
}

// readScrapes loads the body of every scrape given by path. Relative paths
// resolve against dir.
func readScrapes(res *models.Resources, dir string) error {
	for i := range res.Scrapes {
		scrape := &res.Scrapes[i]
		if scrape.Body != "" || scrape.Path == "" {
			continue
		}
		path := scrape.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read scrape %s: %w", scrape.Path, err)
		}
		scrape.Body = string(data)
	}
	return nil
}

func (l *BundleLoader) decodeContext(tree any, out *models.AnalysisContext) error {
	if err := remarshal(tree, out); err != nil {
		return err
	}

	// Fields the model keeps out of its JSON shape.
	var extras struct {
		CustomSLAs map[string]models.FlatSLA `json:"customSLAs"`
		GitHistory struct {
			Commits []struct {
				Diff string `json:"diff"`
			} `json:"commits"`
		} `json:"gitHistory"`
	}
	if err := remarshal(tree, &extras); err != nil {
		return err
	}
	if len(extras.CustomSLAs) > 0 {
		out.CustomSLAs = make(map[string]models.SLAPenalty, len(extras.CustomSLAs))
		for customer, sla := range extras.CustomSLAs {
			out.CustomSLAs[customer] = sla
		}
	}
	for i, c := range extras.GitHistory.Commits {
		if i < len(out.GitHistory.Commits) {
			out.GitHistory.Commits[i].Diff = c.Diff
		}
	}
	return nil
}

// normalize rewrites map[any]any into map[string]any and every value under a
// time key into RFC3339. Unparseable timestamps are dropped with a warning so
// the record falls back to the clock default.
func (l *BundleLoader) normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			if timeKeys[k] {
				ts, ok := l.timestamp(child)
				if !ok {
					delete(val, k)
					continue
				}
				val[k] = ts
				continue
			}
			val[k] = l.normalize(child)
		}
		return val
	case map[any]any:
		converted := make(map[string]any, len(val))
		for k, child := range val {
			converted[fmt.Sprint(k)] = child
		}
		return l.normalize(converted)
	case []any:
		for i, child := range val {
			val[i] = l.normalize(child)
		}
		return val
	default:
		return v
	}
}

func (l *BundleLoader) timestamp(v any) (string, bool) {
	var raw string
	switch val := v.(type) {
	case nil:
		return "", false
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), true
	case string:
		raw = val
	case int:
		raw = strconv.Itoa(val)
	case int64:
		raw = strconv.FormatInt(val, 10)
	case uint64:
		raw = strconv.FormatUint(val, 10)
	case float64:
		raw = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		raw = fmt.Sprint(val)
	}

	t, err := utils.ParseTimestamp(raw, l.clock.Now())
	if err != nil {
		l.logger.Warn("ignoring unparseable timestamp", slog.String("value", raw), slog.Any("error", err))
		return "", false
	}
	return t.Format(time.RFC3339Nano), true
}

func remarshal(tree any, out any) error {
	if tree == nil {
		return nil
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode bundle: %w", err)
	}
	return nil
}
