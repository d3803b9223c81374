package rootcause

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// Stack frame formats, tried in order; the first match on a line wins.
var frameFormats = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(/?(?:[\w.-]+/)*[\w.-]+\.go):\d+`),
	regexp.MustCompile(`at .+? \((/?(?:[\w.@-]+/)*[\w.@-]+\.(?:js|jsx|ts|tsx|mjs|cjs)):\d+:\d+\)`),
	regexp.MustCompile(`at (/?(?:[\w.@-]+/)*[\w.@-]+\.(?:js|jsx|ts|tsx|mjs|cjs)):\d+:\d+`),
	regexp.MustCompile(`File "([^"]+\.py)", line \d+`),
	regexp.MustCompile(`at [\w.$<>]+\(([\w$]+\.(?:java|kt|scala)):\d+\)`),
}

const hotspotComplexity = 10

func (a *Analyzer) analyzeCodePath(bug models.BugCandidate, at time.Time, actx models.AnalysisContext) models.CodePath {
	path := models.CodePath{AffectedFiles: parseStackTrace(bug.StackTrace)}
	if len(path.AffectedFiles) == 0 {
		return path
	}

	for _, file := range path.AffectedFiles {
		if key, metric, ok := lookupMetric(file, actx.CodeMetrics); ok && metric.Complexity >= hotspotComplexity {
			path.Hotspots = append(path.Hotspots, models.Hotspot{
				File:       key,
				Complexity: metric.Complexity,
				Lines:      metric.Lines,
				Churn:      metric.Churn,
			})
		}
	}

	for _, commit := range actx.GitHistory.Commits {
		age := at.Sub(commit.Timestamp)
		if age < 0 || age > a.cfg.CommitLookback {
			continue
		}
		files := commit.Files
		if len(files) == 0 && commit.Diff != "" {
			files = a.diffFiles(commit)
		}
		if touchesAny(files, path.AffectedFiles) {
			commit.Files = files
			path.RecentChanges = append(path.RecentChanges, commit)
		}
	}
	return path
}

// parseStackTrace returns the distinct source files referenced by a stack trace.
func parseStackTrace(trace string) []string {
	if trace == "" {
		return nil
	}
	seen := make(map[string]bool)
	var files []string
	for _, line := range strings.Split(trace, "\n") {
		for _, re := range frameFormats {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if !seen[m[1]] {
				seen[m[1]] = true
				files = append(files, m[1])
			}
			break
		}
	}
	return files
}

func (a *Analyzer) diffFiles(commit models.Commit) []string {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(commit.Diff))
	if err != nil {
		a.logger.Warn("unparseable commit diff", slog.String("commit", commit.Hash), slog.Any("error", err))
		return nil
	}
	var files []string
	for _, fd := range fileDiffs {
		name := fd.NewName
		if name == "" || name == "/dev/null" {
			name = fd.OrigName
		}
		name = strings.TrimPrefix(strings.TrimPrefix(name, "b/"), "a/")
		if name != "" {
			files = append(files, name)
		}
	}
	return files
}

func lookupMetric(file string, metrics map[string]models.CodeMetric) (string, models.CodeMetric, bool) {
	if m, ok := metrics[file]; ok {
		return file, m, true
	}
	keys := make([]string, 0, len(metrics))
	for key := range metrics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if samePath(key, file) {
			return key, metrics[key], true
		}
	}
	return "", models.CodeMetric{}, false
}

func touchesAny(files, affected []string) bool {
	for _, f := range files {
		for _, a := range affected {
			if samePath(f, a) {
				return true
			}
		}
	}
	return false
}

// samePath matches when one path is a slash-aligned suffix of the other, so a
// repository-relative path matches an absolute path from a stack frame.
func samePath(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < len(b) {
		a, b = b, a
	}
	return strings.HasSuffix(a, "/"+b)
}
