package patterns

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// PackEntry is one pattern declared in a YAML pack.
type PackEntry struct {
	Name       string   `yaml:"name"`
	Signatures []string `yaml:"signatures"`
	Severity   string   `yaml:"severity"`
	Category   string   `yaml:"category"`
}

// PackFile is the YAML root structure.
type PackFile struct {
	Patterns []PackEntry `yaml:"patterns"`
}

// LoadPack reads extra patterns from path. An empty path or missing file yields no patterns.
func LoadPack(path string) ([]Pattern, error) {
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
	return ParsePack(data)
}

// ParsePack compiles a YAML pattern pack.
func ParsePack(data []byte) ([]Pattern, error) {
	var file PackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pattern pack: %w", err)
	}
	out := make([]Pattern, 0, len(file.Patterns))
	for _, entry := range file.Patterns {
		severity := models.ParseSeverity(entry.Severity)
		if severity == "" {
			return nil, fmt.Errorf("pattern %q: unknown severity %q", entry.Name, entry.Severity)
		}
		p, err := compile(entry.Name, entry.Signatures, severity, entry.Category)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadLibrary builds the built-in library extended with the pack at path.
func LoadLibrary(path string) (*Library, error) {
	extra, err := LoadPack(path)
	if err != nil {
		return nil, err
	}
	return NewLibrary(extra...)
}
