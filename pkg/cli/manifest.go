package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest describes a training run: which clips belong to which language
// and how the mixtures are fitted.
//
//	output: ./models
//	components: 16
//	covariance_type: diag
//	languages:
//	  french:
//	    - clips/fr/*.wav
//	  english:
//	    - clips/en/*.mp3
type Manifest struct {
	// Output is the model directory (relative to the manifest)
	Output string `yaml:"output,omitempty" json:"output,omitempty"`

	// Components is the number of mixture components per language
	Components int `yaml:"components,omitempty" json:"components,omitempty"`

	// CovarianceType is full, diag, spherical or tied
	CovarianceType string `yaml:"covariance_type,omitempty" json:"covariance_type,omitempty"`

	// MaxIter caps EM iterations
	MaxIter int `yaml:"max_iter,omitempty" json:"max_iter,omitempty"`

	// Languages maps a label to clip paths or glob patterns
	Languages map[string][]string `yaml:"languages" json:"languages"`

	// dir is the directory relative paths are resolved against
	dir string
}

// LoadManifest loads a manifest from a YAML or JSON file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := ParseManifest(data, path)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// LoadManifestFrom reads a manifest from r, for example stdin. Relative
// paths resolve against the working directory.
func LoadManifestFrom(r io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data, "")
}

// ParseManifest parses manifest data based on file extension or content.
func ParseManifest(data []byte, filename string) (*Manifest, error) {
	var m Manifest
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		// Try YAML first, then JSON
		if err := yaml.Unmarshal(data, &m); err != nil {
			if err2 := json.Unmarshal(data, &m); err2 != nil {
				return nil, errors.New("failed to parse manifest (tried YAML and JSON)")
			}
		}
	}
	m.dir = "."
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks labels and patterns.
func (m *Manifest) Validate() error {
	if len(m.Languages) == 0 {
		return errors.New("manifest: no languages")
	}
	for label, patterns := range m.Languages {
		if label == "" || strings.ContainsAny(label, `/\`) {
			return fmt.Errorf("manifest: invalid language label %q", label)
		}
		if len(patterns) == 0 {
			return fmt.Errorf("manifest: language %q has no clips", label)
		}
	}
	if m.Components < 0 || m.MaxIter < 0 {
		return errors.New("manifest: components and max_iter must not be negative")
	}
	return nil
}

// OutputDir returns Output resolved against the manifest location, or ""
// when unset.
func (m *Manifest) OutputDir() string {
	if m.Output == "" {
		return ""
	}
	return m.resolve(m.Output)
}

// Clips expands every pattern and returns the sorted, de-duplicated clip
// paths per language. A pattern that matches nothing is an error.
func (m *Manifest) Clips() (map[string][]string, error) {
	out := make(map[string][]string, len(m.Languages))
	for label, patterns := range m.Languages {
		seen := make(map[string]bool)
		var clips []string
		for _, p := range patterns {
			matches, err := filepath.Glob(m.resolve(p))
			if err != nil {
				return nil, fmt.Errorf("manifest: %s: %w", label, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("manifest: %s: %q matches no files", label, p)
			}
			for _, c := range matches {
				if !seen[c] {
					seen[c] = true
					clips = append(clips, c)
				}
			}
		}
		sort.Strings(clips)
		out[label] = clips
	}
	return out, nil
}

// Labels returns the language labels in sorted order.
func (m *Manifest) Labels() []string {
	labels := make([]string, 0, len(m.Languages))
	for l := range m.Languages {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}
