package cli

import (
	"os"
	"path/filepath"
)

// Paths provides access to the langid directory structure.
type Paths struct {
	// HomeDir is the user's home directory
	HomeDir string
}

// NewPaths creates a Paths rooted at the current user's home directory.
func NewPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Paths{HomeDir: home}, nil
}

// BaseDir returns the base directory (~/.langid)
func (p *Paths) BaseDir() string {
	return filepath.Join(p.HomeDir, DefaultBaseDir)
}

// ConfigFile returns the config file path (~/.langid/config.yaml)
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.BaseDir(), DefaultConfigFile)
}

// ModelsDir returns the default model repository (~/.langid/models)
func (p *Paths) ModelsDir() string {
	return filepath.Join(p.BaseDir(), "models")
}

// CacheDir returns the feature cache directory (~/.langid/cache)
func (p *Paths) CacheDir() string {
	return filepath.Join(p.BaseDir(), "cache")
}

// EnsureBaseDir creates the base directory if it doesn't exist
func (p *Paths) EnsureBaseDir() error {
	return os.MkdirAll(p.BaseDir(), 0755)
}

// EnsureModelsDir creates the model directory if it doesn't exist
func (p *Paths) EnsureModelsDir() error {
	return os.MkdirAll(p.ModelsDir(), 0755)
}

// EnsureCacheDir creates the cache directory if it doesn't exist
func (p *Paths) EnsureCacheDir() error {
	return os.MkdirAll(p.CacheDir(), 0755)
}
