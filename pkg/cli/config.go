package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".langid"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config represents the configuration file
type Config struct {
	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	// configPath is the path to the config file
	configPath string
}

// Context is one named profile: where models come from and how clips are
// analysed.
type Context struct {
	// Name is the context name
	Name string `yaml:"name"`

	// Models selects the model repository
	Models ModelSource `yaml:"models,omitempty"`

	// Features overrides extraction settings (optional)
	Features Features `yaml:"features,omitempty"`

	// Cache configures the feature cache (optional)
	Cache CacheSettings `yaml:"cache,omitempty"`
}

// ModelSource is either a local directory or an S3 location. S3 wins when
// a bucket is set.
type ModelSource struct {
	// Dir is a local model directory
	Dir string `yaml:"dir,omitempty"`

	// S3 is a remote model repository
	S3 S3Source `yaml:"s3,omitempty"`
}

// S3Source locates models in an S3-compatible bucket.
type S3Source struct {
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Features holds extraction overrides. Zero values keep the defaults.
type Features struct {
	// MaxDuration is a Go duration string such as "5s"
	MaxDuration string `yaml:"max_duration,omitempty"`

	// SampleRate is the analysis rate in Hz
	SampleRate int `yaml:"sample_rate,omitempty"`

	// CMVN enables per-clip mean/variance normalisation
	CMVN bool `yaml:"cmvn,omitempty"`
}

// CacheSettings configures the Badger feature cache.
type CacheSettings struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`

	// TTL is a Go duration string; empty keeps entries forever
	TTL string `yaml:"ttl,omitempty"`
}

// LoadConfig loads or creates ~/.langid/config.yaml
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads configuration from a custom path
func LoadConfigWithPath(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		paths, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = paths.ConfigFile()
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Create empty config file
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Ensure contexts map is initialized
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	for name, ctx := range cfg.Contexts {
		if ctx == nil {
			cfg.Contexts[name] = &Context{Name: name}
			continue
		}
		ctx.Name = name
	}
	cfg.configPath = configPath

	return cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the config directory path
func (c *Config) Dir() string {
	return filepath.Dir(c.configPath)
}

// AddContext adds or replaces a context
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the context by name, or the current context if
// name is empty. Without any current context an empty one is returned, so
// that flags and defaults still apply.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		if c.CurrentContext == "" {
			return &Context{}, nil
		}
		name = c.CurrentContext
	}
	return c.GetContext(name)
}

// ListContexts returns all context names, sorted
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys accepted by Context.Set and Context.Get.
var contextKeys = []string{
	"models.dir",
	"models.s3.bucket",
	"models.s3.prefix",
	"models.s3.region",
	"models.s3.endpoint",
	"features.max_duration",
	"features.sample_rate",
	"features.cmvn",
	"cache.enabled",
	"cache.dir",
	"cache.ttl",
}

// ContextKeys returns the dotted keys that Set and Get understand.
func ContextKeys() []string {
	return append([]string(nil), contextKeys...)
}

// Set assigns a dotted key such as "models.dir" from its string form.
// Values are validated before they are stored.
func (ctx *Context) Set(key, value string) error {
	switch key {
	case "models.dir":
		ctx.Models.Dir = value
	case "models.s3.bucket":
		ctx.Models.S3.Bucket = value
	case "models.s3.prefix":
		ctx.Models.S3.Prefix = value
	case "models.s3.region":
		ctx.Models.S3.Region = value
	case "models.s3.endpoint":
		ctx.Models.S3.Endpoint = value
	case "features.max_duration":
		if value != "" {
			if d, err := time.ParseDuration(value); err != nil || d <= 0 {
				return fmt.Errorf("%s: invalid duration %q", key, value)
			}
		}
		ctx.Features.MaxDuration = value
	case "features.sample_rate":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: invalid sample rate %q", key, value)
		}
		ctx.Features.SampleRate = n
	case "features.cmvn":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		ctx.Features.CMVN = b
	case "cache.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		ctx.Cache.Enabled = b
	case "cache.dir":
		ctx.Cache.Dir = value
	case "cache.ttl":
		if value != "" {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("%s: invalid duration %q", key, value)
			}
		}
		ctx.Cache.TTL = value
	default:
		return fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(contextKeys, ", "))
	}
	return nil
}

// Get returns the string form of a dotted key.
func (ctx *Context) Get(key string) (string, error) {
	switch key {
	case "models.dir":
		return ctx.Models.Dir, nil
	case "models.s3.bucket":
		return ctx.Models.S3.Bucket, nil
	case "models.s3.prefix":
		return ctx.Models.S3.Prefix, nil
	case "models.s3.region":
		return ctx.Models.S3.Region, nil
	case "models.s3.endpoint":
		return ctx.Models.S3.Endpoint, nil
	case "features.max_duration":
		return ctx.Features.MaxDuration, nil
	case "features.sample_rate":
		if ctx.Features.SampleRate == 0 {
			return "", nil
		}
		return strconv.Itoa(ctx.Features.SampleRate), nil
	case "features.cmvn":
		return strconv.FormatBool(ctx.Features.CMVN), nil
	case "cache.enabled":
		return strconv.FormatBool(ctx.Cache.Enabled), nil
	case "cache.dir":
		return ctx.Cache.Dir, nil
	case "cache.ttl":
		return ctx.Cache.TTL, nil
	}
	return "", fmt.Errorf("unknown key %q", key)
}

// Duration parses MaxDuration, returning 0 when unset.
func (f Features) Duration() (time.Duration, error) {
	if f.MaxDuration == "" {
		return 0, nil
	}
	return time.ParseDuration(f.MaxDuration)
}

// TTLDuration parses TTL, returning 0 when unset.
func (c CacheSettings) TTLDuration() (time.Duration, error) {
	if c.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(c.TTL)
}

// UsesS3 reports whether models come from a bucket.
func (m ModelSource) UsesS3() bool {
	return m.S3.Bucket != ""
}
