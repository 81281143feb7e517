package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestConfig(t *testing.T) (*Config, string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), DefaultBaseDir, DefaultConfigFile)
	cfg, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("LoadConfigWithPath error: %v", err)
	}
	return cfg, configPath
}

func TestLoadConfigWithPath_NewConfig(t *testing.T) {
	cfg, configPath := newTestConfig(t)

	if cfg.Contexts == nil {
		t.Error("Contexts should be initialized")
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
	if cfg.Dir() != filepath.Dir(configPath) {
		t.Errorf("Dir() = %q", cfg.Dir())
	}

	// Verify config file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("Config file should be created")
	}
}

func TestLoadConfigWithPath_Invalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("contexts: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigWithPath(configPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	cfg, configPath := newTestConfig(t)

	ctx := &Context{
		Models: ModelSource{
			S3: S3Source{Bucket: "models", Prefix: "lid/v2", Region: "eu-west-1"},
		},
		Features: Features{MaxDuration: "3s", SampleRate: 16000, CMVN: true},
		Cache:    CacheSettings{Enabled: true, TTL: "24h"},
	}
	if err := cfg.AddContext("prod", ctx); err != nil {
		t.Fatalf("AddContext error: %v", err)
	}
	if err := cfg.UseContext("prod"); err != nil {
		t.Fatalf("UseContext error: %v", err)
	}

	loaded, err := LoadConfigWithPath(configPath)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if loaded.CurrentContext != "prod" {
		t.Errorf("CurrentContext = %q, want prod", loaded.CurrentContext)
	}
	got, err := loaded.GetContext("prod")
	if err != nil {
		t.Fatalf("GetContext error: %v", err)
	}
	if got.Name != "prod" {
		t.Errorf("Name = %q, want prod", got.Name)
	}
	if !got.Models.UsesS3() || got.Models.S3.Prefix != "lid/v2" || got.Models.S3.Region != "eu-west-1" {
		t.Errorf("Models = %+v", got.Models)
	}
	if got.Features != ctx.Features {
		t.Errorf("Features = %+v, want %+v", got.Features, ctx.Features)
	}
	if got.Cache != ctx.Cache {
		t.Errorf("Cache = %+v, want %+v", got.Cache, ctx.Cache)
	}
}

func TestConfig_DeleteContext(t *testing.T) {
	cfg, _ := newTestConfig(t)

	cfg.AddContext("a", &Context{})
	cfg.AddContext("b", &Context{})
	cfg.UseContext("a")

	if err := cfg.DeleteContext("a"); err != nil {
		t.Fatalf("DeleteContext error: %v", err)
	}
	if _, ok := cfg.Contexts["a"]; ok {
		t.Error("context a should be deleted")
	}
	if cfg.CurrentContext != "" {
		t.Errorf("CurrentContext = %q, want empty after deleting it", cfg.CurrentContext)
	}
	if err := cfg.DeleteContext("missing"); err == nil {
		t.Error("DeleteContext should fail for an unknown context")
	}
}

func TestConfig_UseContext_NotFound(t *testing.T) {
	cfg, _ := newTestConfig(t)
	if err := cfg.UseContext("nonexistent"); err == nil {
		t.Error("UseContext should fail for an unknown context")
	}
}

func TestConfig_ResolveContext(t *testing.T) {
	cfg, _ := newTestConfig(t)

	// Nothing configured: an empty context, not an error.
	ctx, err := cfg.ResolveContext("")
	if err != nil {
		t.Fatalf("ResolveContext error: %v", err)
	}
	if ctx.Name != "" {
		t.Errorf("Name = %q, want empty", ctx.Name)
	}

	cfg.AddContext("dev", &Context{Models: ModelSource{Dir: "/models"}})
	cfg.AddContext("prod", &Context{})
	cfg.UseContext("dev")

	ctx, err = cfg.ResolveContext("")
	if err != nil || ctx.Name != "dev" {
		t.Fatalf("ResolveContext(\"\") = %v, %v; want dev", ctx, err)
	}
	ctx, err = cfg.ResolveContext("prod")
	if err != nil || ctx.Name != "prod" {
		t.Fatalf("ResolveContext(prod) = %v, %v", ctx, err)
	}
	if _, err := cfg.ResolveContext("missing"); err == nil {
		t.Error("ResolveContext should fail for an unknown context")
	}
}

func TestConfig_ListContexts(t *testing.T) {
	cfg, _ := newTestConfig(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		cfg.AddContext(name, &Context{})
	}
	got := cfg.ListContexts()
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("ListContexts() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ListContexts()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestContext_SetGet(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"models.dir", "/srv/models"},
		{"models.s3.bucket", "lid"},
		{"models.s3.prefix", "v1/"},
		{"models.s3.region", "us-east-1"},
		{"models.s3.endpoint", "http://localhost:9000"},
		{"features.max_duration", "2500ms"},
		{"features.sample_rate", "16000"},
		{"features.cmvn", "true"},
		{"cache.enabled", "true"},
		{"cache.dir", "/tmp/cache"},
		{"cache.ttl", "1h"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			ctx := &Context{}
			if err := ctx.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			got, err := ctx.Get(tt.key)
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got != tt.value {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
	if len(ContextKeys()) != len(tests) {
		t.Errorf("ContextKeys() has %d keys, test covers %d", len(ContextKeys()), len(tests))
	}
}

func TestContext_SetInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"unknown.key", "x"},
		{"features.max_duration", "forever"},
		{"features.max_duration", "-1s"},
		{"features.sample_rate", "fast"},
		{"features.sample_rate", "-8000"},
		{"features.cmvn", "maybe"},
		{"cache.enabled", "yes please"},
		{"cache.ttl", "1 day"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			ctx := &Context{}
			if err := ctx.Set(tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
			}
		})
	}
	if _, err := (&Context{}).Get("unknown.key"); err == nil {
		t.Error("Get should fail for an unknown key")
	}
}

func TestDurations(t *testing.T) {
	f := Features{MaxDuration: "1500ms"}
	d, err := f.Duration()
	if err != nil || d != 1500*time.Millisecond {
		t.Errorf("Duration() = %v, %v", d, err)
	}
	if d, err := (Features{}).Duration(); err != nil || d != 0 {
		t.Errorf("empty Duration() = %v, %v", d, err)
	}
	if _, err := (Features{MaxDuration: "x"}).Duration(); err == nil {
		t.Error("Duration() should fail on garbage")
	}

	c := CacheSettings{TTL: "2h"}
	if d, err := c.TTLDuration(); err != nil || d != 2*time.Hour {
		t.Errorf("TTLDuration() = %v, %v", d, err)
	}
	if d, err := (CacheSettings{}).TTLDuration(); err != nil || d != 0 {
		t.Errorf("empty TTLDuration() = %v, %v", d, err)
	}
}
