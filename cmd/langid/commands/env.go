package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/haivivi/langid/pkg/cli"
	"github.com/haivivi/langid/pkg/featcache"
	"github.com/haivivi/langid/pkg/langid"
	"github.com/haivivi/langid/pkg/storage"
)

// modelSource is the resolved model repository of the active context.
type modelSource struct {
	// Dir is set for local repositories
	Dir string
	// S3 is set for bucket repositories
	S3 *storage.S3Options
}

func (s modelSource) String() string {
	if s.S3 != nil {
		return fmt.Sprintf("s3://%s/%s", s.S3.Bucket, s.S3.Prefix)
	}
	return s.Dir
}

// resolveModels picks the repository: --models, then the context, then
// ~/.langid/models.
func resolveModels(c *cli.Context) (modelSource, error) {
	if modelsDir != "" {
		return modelSource{Dir: modelsDir}, nil
	}
	if c.Models.UsesS3() {
		s3 := c.Models.S3
		return modelSource{S3: &storage.S3Options{
			Bucket:   s3.Bucket,
			Prefix:   s3.Prefix,
			Region:   s3.Region,
			Endpoint: s3.Endpoint,
		}}, nil
	}
	if c.Models.Dir != "" {
		return modelSource{Dir: c.Models.Dir}, nil
	}
	paths, err := cli.NewPaths()
	if err != nil {
		return modelSource{}, err
	}
	return modelSource{Dir: paths.ModelsDir()}, nil
}

// openStore opens the repository for reading or, with create, for writing.
func openStore(ctx context.Context, src modelSource, create bool) (storage.FileStore, error) {
	if src.S3 != nil {
		return storage.DialS3(ctx, *src.S3)
	}
	if create {
		return storage.NewLocal(src.Dir)
	}
	return storage.OpenLocal(src.Dir)
}

// loadRegistry loads every model of the active context. A missing or empty
// repository yields an empty registry; the reason is logged.
func loadRegistry(ctx context.Context, c *cli.Context) (*langid.Registry, modelSource, error) {
	src, err := resolveModels(c)
	if err != nil {
		return nil, src, err
	}
	printVerbose("Loading models from %s", src)
	if src.S3 == nil {
		return langid.Load(ctx, src.Dir), src, nil
	}
	store, err := openStore(ctx, src, false)
	if err != nil {
		return nil, src, err
	}
	return langid.LoadStore(ctx, store), src, nil
}

// extractorConfig applies the context's feature overrides to the defaults.
func extractorConfig(c *cli.Context) (langid.ExtractorConfig, error) {
	cfg := langid.DefaultExtractorConfig()
	d, err := c.Features.Duration()
	if err != nil {
		return cfg, fmt.Errorf("features.max_duration: %w", err)
	}
	if d > 0 {
		cfg.MaxDuration = d
	}
	if c.Features.SampleRate > 0 {
		cfg.SampleRate = c.Features.SampleRate
	}
	cfg.MFCC.CMVN = c.Features.CMVN
	return cfg, nil
}

// newExtractor builds the context's extractor, attaching the Badger feature
// cache when enabled. If the cache cannot be opened the command carries on
// with an in-memory one. The returned func releases the cache.
func newExtractor(c *cli.Context, noCache bool) (*langid.Extractor, func(), error) {
	cfg, err := extractorConfig(c)
	if err != nil {
		return nil, nil, err
	}
	opts := []langid.Option{langid.WithLogger(slog.Default())}
	closeFn := func() {}

	if c.Cache.Enabled && !noCache {
		if _, err := c.Cache.TTLDuration(); err != nil {
			return nil, nil, fmt.Errorf("cache.ttl: %w", err)
		}
		var cache featcache.Cache
		if b, err := openCache(c); err == nil {
			cache = b
		} else {
			// Usually another langid process holding the directory lock.
			slog.Warn("langid: feature cache unavailable, using memory", "error", err)
			cache = featcache.NewMemory()
		}
		opts = append(opts, langid.WithCache(cache))
		closeFn = func() {
			if err := cache.Close(); err != nil {
				slog.Warn("langid: closing feature cache", "error", err)
			}
		}
	}

	ext, err := langid.NewExtractor(cfg, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return ext, closeFn, nil
}

func cacheDir(c *cli.Context) (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	paths, err := cli.NewPaths()
	if err != nil {
		return "", err
	}
	return paths.CacheDir(), nil
}

func openCache(c *cli.Context) (*featcache.Badger, error) {
	dir, err := cacheDir(c)
	if err != nil {
		return nil, err
	}
	ttl, err := c.Cache.TTLDuration()
	if err != nil {
		return nil, fmt.Errorf("cache.ttl: %w", err)
	}
	printVerbose("Feature cache: %s", dir)
	return featcache.NewBadger(featcache.BadgerOptions{
		Dir:    dir,
		TTL:    ttl,
		Logger: slog.Default(),
	})
}
