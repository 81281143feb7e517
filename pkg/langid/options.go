package langid

import (
	"log/slog"

	"github.com/haivivi/langid/pkg/featcache"
)

// Option configures Load, LoadStore, NewExtractor and New. Each
// constructor reads only the options relevant to it.
type Option func(*options)

type options struct {
	logger *slog.Logger
	dim    int
	cache  featcache.Cache
}

func buildOptions(opts []Option) options {
	o := options{dim: DefaultDimension}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDimension sets the feature dimension models must accept when loaded
// (default 13). Models of any other dimension are skipped.
func WithDimension(d int) Option {
	return func(o *options) {
		if d > 0 {
			o.dim = d
		}
	}
}

// WithCache enables the feature cache for an Extractor.
func WithCache(c featcache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}
