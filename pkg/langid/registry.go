package langid

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/haivivi/langid/pkg/gmm"
	"github.com/haivivi/langid/pkg/storage"
)

// DefaultDimension is the number of MFCC coefficients per frame.
const DefaultDimension = 13

// Registry maps language labels to validated models. It is immutable after
// construction and safe for concurrent use. A nil *Registry behaves as an
// empty one.
type Registry struct {
	models map[string]*gmm.Model
	labels []string // sorted
}

// NewRegistry builds a registry from already decoded models. Models that
// have not been validated are validated here; all must share one
// dimension. Unlike Load, any invalid model is an error.
func NewRegistry(models map[string]*gmm.Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*gmm.Model, len(models))}
	dim := 0
	for label, m := range models {
		if label == "" {
			return nil, fmt.Errorf("%w: empty label", ErrModelLoad)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: %s: nil model", ErrModelLoad, label)
		}
		if !m.Validated() {
			if err := m.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrModelLoad, label, err)
			}
		}
		if dim == 0 {
			dim = m.Dim()
		} else if m.Dim() != dim {
			return nil, fmt.Errorf("%w: %s has dimension %d, others %d", ErrModelLoad, label, m.Dim(), dim)
		}
		r.models[label] = m
		r.labels = append(r.labels, label)
	}
	sort.Strings(r.labels)
	return r, nil
}

// Len returns the number of models.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.labels)
}

// Languages returns the labels in lexicographic order.
func (r *Registry) Languages() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.labels...)
}

// Model returns the model registered for label.
func (r *Registry) Model(label string) (*gmm.Model, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.models[label]
	return m, ok
}

// Load builds a registry from the <label>.gmm files directly inside dir.
//
// Load never fails: a missing directory is logged as ErrRepositoryMissing
// and yields an empty registry, and each unreadable or invalid model file
// is logged as ErrModelLoad and skipped.
func Load(ctx context.Context, dir string, opts ...Option) *Registry {
	o := buildOptions(opts)
	store, err := storage.OpenLocal(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrRepositoryMissing, dir)
		}
		o.logger.Error("langid: cannot open model repository", "dir", dir, "error", err)
		return &Registry{models: map[string]*gmm.Model{}}
	}
	return loadStore(ctx, store, o)
}

// LoadStore is Load over an arbitrary file store, such as an S3 bucket.
// Only files at the store root are considered.
func LoadStore(ctx context.Context, store storage.FileStore, opts ...Option) *Registry {
	return loadStore(ctx, store, buildOptions(opts))
}

func loadStore(ctx context.Context, store storage.FileStore, o options) *Registry {
	r := &Registry{models: map[string]*gmm.Model{}}

	entries, err := store.List(ctx, "")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %v", ErrRepositoryMissing, err)
		}
		o.logger.Error("langid: cannot list model repository", "error", err)
		return r
	}

	for _, e := range entries {
		if path.Ext(e.Name) != gmm.Ext {
			continue
		}
		label := strings.TrimSuffix(e.Name, gmm.Ext)
		if label == "" {
			continue
		}
		m, err := loadModel(ctx, store, e.Name, o.dim)
		if err != nil {
			o.logger.Warn("langid: skipping model", "language", label, "file", e.Name, "error", err)
			continue
		}
		r.models[label] = m
		r.labels = append(r.labels, label)
		o.logger.Info("langid: model loaded", "language", label, "components", m.K(), "covariance", m.CovarianceType)
	}
	sort.Strings(r.labels)

	if len(r.labels) == 0 {
		o.logger.Warn("langid: no language models loaded")
	} else {
		o.logger.Info("langid: models loaded", "count", len(r.labels), "languages", r.labels)
	}
	return r
}

func loadModel(ctx context.Context, store storage.FileStore, name string, dim int) (*gmm.Model, error) {
	data, err := storage.ReadAll(ctx, store, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	m, err := gmm.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}
	if m.Dim() != dim {
		return nil, fmt.Errorf("%w: dimension %d, want %d", ErrModelLoad, m.Dim(), dim)
	}
	return m, nil
}
