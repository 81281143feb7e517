// Package featcache caches extracted feature matrices so that repeated
// detections on the same clip skip decoding and MFCC analysis.
//
// Keys are content addressed: the SHA-256 of the audio bytes combined with a
// fingerprint of the extraction settings. Changing any setting therefore
// misses the cache instead of returning stale features. Values are
// msgpack-encoded.
//
// The package includes a BadgerDB-backed implementation for persistent use
// and an in-memory implementation for tests and one-shot processes.
package featcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/langid/pkg/audio/mfcc"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key is not cached.
	ErrNotFound = errors.New("featcache: not found")

	// ErrCorrupt is returned when a cached value cannot be decoded.
	ErrCorrupt = errors.New("featcache: corrupt entry")
)

// keyPrefix namespaces cache entries inside a shared database.
const keyPrefix = "mfcc:"

// Key identifies one cached matrix.
type Key [sha256.Size]byte

// NewKey derives the cache key for audio content extracted with the
// settings summarised by fingerprint.
func NewKey(audio []byte, fingerprint string) Key {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(audio)
	var k Key
	h.Sum(k[:0])
	return k
}

// String returns the key in hex.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

func (k Key) bytes() []byte {
	return []byte(keyPrefix + k.String())
}

// Cache stores feature matrices.
type Cache interface {
	// Get returns the cached matrix for key, or ErrNotFound.
	Get(ctx context.Context, key Key) (mfcc.Matrix, error)

	// Set stores m under key, replacing any previous value.
	Set(ctx context.Context, key Key, m mfcc.Matrix) error

	// Delete removes key. No error if the key does not exist.
	Delete(ctx context.Context, key Key) error

	// Clear removes every cached matrix and returns how many were dropped.
	Clear(ctx context.Context) (int, error)

	// Close releases any resources held by the cache.
	Close() error
}

// record is the on-disk value layout. Rows are stored flat so that the
// encoding does not depend on per-row slice headers.
type record struct {
	Rows int       `msgpack:"rows"`
	Cols int       `msgpack:"cols"`
	Data []float64 `msgpack:"data"`
}

func encode(m mfcc.Matrix) ([]byte, error) {
	rec := record{Rows: m.Frames(), Cols: m.Dim()}
	rec.Data = make([]float64, 0, rec.Rows*rec.Cols)
	for i, row := range m {
		if len(row) != rec.Cols {
			return nil, fmt.Errorf("featcache: row %d has %d columns, want %d", i, len(row), rec.Cols)
		}
		rec.Data = append(rec.Data, row...)
	}
	return msgpack.Marshal(&rec)
}

func decode(data []byte) (mfcc.Matrix, error) {
	var rec record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if rec.Rows <= 0 || rec.Cols <= 0 || len(rec.Data) != rec.Rows*rec.Cols {
		return nil, fmt.Errorf("%w: %dx%d matrix with %d values", ErrCorrupt, rec.Rows, rec.Cols, len(rec.Data))
	}
	m := make(mfcc.Matrix, rec.Rows)
	for i := range m {
		m[i] = rec.Data[i*rec.Cols : (i+1)*rec.Cols : (i+1)*rec.Cols]
	}
	return m, nil
}
