package featcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haivivi/langid/pkg/audio/mfcc"
	"github.com/haivivi/langid/pkg/featcache"
)

func newBadgerCache(t *testing.T) *featcache.Badger {
	t.Helper()
	c, err := featcache.NewBadger(featcache.BadgerOptions{InMemory: true})
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleMatrix() mfcc.Matrix {
	m := make(mfcc.Matrix, 4)
	for i := range m {
		m[i] = make([]float64, 13)
		for j := range m[i] {
			m[i][j] = float64(i*13+j) * 0.5
		}
	}
	return m
}

func caches(t *testing.T) map[string]featcache.Cache {
	return map[string]featcache.Cache{
		"badger": newBadgerCache(t),
		"memory": featcache.NewMemory(),
	}
}

func TestGetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			key := featcache.NewKey([]byte("RIFF...audio"), "sr=44100")

			if _, err := c.Get(ctx, key); !errors.Is(err, featcache.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			want := sampleMatrix()
			if err := c.Set(ctx, key, want); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := c.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Frames() != want.Frames() || got.Dim() != want.Dim() {
				t.Fatalf("shape = %dx%d, want %dx%d", got.Frames(), got.Dim(), want.Frames(), want.Dim())
			}
			for i := range want {
				for j := range want[i] {
					if got[i][j] != want[i][j] {
						t.Fatalf("[%d][%d] = %v, want %v", i, j, got[i][j], want[i][j])
					}
				}
			}

			// Mutating the returned matrix must not touch the cache.
			got[0][0] = -1
			again, _ := c.Get(ctx, key)
			if again[0][0] != want[0][0] {
				t.Fatal("cached value was mutated through a returned matrix")
			}

			if err := c.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := c.Get(ctx, key); !errors.Is(err, featcache.ErrNotFound) {
				t.Fatalf("after Delete: %v", err)
			}
			if err := c.Delete(ctx, key); err != nil {
				t.Fatalf("second Delete: %v", err)
			}
		})
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			for _, clip := range []string{"a", "b", "c"} {
				if err := c.Set(ctx, featcache.NewKey([]byte(clip), "fp"), sampleMatrix()); err != nil {
					t.Fatal(err)
				}
			}
			n, err := c.Clear(ctx)
			if err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if n != 3 {
				t.Fatalf("Clear removed %d entries, want 3", n)
			}
			if _, err := c.Get(ctx, featcache.NewKey([]byte("a"), "fp")); !errors.Is(err, featcache.ErrNotFound) {
				t.Fatalf("after Clear: %v", err)
			}
		})
	}
}

func TestSetRejectsRaggedMatrix(t *testing.T) {
	ctx := context.Background()
	ragged := mfcc.Matrix{make([]float64, 13), make([]float64, 12)}
	for name, c := range caches(t) {
		if err := c.Set(ctx, featcache.NewKey(nil, ""), ragged); err == nil {
			t.Errorf("%s: expected error for ragged matrix", name)
		}
	}
}

func TestKey(t *testing.T) {
	audio := []byte("same bytes")
	a := featcache.NewKey(audio, "sr=44100;max=5s")
	b := featcache.NewKey(audio, "sr=44100;max=5s")
	if a != b {
		t.Fatal("identical inputs must produce identical keys")
	}
	if a == featcache.NewKey(audio, "sr=16000;max=5s") {
		t.Fatal("fingerprint must change the key")
	}
	if a == featcache.NewKey([]byte("other bytes"), "sr=44100;max=5s") {
		t.Fatal("content must change the key")
	}
	if len(a.String()) != 64 {
		t.Fatalf("String() = %q, want 64 hex chars", a.String())
	}
}

func TestBadgerTTL(t *testing.T) {
	c, err := featcache.NewBadger(featcache.BadgerOptions{InMemory: true, TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	key := featcache.NewKey([]byte("clip"), "fp")
	if err := c.Set(ctx, key, sampleMatrix()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, key); err != nil {
		t.Fatalf("entry within TTL: %v", err)
	}
}

func TestNewBadgerRequiresDir(t *testing.T) {
	if _, err := featcache.NewBadger(featcache.BadgerOptions{}); err == nil {
		t.Fatal("expected error without Dir")
	}
}

func TestBadgerPersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	key := featcache.NewKey([]byte("clip"), "fp")

	c, err := featcache.NewBadger(featcache.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, key, sampleMatrix()); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = featcache.NewBadger(featcache.BadgerOptions{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	got, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Frames() != 4 {
		t.Fatalf("frames = %d, want 4", got.Frames())
	}
}

func TestMemoryLen(t *testing.T) {
	m := featcache.NewMemory()
	ctx := context.Background()
	m.Set(ctx, featcache.NewKey([]byte("x"), ""), sampleMatrix())
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}
}
