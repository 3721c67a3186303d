package readthrough

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// New returns a cache storing files in dir. Entries older than maxAge are
// reported as expired by Get; a zero maxAge means entries never expire.
func New(dir, prefix string, maxAge time.Duration) *ReadThrough {
	return &ReadThrough{dir: dir, prefix: prefix, maxAge: maxAge, now: time.Now}
}

type ReadThrough struct {
	dir, prefix string
	maxAge      time.Duration
	now         func() time.Time
}

var (
	ErrMiss    = errors.New("cache miss")
	ErrExpired = errors.New("cache entry expired")
)

// Get opens the cached entry for key. An expired entry is reported with
// ErrExpired; use Stale to read it anyway.
func (rt *ReadThrough) Get(key string) (io.ReadCloser, string, error) {
	hash, filename := rt.hashAndFilename(key)

	info, err := os.Stat(filename)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, hash, fmt.Errorf("error checking for cache file '%s': %w", hash, err)
	} else if err != nil {
		return nil, hash, fmt.Errorf("cache miss for '%s': %w", hash, ErrMiss)
	}

	if rt.maxAge > 0 && rt.now().Sub(info.ModTime()) > rt.maxAge {
		return nil, hash, fmt.Errorf("cache file '%s' is %s old: %w", hash, rt.now().Sub(info.ModTime()).Truncate(time.Second), ErrExpired)
	}

	return rt.open(hash, filename)
}

// Stale opens the cached entry for key regardless of its age.
func (rt *ReadThrough) Stale(key string) (io.ReadCloser, string, error) {
	hash, filename := rt.hashAndFilename(key)
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil, hash, fmt.Errorf("cache miss for '%s': %w", hash, ErrMiss)
	}
	return rt.open(hash, filename)
}

func (rt *ReadThrough) open(hash, filename string) (io.ReadCloser, string, error) {
	cache, err := os.Open(filename)
	if err != nil {
		return nil, hash, fmt.Errorf("error opening cache file '%s' for read: %w", hash, err)
	}
	return cache, hash, nil
}

// Set copies r into the cache entry for key, closes r, and returns a reader
// over the same bytes.
func (rt *ReadThrough) Set(key string, r io.ReadCloser) (io.ReadCloser, string, error) {
	defer r.Close()
	hash, filename := rt.hashAndFilename(key)

	if err := os.MkdirAll(rt.dir, 0755); err != nil {
		return nil, hash, fmt.Errorf("error creating cache dir '%s': %w", rt.dir, err)
	}

	tmp := filename + ".tmp"
	cache, err := os.Create(tmp)
	if err != nil {
		return nil, hash, fmt.Errorf("error opening cache file '%s' for write: %w", hash, err)
	}

	var buf bytes.Buffer
	tee := io.TeeReader(r, cache)
	if _, err := io.Copy(&buf, tee); err != nil {
		cache.Close()
		os.Remove(tmp)
		return nil, hash, fmt.Errorf("error writing cache file '%s': %w", hash, err)
	}
	if err := cache.Close(); err != nil {
		os.Remove(tmp)
		return nil, hash, fmt.Errorf("error closing cache file '%s': %w", hash, err)
	}
	if err := os.Rename(tmp, filename); err != nil {
		return nil, hash, fmt.Errorf("error moving cache file '%s' into place: %w", hash, err)
	}

	return io.NopCloser(&buf), hash, nil
}

// Path returns the file an entry for key is (or would be) stored in.
func (rt *ReadThrough) Path(key string) string {
	_, filename := rt.hashAndFilename(key)
	return filename
}

func (rt *ReadThrough) hashAndFilename(key string) (string, string) {
	var hasher = sha256.New()
	hasher.Write([]byte(key))
	hash := hex.EncodeToString(hasher.Sum(nil))
	return hash, filepath.Join(rt.dir, rt.prefix+hash)
}
