package readthrough

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.ReadCloser) string {
	t.Helper()
	defer r.Close()
	bs, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(bs)
}

func TestReadThrough(t *testing.T) {
	rt := New(t.TempDir(), "img-", time.Hour)

	_, _, err := rt.Get("https://example.com/a.jpg")
	assert.ErrorIs(t, err, ErrMiss)

	r, hash, err := rt.Set("https://example.com/a.jpg", io.NopCloser(strings.NewReader("jpeg bytes")))
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", readAll(t, r))
	assert.Len(t, hash, 64)
	assert.True(t, strings.HasPrefix(rt.Path("https://example.com/a.jpg")[len(rt.dir)+1:], "img-"))

	r, _, err = rt.Get("https://example.com/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", readAll(t, r))
}

func TestExpiry(t *testing.T) {
	rt := New(t.TempDir(), "", time.Hour)
	r, _, err := rt.Set("k", io.NopCloser(strings.NewReader("old")))
	require.NoError(t, err)
	r.Close()

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(rt.Path("k"), old, old))

	_, _, err = rt.Get("k")
	assert.ErrorIs(t, err, ErrExpired)

	r, _, err = rt.Stale("k")
	require.NoError(t, err)
	assert.Equal(t, "old", readAll(t, r))

	_, _, err = rt.Stale("missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestNoExpiry(t *testing.T) {
	rt := New(t.TempDir(), "", 0)
	r, _, err := rt.Set("k", io.NopCloser(strings.NewReader("v")))
	require.NoError(t, err)
	r.Close()

	old := time.Now().Add(-24 * 365 * time.Hour)
	require.NoError(t, os.Chtimes(rt.Path("k"), old, old))

	r, _, err = rt.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", readAll(t, r))
}
