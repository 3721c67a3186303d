package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/amonks/bandcruise/readthrough"
	"github.com/amonks/bandcruise/request"
)

// Cache keeps downloaded images on disk.
type Cache struct {
	rt     *readthrough.ReadThrough
	client *http.Client
}

func NewCache(rt *readthrough.ReadThrough, client *http.Client) *Cache {
	return &Cache{rt: rt, client: client}
}

// Open returns the image at url, downloading it if the cached copy is missing
// or expired. When the download fails an expired copy is used instead.
func (c *Cache) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	cached, _, err := c.rt.Get(url)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, readthrough.ErrMiss) && !errors.Is(err, readthrough.ErrExpired) {
		return nil, err
	}

	body, _, fetchErr := request.Get(ctx, c.client, url)
	if fetchErr != nil {
		if stale, _, staleErr := c.rt.Stale(url); staleErr == nil {
			log.Printf("using stale image for '%s': %s", url, fetchErr)
			return stale, nil
		}
		return nil, fetchErr
	}

	r, _, err := c.rt.Set(url, body)
	if err != nil {
		return nil, fmt.Errorf("error caching image '%s': %w", url, err)
	}
	return r, nil
}

// Warm makes sure every image in the list is cached, returning how many were
// available. Individual failures are logged and skipped.
func (c *Cache) Warm(ctx context.Context, list map[string]string) (int, error) {
	ok := 0
	for name, url := range list {
		if err := ctx.Err(); err != nil {
			return ok, fmt.Errorf("canceled: %w", err)
		}
		r, err := c.Open(ctx, url)
		if err != nil {
			log.Printf("error caching image for '%s': %s", name, err)
			continue
		}
		r.Close()
		ok++
	}
	return ok, nil
}
