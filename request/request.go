package request

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultClient is used when callers pass a nil client. The timeout keeps a
// hung festival server from stalling a refresh forever.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// Get does an HTTP GET on the given URL and returns the response body and its
// media type. The caller must close the body.
func Get(ctx context.Context, client *http.Client, url string) (io.ReadCloser, string, error) {
	if client == nil {
		client = DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("error building request for '%s': %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("error fetching '%s': %w", url, err)
	}
	if err := Error(resp); err != nil {
		resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected status from '%s': %w", url, err)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return resp.Body, mediaType, nil
}

// FetchHTML does an HTTP GET on the given URL, then parses the response as
// HTML.
func FetchHTML(ctx context.Context, client *http.Client, url string) (*goquery.Document, error) {
	body, contentType, err := Get(ctx, client, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	if contentType != "text/html" {
		return nil, fmt.Errorf("expected an html response at '%s', but got '%s'", url, contentType)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("error parsing html from '%s': %w", url, err)
	}

	return doc, nil
}

// Error checks the given http response for an error code, and, if one is
// present, reads the body and returns a friendly error.
func Error(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bs, err := httputil.DumpResponse(resp, true)
		if err != nil {
			return fmt.Errorf("http status code %d; error decoding body: %w", resp.StatusCode, err)
		} else {
			return fmt.Errorf("http status code %d:\n%s", resp.StatusCode, string(bs))
		}
	}
	return nil
}
