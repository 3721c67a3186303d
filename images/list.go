// Package images keeps the combined band -> image URL list and a local copy
// of the images themselves.
package images

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Combine merges artist and event images into one list. Artist images win: an
// event image is only used for names the lineup has no picture for.
func Combine(artist, event map[string]string) map[string]string {
	combined := make(map[string]string, len(artist)+len(event))
	for name, url := range event {
		if url != "" {
			combined[name] = url
		}
	}
	for name, url := range artist {
		if url != "" {
			combined[name] = url
		}
	}
	return combined
}

// List is the combined image list shared between the refresh loop and
// readers such as the http server. It is persisted as a flat JSON file so
// that a restart can show images before the first refresh finishes.
type List struct {
	path string

	mu     sync.RWMutex
	images map[string]string
}

func NewList(path string) *List {
	return &List{path: path, images: map[string]string{}}
}

// Load replaces the list with the contents of the file. A missing file leaves
// the list empty.
func (l *List) Load() error {
	bs, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("error reading image list '%s': %w", l.path, err)
	}

	images := map[string]string{}
	if err := json.Unmarshal(bs, &images); err != nil {
		return fmt.Errorf("error decoding image list '%s': %w", l.path, err)
	}

	l.mu.Lock()
	l.images = images
	l.mu.Unlock()
	return nil
}

// Save writes the list to its file.
func (l *List) Save() error {
	l.mu.RLock()
	bs, err := json.MarshalIndent(l.images, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("error encoding image list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("error creating dir for image list '%s': %w", l.path, err)
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, bs, 0644); err != nil {
		return fmt.Errorf("error writing image list '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("error moving image list into place at '%s': %w", l.path, err)
	}
	return nil
}

// Rebuild replaces the whole list with Combine(artist, event) and saves it.
// A failure to save is logged; the in-memory list is still updated.
func (l *List) Rebuild(artist, event map[string]string) map[string]string {
	combined := Combine(artist, event)

	l.mu.Lock()
	l.images = combined
	l.mu.Unlock()

	if err := l.Save(); err != nil {
		log.Printf("error saving image list: %s", err)
	}
	return l.All()
}

// Lookup returns the image URL for a band or event name.
func (l *List) Lookup(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	url, ok := l.images[name]
	return url, ok
}

// All returns a copy of the list.
func (l *List) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.images))
	for k, v := range l.images {
		out[k] = v
	}
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.images)
}
