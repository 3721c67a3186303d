package limiter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// New returns a limiter that spaces events delay apart. The next allowed time
// is persisted to filename so the spacing survives restarts.
func New(filename string, delay time.Duration) *Limiter {
	return &Limiter{
		filename: filename,
		delay:    delay,
		now:      time.Now,
	}
}

type Limiter struct {
	filename string
	delay    time.Duration
	now      func() time.Time

	mu     sync.Mutex
	nextAt time.Time
}

func (lim *Limiter) Load() error {
	bs, err := os.ReadFile(lim.filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("error reading '%s': %w", lim.filename, err)
	}

	nextAt, err := time.Parse(time.RFC3339, strings.TrimSpace(string(bs)))
	if err != nil {
		return fmt.Errorf("error parsing '%s': %w", lim.filename, err)
	}

	lim.mu.Lock()
	lim.nextAt = nextAt
	lim.mu.Unlock()
	return nil
}

// NextAt is the earliest time the next event may happen.
func (lim *Limiter) NextAt() time.Time {
	lim.mu.Lock()
	defer lim.mu.Unlock()
	return lim.nextAt
}

// Ready reports whether an event may happen now.
func (lim *Limiter) Ready() bool {
	return !lim.now().Before(lim.NextAt())
}

func (lim *Limiter) Wait(ctx context.Context) error {
	nextAt := lim.NextAt()
	if nextAt.IsZero() {
		return nil
	}

	dur := nextAt.Sub(lim.now())
	if dur <= 0 {
		return nil
	}
	if dur > time.Second {
		log.Printf("waiting %s until %s",
			dur.Truncate(time.Second),
			nextAt.Format(time.StampMilli))
	}

	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Delay pushes the next allowed time to the configured delay from now.
func (lim *Limiter) Delay() error {
	return lim.DelayBy(lim.delay)
}

func (lim *Limiter) DelayBy(d time.Duration) error {
	nextAt := lim.now().Add(d)

	lim.mu.Lock()
	lim.nextAt = nextAt
	lim.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(lim.filename), 0755); err != nil {
		return err
	}
	return os.WriteFile(lim.filename, []byte(nextAt.Format(time.RFC3339)), 0666)
}
