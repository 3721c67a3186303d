// Package reachability answers "are we online?" without hammering the
// network: the answer is cached for a TTL, at most one probe runs at a time,
// and every probe is bounded by a timeout.
package reachability

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// A Probe returns nil when the network is usable.
type Probe func(ctx context.Context) error

// HTTPProbe issues a HEAD request to url. Any response below 500 counts as
// online; captive portals and 5xx pages do not.
func HTTPProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("http status code %d from '%s'", resp.StatusCode, url)
		}
		return nil
	}
}

// Checker caches the result of a Probe.
type Checker struct {
	probe   Probe
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time

	mu        sync.RWMutex
	online    bool
	checkedAt time.Time
	probes    int
	failures  int
	lastErr   error
	done      chan struct{}

	inFlight atomic.Bool
}

func New(probe Probe, ttl, timeout time.Duration) *Checker {
	return &Checker{
		probe:   probe,
		ttl:     ttl,
		timeout: timeout,
		now:     time.Now,
		done:    closed(),
	}
}

func closed() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// Status is a snapshot of the cached state.
type Status struct {
	Online    bool
	CheckedAt time.Time
	Probes    int
	Failures  int
	LastError string
}

func (c *Checker) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{Online: c.online, CheckedAt: c.checkedAt, Probes: c.probes, Failures: c.failures}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	return st
}

// Online returns the cached state while it is fresh. Once it expires the
// first caller probes; callers that arrive while that probe is running get
// the last known state instead of waiting.
func (c *Checker) Online(ctx context.Context) bool {
	if online, fresh := c.cached(); fresh {
		return online
	}
	if online, ran := c.run(ctx, false); ran {
		return online
	}
	online, _ := c.cached()
	return online
}

// Wait is like Online, but a caller that finds a probe already running waits
// for its result, for at most the probe timeout.
func (c *Checker) Wait(ctx context.Context) bool {
	if online, fresh := c.cached(); fresh {
		return online
	}
	if online, ran := c.run(ctx, false); ran {
		return online
	}

	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}
	online, _ := c.cached()
	return online
}

// Refresh probes now, unless a probe is already running.
func (c *Checker) Refresh(ctx context.Context) bool {
	if online, ran := c.run(ctx, true); ran {
		return online
	}
	online, _ := c.cached()
	return online
}

func (c *Checker) cached() (online, fresh bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online, c.freshLocked()
}

func (c *Checker) freshLocked() bool {
	return !c.checkedAt.IsZero() && c.now().Sub(c.checkedAt) < c.ttl
}

// run probes if no other probe is in flight. ran is false when another
// goroutine holds the in-flight flag.
func (c *Checker) run(ctx context.Context, force bool) (online, ran bool) {
	// the flag and the done channel change together, so a caller that
	// loses the race always finds this probe's channel.
	c.mu.Lock()
	if !c.inFlight.CompareAndSwap(false, true) {
		c.mu.Unlock()
		return false, false
	}

	// a probe may have finished between our freshness check and taking the
	// flag; don't spend a second probe on the same window.
	if !force && c.freshLocked() {
		online = c.online
		c.inFlight.Store(false)
		c.mu.Unlock()
		return online, true
	}

	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()
	defer c.inFlight.Store(false)
	defer close(done)

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.probe(probeCtx)
	cancel()

	c.mu.Lock()
	c.online = err == nil
	c.checkedAt = c.now()
	c.probes++
	c.lastErr = err
	if err != nil {
		c.failures++
	}
	online = c.online
	c.mu.Unlock()

	if err != nil {
		log.Printf("network probe failed, treating as offline: %s", err)
	}
	return online, true
}
