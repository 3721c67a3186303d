package workers

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/amonks/bandcruise/fetcher"
	"github.com/amonks/bandcruise/limiter"
	"golang.org/x/sync/errgroup"
)

// A worker func signals a finished batch by sending on its channel.
type workerFunc func(context.Context, chan<- struct{}) error

type worker struct {
	f workerFunc

	// lazy workers only run when another worker's batch triggers them.
	lazy bool

	isRunning bool
	again     bool
}

type engine struct {
	mu       sync.Mutex
	workers  map[string]worker
	triggers map[string][]string
}

func newEngine() *engine {
	return &engine{
		workers:  map[string]worker{},
		triggers: map[string][]string{},
	}
}

func (eng *engine) add(name string, lazy bool, f workerFunc) {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	eng.workers[name] = worker{f: f, lazy: lazy}
}

// on makes every batch from name retrigger the targets.
func (eng *engine) on(name string, targets ...string) {
	eng.mu.Lock()
	defer eng.mu.Unlock()

	eng.triggers[name] = append(eng.triggers[name], targets...)
}

func (eng *engine) start(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	g := new(errgroup.Group)

	// run must be called with eng.mu held.
	var run func(name string)

	retrigger := func(name string) {
		eng.mu.Lock()
		defer eng.mu.Unlock()

		w, ok := eng.workers[name]
		if !ok {
			return
		}
		if w.isRunning {
			w.again = true
			eng.workers[name] = w
			return
		}
		run(name)
	}

	run = func(name string) {
		w := eng.workers[name]
		w.isRunning = true
		w.again = false
		f := w.f
		eng.workers[name] = w

		g.Go(func() error {
			batches := make(chan struct{})
			forwarded := make(chan struct{})
			go func() {
				defer close(forwarded)
				for range batches {
					log.Printf("batch:\t%s", name)
					eng.mu.Lock()
					targets := eng.triggers[name]
					eng.mu.Unlock()
					for _, target := range targets {
						retrigger(target)
					}
				}
			}()

			log.Printf("start:\t%s", name)
			err := f(ctx, batches)
			close(batches)
			<-forwarded

			if err != nil {
				log.Printf("error:\t%s\t%s", name, err)
				cancel(err)
			} else {
				log.Printf("done:\t%s", name)
			}

			eng.mu.Lock()
			defer eng.mu.Unlock()
			w := eng.workers[name]
			if w.again && err == nil && ctx.Err() == nil {
				run(name)
				return nil
			}
			w.isRunning = false
			w.again = false
			eng.workers[name] = w
			return err
		})
	}

	func() {
		eng.mu.Lock()
		defer eng.mu.Unlock()

		for name, w := range eng.workers {
			if !w.lazy {
				run(name)
			}
		}
	}()

	return g.Wait()
}

// Options configures the daemon.
type Options struct {
	Fetcher *fetcher.Fetcher
	Limiter *limiter.Limiter

	// ReportPath is where the reporter appends its tsv lines.
	ReportPath string
}

// Workers is every worker Run knows about.
var Workers = []string{"clock", "lineup", "schedule", "images", "alerts", "reporter"}

// Run keeps the lineup, schedule, images, and alerts fresh until ctx is
// canceled. The clock worker paces refreshes with the limiter; each lineup or
// schedule batch rebuilds the image list and reschedules the alerts.
func Run(ctx context.Context, opts Options, workers []string) error {
	eng := newEngine()
	f := opts.Fetcher

	for _, name := range workers {
		switch name {
		case "clock":
			eng.add("clock", false, func(ctx context.Context, c chan<- struct{}) error { return runClock(ctx, c, opts.Limiter) })
			eng.on("clock", "lineup", "schedule")
		case "lineup":
			eng.add("lineup", true, func(ctx context.Context, c chan<- struct{}) error { return runLineupFetcher(ctx, c, f) })
			eng.on("lineup", "images", "alerts")
		case "schedule":
			eng.add("schedule", true, func(ctx context.Context, c chan<- struct{}) error { return runScheduleFetcher(ctx, c, f) })
			eng.on("schedule", "images", "alerts")
		case "images":
			eng.add("images", false, func(ctx context.Context, c chan<- struct{}) error { return runImages(ctx, c, f) })
		case "alerts":
			eng.add("alerts", false, func(ctx context.Context, c chan<- struct{}) error { return runAlerts(ctx, c, f) })
		case "reporter":
			eng.add("reporter", false, func(ctx context.Context, c chan<- struct{}) error {
				return runReporter(ctx, c, f, opts.ReportPath, reportInterval)
			})
		default:
			return fmt.Errorf("unsupported worker '%s'", name)
		}
	}

	return eng.start(ctx)
}
