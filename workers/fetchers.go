package workers

import (
	"context"
	"fmt"
	"log"

	"github.com/amonks/bandcruise/fetcher"
	"github.com/amonks/bandcruise/limiter"
)

func runClock(ctx context.Context, c chan<- struct{}, lim *limiter.Limiter) error {
	for {
		if err := lim.Wait(ctx); err != nil {
			return fmt.Errorf("canceled: %w", err)
		}
		if err := lim.Delay(); err != nil {
			return fmt.Errorf("error saving next refresh time: %w", err)
		}
		c <- struct{}{}
	}
}

// online waits for a probe another worker already started rather than
// taking the last known state: lineup and schedule are triggered together,
// and before the first probe finishes the last known state is offline.
func online(ctx context.Context, f *fetcher.Fetcher) bool {
	return f.Network == nil || f.Network.Wait(ctx)
}

// Fetch failures leave the stored data in place, so they end the batch
// without failing the worker.
func runLineupFetcher(ctx context.Context, c chan<- struct{}, f *fetcher.Fetcher) error {
	if !online(ctx, f) {
		log.Printf("offline; not fetching lineup")
		return nil
	}
	if err := f.RefreshLineup(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("canceled: %w", ctxErr)
		}
		return nil
	}
	c <- struct{}{}
	return nil
}

func runScheduleFetcher(ctx context.Context, c chan<- struct{}, f *fetcher.Fetcher) error {
	if !online(ctx, f) {
		log.Printf("offline; not fetching schedule")
		return nil
	}
	if err := f.RefreshSchedule(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("canceled: %w", ctxErr)
		}
		return nil
	}
	c <- struct{}{}
	return nil
}

func runImages(ctx context.Context, c chan<- struct{}, f *fetcher.Fetcher) error {
	list, err := f.RebuildImages(ctx)
	if err != nil {
		return fmt.Errorf("error rebuilding image list: %w", err)
	}
	if f.ImageCache != nil && online(ctx, f) {
		n, err := f.ImageCache.Warm(ctx, list)
		if err != nil {
			return fmt.Errorf("error caching images: %w", err)
		}
		log.Printf("cached %d of %d images", n, len(list))
	}
	c <- struct{}{}
	return nil
}

func runAlerts(ctx context.Context, c chan<- struct{}, f *fetcher.Fetcher) error {
	res, err := f.Replan(ctx)
	if err != nil {
		return err
	}
	log.Printf("alerts: %d scheduled, %d duplicate, %d too late", res.Scheduled, res.Duplicate, res.Expired)
	c <- struct{}{}
	return nil
}
