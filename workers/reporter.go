package workers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/amonks/bandcruise/fetcher"
)

const reportInterval = time.Minute

func runReporter(ctx context.Context, c chan<- struct{}, f *fetcher.Fetcher, path string, every time.Duration) error {
	if path == "" {
		path = "log.tsv"
	}
	logfile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer logfile.Close()

	tick := time.NewTicker(every)
	defer tick.Stop()

	for {
		info, err := gatherInfo(ctx, f)
		if err != nil {
			return fmt.Errorf("reporting error: %w", err)
		}

		fmt.Fprintf(logfile,
			"%s\t"+
				"%t\t"+
				"%d\t%d\t"+
				"%d\t%d\n",

			time.Now().Format(time.DateTime),
			info.Online,
			info.Bands, info.Events,
			info.Images, info.SentAlerts,
		)
		c <- struct{}{}

		select {
		case <-ctx.Done():
			return context.Canceled

		case <-tick.C:
		}
	}
}

// Info is a snapshot of what the daemon has stored.
type Info struct {
	Online     bool
	Bands      int
	Events     int
	Images     int
	SentAlerts int
}

func gatherInfo(ctx context.Context, f *fetcher.Fetcher) (Info, error) {
	info := Info{Images: f.Images.Len()}
	if f.Network != nil {
		info.Online = f.Network.Status().Online
	}
	if count, err := f.DB.CountBands(ctx); err != nil {
		return info, err
	} else {
		info.Bands = count
	}
	if count, err := f.DB.CountEvents(ctx); err != nil {
		return info, err
	} else {
		info.Events = count
	}
	if count, err := f.DB.CountSentAlerts(ctx); err != nil {
		return info, err
	} else {
		info.SentAlerts = count
	}
	return info, nil
}
