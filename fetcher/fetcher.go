// Package fetcher runs one refresh cycle: pull the lineup and schedule when
// the network is up, store them, rebuild the combined image list, and replace
// the pending alerts.
package fetcher

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/amonks/bandcruise/alerts"
	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/db"
	"github.com/amonks/bandcruise/images"
	"github.com/amonks/bandcruise/lineup"
	"github.com/amonks/bandcruise/reachability"
	"github.com/amonks/bandcruise/schedule"
	"golang.org/x/sync/errgroup"
)

type Fetcher struct {
	DB        *db.DB
	Client    *http.Client
	Network   *reachability.Checker
	Images    *images.List
	Planner   alerts.Planner
	Scheduler *alerts.Scheduler

	// ImageCache is optional; without it images are listed but not
	// downloaded.
	ImageCache *images.Cache

	LineupURL   string
	ScheduleURL string
	Location    *time.Location

	Now func() time.Time
}

// Report describes what a refresh did. Fetch errors are reported here rather
// than returned: a failed fetch falls back to the stored data.
type Report struct {
	Online      bool
	LineupErr   error
	ScheduleErr error

	Bands  int
	Events int
	Images int

	// Planned counts the alerts the stored data calls for. Without a
	// Scheduler they are only counted.
	Planned int
	Alerts  alerts.Result
}

func (r Report) String() string {
	status := "online"
	if !r.Online {
		status = "offline"
	}
	return fmt.Sprintf("%s: %d bands, %d events, %d images, %d alerts planned, %d scheduled (%d duplicate, %d too late)",
		status, r.Bands, r.Events, r.Images, r.Planned, r.Alerts.Scheduled, r.Alerts.Duplicate, r.Alerts.Expired)
}

func (f *Fetcher) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Refresh runs a whole cycle. Only storage errors are returned.
func (f *Fetcher) Refresh(ctx context.Context) (Report, error) {
	var report Report

	report.Online = f.Network == nil || f.Network.Wait(ctx)
	if report.Online {
		g := new(errgroup.Group)
		g.Go(func() error {
			report.LineupErr = f.RefreshLineup(ctx)
			return nil
		})
		g.Go(func() error {
			report.ScheduleErr = f.RefreshSchedule(ctx)
			return nil
		})
		g.Wait()
	} else {
		log.Printf("offline; using cached lineup and schedule")
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("canceled: %w", err)
	}

	var err error
	if report.Bands, err = f.DB.CountBands(ctx); err != nil {
		return report, err
	}
	if report.Events, err = f.DB.CountEvents(ctx); err != nil {
		return report, err
	}

	list, err := f.RebuildImages(ctx)
	if err != nil {
		return report, err
	}
	report.Images = len(list)

	if report.Online && f.ImageCache != nil {
		if _, err := f.ImageCache.Warm(ctx, list); err != nil {
			return report, err
		}
	}

	if f.Scheduler == nil {
		plan, err := f.Plan(ctx)
		if err != nil {
			return report, err
		}
		report.Planned = len(plan)
		return report, nil
	}
	if report.Alerts, err = f.Replan(ctx); err != nil {
		return report, err
	}
	report.Planned = report.Alerts.Scheduled + report.Alerts.Duplicate + report.Alerts.Expired

	return report, nil
}

// RefreshLineup scrapes the lineup page into the db. An empty scrape is
// treated as a failure, since it almost always means the page's markup
// changed, and the stored lineup is kept.
func (f *Fetcher) RefreshLineup(ctx context.Context) error {
	if f.LineupURL == "" {
		return nil
	}
	bands, err := lineup.Fetch(ctx, f.Client, f.LineupURL)
	if err != nil {
		log.Printf("error fetching lineup, keeping cached: %s", err)
		return err
	}
	if len(bands) == 0 {
		err := fmt.Errorf("no bands found at '%s'", f.LineupURL)
		log.Printf("%s; keeping cached lineup", err)
		return err
	}
	if err := f.DB.ReplaceLineup(ctx, bands); err != nil {
		return err
	}
	log.Printf("fetched %d bands", len(bands))
	return nil
}

// RefreshSchedule downloads the schedule feed into the db, keeping the stored
// schedule when the feed can't be read or is empty.
func (f *Fetcher) RefreshSchedule(ctx context.Context) error {
	if f.ScheduleURL == "" {
		return nil
	}
	sched, err := schedule.Fetch(ctx, f.Client, f.ScheduleURL, f.Location)
	if err != nil {
		log.Printf("error fetching schedule, keeping cached: %s", err)
		return err
	}
	if sched.Len() == 0 {
		err := fmt.Errorf("no events found at '%s'", f.ScheduleURL)
		log.Printf("%s; keeping cached schedule", err)
		return err
	}
	if err := f.DB.ReplaceSchedule(ctx, sched); err != nil {
		return err
	}
	log.Printf("fetched %d events", sched.Len())
	return nil
}

// RebuildImages recomputes the combined image list from the stored lineup
// and schedule.
func (f *Fetcher) RebuildImages(ctx context.Context) (map[string]string, error) {
	artist, err := f.DB.ArtistImages(ctx)
	if err != nil {
		return nil, err
	}
	sched, err := f.DB.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	return f.Images.Rebuild(artist, sched.EventImages()), nil
}

// Plan computes the alerts the stored data calls for, without scheduling
// them.
func (f *Fetcher) Plan(ctx context.Context) ([]alerts.Alert, error) {
	sched, err := f.DB.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	priorities, err := f.DB.Priorities(ctx)
	if err != nil {
		return nil, err
	}
	attendance, err := f.DB.Attendance(ctx)
	if err != nil {
		return nil, err
	}
	return f.Planner.Plan(sched, priorities, attendance, f.now()), nil
}

// Replan replaces the pending alerts with a fresh plan. It does nothing
// without a Scheduler.
func (f *Fetcher) Replan(ctx context.Context) (alerts.Result, error) {
	if f.Scheduler == nil {
		return alerts.Result{}, nil
	}
	plan, err := f.Plan(ctx)
	if err != nil {
		return alerts.Result{}, err
	}
	res, err := f.Scheduler.Reschedule(ctx, plan)
	if err != nil {
		return res, fmt.Errorf("error scheduling %d alerts: %w", len(plan), err)
	}
	return res, nil
}

// Upcoming is a convenience for readers that want the stored schedule with
// expired events dropped.
func (f *Fetcher) Upcoming(ctx context.Context, hideExpired bool) ([]data.Event, error) {
	sched, err := f.DB.Schedule(ctx)
	if err != nil {
		return nil, err
	}
	events := sched.Sorted()
	if !hideExpired {
		return events, nil
	}
	now := f.now().Unix()
	upcoming := events[:0]
	for _, ev := range events {
		if ev.End >= now || ev.Start >= now {
			upcoming = append(upcoming, ev)
		}
	}
	return upcoming, nil
}
