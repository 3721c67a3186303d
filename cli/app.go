package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/amonks/bandcruise/alerts"
	"github.com/amonks/bandcruise/config"
	"github.com/amonks/bandcruise/db"
	"github.com/amonks/bandcruise/fetcher"
	"github.com/amonks/bandcruise/images"
	"github.com/amonks/bandcruise/limiter"
	"github.com/amonks/bandcruise/prefs"
	"github.com/amonks/bandcruise/reachability"
	"github.com/amonks/bandcruise/readthrough"
)

// app is everything a command might need, opened from the config.
type app struct {
	cfg     *config.Config
	db      *db.DB
	prefs   *prefs.Store
	fetcher *fetcher.Fetcher
	limiter *limiter.Limiter
}

func setup(cfg *config.Config) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	p, err := prefs.Open(cfg.PrefsPath())
	if err != nil {
		db.Close()
		return nil, err
	}

	// urls set in the preferences win over the config file
	lineupURL, scheduleURL := cfg.Sources.LineupURL, cfg.Sources.ScheduleURL
	if u := p.String(prefs.LineupURL); u != "" {
		lineupURL = u
	}
	if u := p.String(prefs.ScheduleURL); u != "" {
		scheduleURL = u
	}

	probeURL := cfg.Network.ProbeURL
	if probeURL == "" {
		probeURL = lineupURL
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout()}

	var network *reachability.Checker
	if probeURL != "" {
		network = reachability.New(reachability.HTTPProbe(client, probeURL), cfg.ReachabilityTTL(), cfg.ProbeTimeout())
	}

	list := images.NewList(cfg.ImageListPath())
	if err := list.Load(); err != nil {
		log.Printf("error loading image list, starting empty: %s", err)
	}

	lim := limiter.New(cfg.NextRefreshPath(), cfg.RefreshInterval())
	if err := lim.Load(); err != nil {
		log.Printf("error loading next refresh time: %s", err)
	}

	return &app{
		cfg:   cfg,
		db:    db,
		prefs: p,
		fetcher: &fetcher.Fetcher{
			DB:          db,
			Client:      client,
			Network:     network,
			Images:      list,
			Planner:     alerts.Planner{Prefs: p, Location: loc},
			ImageCache:  images.NewCache(readthrough.New(cfg.ImageCacheDir(), "image-", cfg.ImageMaxAge()), client),
			LineupURL:   lineupURL,
			ScheduleURL: scheduleURL,
			Location:    loc,
		},
		limiter: lim,
	}, nil
}

// deliverAlerts attaches a scheduler, for commands that stay up long enough
// to deliver alerts themselves.
func (a *app) deliverAlerts() *alerts.TimerNotifier {
	notifier := alerts.NewTimerNotifier(alerts.LogDelivery)
	a.fetcher.Scheduler = alerts.NewScheduler(notifier, a.db)
	return notifier
}

func (a *app) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("error closing db: %w", err)
	}
	return nil
}
