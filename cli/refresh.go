package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/amonks/bandcruise/server"
	"github.com/amonks/bandcruise/subcmd"
	"github.com/amonks/bandcruise/workers"
	"golang.org/x/sync/errgroup"
)

func refresh(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("refresh", "fetch the lineup and schedule once and rebuild the image list\nalerts are counted but not delivered; use 'run' for that")
	var (
		force = subcmd.Bool("force", false, "refresh even if the last refresh was less than the refresh interval ago")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	if !*force && !a.limiter.Ready() {
		log.Printf("last refresh was recent; next at %s (use -force)", a.limiter.NextAt().Format(time.DateTime))
		return nil
	}

	report, err := a.fetcher.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh error: %w", err)
	}
	if report.Online && report.LineupErr == nil && report.ScheduleErr == nil {
		if err := a.limiter.Delay(); err != nil {
			return err
		}
	}
	fmt.Println(report)
	return nil
}

func daemon(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("run", "keep the data fresh and deliver alerts until interrupted")
	var (
		port  = subcmd.Int("port", 0, "also serve the json api on this port")
		names = subcmd.String("workers", strings.Join(workers.Workers, ","), "workers to run")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	notifier := a.deliverAlerts()
	defer notifier.CancelAll()

	if n, err := a.db.ForgetAlertsAfter(ctx, time.Now()); err != nil {
		return err
	} else if n > 0 {
		log.Printf("re-arming %d alerts that an earlier run never delivered", n)
	}

	opts := workers.Options{
		Fetcher:    a.fetcher,
		Limiter:    a.limiter,
		ReportPath: filepath.Join(a.cfg.Storage.DataDir, "log.tsv"),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return workers.Run(ctx, opts, strings.Split(*names, ",")) })
	if *port != 0 {
		addr := fmt.Sprintf(":%d", *port)
		g.Go(func() error { return server.Run(ctx, a.fetcher, addr) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func serve(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("serve", "serve the stored data as json\nchoices made here are stored but alerts are only delivered by 'run'")
	var (
		port = subcmd.Int("port", 9999, "http port")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	addr := fmt.Sprintf(":%d", *port)
	return server.Run(ctx, a.fetcher, addr)
}
