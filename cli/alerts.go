package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/amonks/bandcruise/subcmd"
)

func alertsCmd(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("alerts", "preview the alerts your settings call for")
	var (
		sent = subcmd.Int("sent", 0, "instead, list this many alerts recorded as sent")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if *sent > 0 {
		recorded, err := a.db.SentAlerts(ctx, *sent)
		if err != nil {
			return err
		}
		for _, s := range recorded {
			fmt.Fprintf(w, "%s\t%s\n", s.FireAt.In(a.fetcher.Location).Format(time.DateTime), s.Message)
		}
		return w.Flush()
	}

	plan, err := a.fetcher.Plan(ctx)
	if err != nil {
		return err
	}
	for _, alert := range plan {
		fmt.Fprintf(w, "%s\t%s\n", alert.FireAt.In(a.fetcher.Location).Format(time.DateTime), alert.Message)
	}
	return w.Flush()
}
