package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amonks/bandcruise/subcmd"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func status(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("status", "report what is stored and whether the festival site is reachable")
	var (
		probe = subcmd.Bool("probe", true, "check the network")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	bands, err := a.db.CountBands(ctx)
	if err != nil {
		return err
	}
	events, err := a.db.CountEvents(ctx)
	if err != nil {
		return err
	}
	priorities, err := a.db.Priorities(ctx)
	if err != nil {
		return err
	}
	attendance, err := a.db.Attendance(ctx)
	if err != nil {
		return err
	}
	sent, err := a.db.CountSentAlerts(ctx)
	if err != nil {
		return err
	}
	plan, err := a.fetcher.Plan(ctx)
	if err != nil {
		return err
	}

	byPriority := map[string]int{}
	for _, p := range priorities {
		byPriority[p.String()]++
	}
	attending := 0
	for _, st := range attendance {
		if st.Attending() {
			attending++
		}
	}

	printSection("bands", bands, byPriority)
	printSection("events", events, map[string]int{"attending": attending})
	printSection("images", a.fetcher.Images.Len(), nil)
	printSection("alerts", len(plan), map[string]int{"recorded as sent": sent})

	humanPrinter.Printf("NETWORK\n")
	if *probe && a.fetcher.Network != nil {
		a.fetcher.Network.Wait(ctx)
	}
	if a.fetcher.Network == nil {
		humanPrinter.Printf("  no probe url configured\n")
	} else {
		st := a.fetcher.Network.Status()
		humanPrinter.Printf("  online: %t (%d probes, %d failed)\n", st.Online, st.Probes, st.Failures)
		if st.LastError != "" {
			humanPrinter.Printf("  last error: %s\n", st.LastError)
		}
	}
	if next := a.limiter.NextAt(); !next.IsZero() {
		humanPrinter.Printf("  next refresh: %s\n", next.Format(time.DateTime))
	}
	return nil
}

var humanPrinter = message.NewPrinter(language.English)

func printSection(name string, known int, breakdown map[string]int) {
	humanPrinter.Printf("%s\n", strings.ToUpper(name))
	humanPrinter.Printf("  %d\tknown\n", known)
	for k, v := range breakdown {
		if known == 0 {
			humanPrinter.Printf("  %d\t%s\n", v, k)
			continue
		}
		humanPrinter.Printf("  %d\t%s (%.2f%%)\n", v, k, 100.0*float64(v)/float64(known))
	}
	humanPrinter.Printf("\n")
}
