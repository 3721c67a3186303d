package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/prefs"
	feed "github.com/amonks/bandcruise/schedule"
	"github.com/amonks/bandcruise/setflag"
	"github.com/amonks/bandcruise/subcmd"
)

func eventTypeFlag() *setflag.SetFlag {
	types := make([]string, len(data.EventTypes))
	for i, t := range data.EventTypes {
		types[i] = string(t)
	}
	return setflag.New(types...)
}

func schedule(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("schedule", "list scheduled events")
	types := eventTypeFlag()
	subcmd.Var(types, "type", "only list these event types, comma separated")
	var (
		all   = subcmd.Bool("all", !a.prefs.Bool(prefs.HideExpiredEvents), "include events that are over")
		band  = subcmd.String("band", "", "only list this band's events")
		asCSV = subcmd.Bool("csv", false, "print the events as a schedule feed csv")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	events, err := a.fetcher.Upcoming(ctx, !*all)
	if err != nil {
		return err
	}
	attendance, err := a.db.Attendance(ctx)
	if err != nil {
		return err
	}

	var selected []data.Event
	for _, ev := range events {
		if !types.Has(string(ev.Type)) {
			continue
		}
		if *band != "" && !strings.EqualFold(*band, ev.Band) {
			continue
		}
		selected = append(selected, ev)
	}
	if *asCSV {
		return feed.Write(os.Stdout, selected, a.fetcher.Location)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, ev := range selected {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.StartTime().In(a.fetcher.Location).Format("Mon Jan 2 15:04"),
			ev.Day, ev.Band, ev.Type, ev.Location, attendance[ev.AttendanceKey()])
	}
	return w.Flush()
}

func attend(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("attend", "record whether you will attend, or attended, a band's event").
		SetArg("band", "string", "band name")
	types := eventTypeFlag()
	subcmd.Var(types, "type", "narrow down which event, by type")
	var (
		at     = subcmd.String("at", "", "narrow down which event, by start time like '2006-01-02 15:04'")
		status = subcmd.String("status", "will", "will, partial, or none")
	)
	name, err := subcmd.ParseArg(args)
	if err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}
	st, err := data.ParseAttendance(*status)
	if err != nil {
		return err
	}

	sched, err := a.db.Schedule(ctx)
	if err != nil {
		return err
	}
	band, err := findBand(ctx, a, name)
	if err != nil {
		return err
	}

	var start time.Time
	if *at != "" {
		if start, err = time.ParseInLocation("2006-01-02 15:04", *at, a.fetcher.Location); err != nil {
			return fmt.Errorf("bad -at: %w", err)
		}
	}

	var matches []data.Event
	for _, ev := range sched[band] {
		if !types.Has(string(ev.Type)) {
			continue
		}
		if !start.IsZero() && ev.Start != start.Unix() {
			continue
		}
		matches = append(matches, ev)
	}

	switch len(matches) {
	case 0:
		return fmt.Errorf("no matching event for '%s'", name)
	case 1:
	default:
		var options []string
		for _, ev := range matches {
			options = append(options, fmt.Sprintf("%s %s", ev.Type, ev.StartTime().In(a.fetcher.Location).Format("2006-01-02 15:04")))
		}
		return fmt.Errorf("'%s' has %d matching events, pick one with -type or -at:\n  %s",
			band, len(matches), strings.Join(options, "\n  "))
	}

	ev := matches[0]
	if err := a.db.SetAttendance(ctx, ev.AttendanceKey(), st); err != nil {
		return err
	}
	fmt.Printf("%s %s at %s: %s\n", ev.Band, ev.Type, ev.Location, st)
	return nil
}
