package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/amonks/bandcruise/data"
	"github.com/amonks/bandcruise/subcmd"
)

func bands(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("bands", "list the lineup with your priorities")
	var (
		only = subcmd.String("priority", "", "only list bands with this priority (must, might, wont, unknown)")
	)
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	var filter *data.Priority
	if *only != "" {
		p, err := data.ParsePriority(*only)
		if err != nil {
			return err
		}
		filter = &p
	}

	bands, err := a.db.Bands(ctx)
	if err != nil {
		return err
	}
	priorities, err := a.db.Priorities(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, b := range bands {
		p := priorities[b.Name]
		if filter != nil && p != *filter {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.Name, p, b.Country, b.Genre)
	}
	return w.Flush()
}

func priority(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("priority", "set how much you want to see a band").
		SetArg("band", "string", "band name, as listed by 'bands'")
	var (
		level = subcmd.String("level", "must", "must, might, wont, or unknown")
	)
	name, err := subcmd.ParseArg(args)
	if err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}
	p, err := data.ParsePriority(*level)
	if err != nil {
		return err
	}

	band, err := findBand(ctx, a, name)
	if err != nil {
		return err
	}
	if err := a.db.SetPriority(ctx, band, p); err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", band, p)
	return nil
}

// findBand matches a band name case-insensitively against the lineup. A name
// that isn't in the lineup is allowed, since the lineup may not be fetched
// yet.
func findBand(ctx context.Context, a *app, name string) (string, error) {
	bands, err := a.db.Bands(ctx)
	if err != nil {
		return "", err
	}
	for _, b := range bands {
		if strings.EqualFold(b.Name, name) {
			return b.Name, nil
		}
	}
	return name, nil
}
