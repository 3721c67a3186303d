package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/amonks/bandcruise/prefs"
	"github.com/amonks/bandcruise/subcmd"
)

func prefsCmd(ctx context.Context, a *app, args []string) error {
	subcmd := subcmd.New("prefs", "show settings, or change them with name=value arguments")
	if err := subcmd.Parse(args); err != nil {
		return fmt.Errorf("flag parsing err: %w", err)
	}

	if subcmd.NArg() == 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, kv := range a.prefs.All() {
			fmt.Fprintf(w, "%s\t%s\n", kv[0], kv[1])
		}
		return w.Flush()
	}

	for _, arg := range subcmd.Args() {
		name, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected name=value, got '%s'", arg)
		}
		if err := prefs.Validate(name, value); err != nil {
			return err
		}
		a.prefs.Set(name, value)
	}
	return a.prefs.Save()
}
