// bandcruise keeps a local copy of a festival cruise's lineup and schedule,
// tracks which bands the user wants to see, and alerts ahead of their events.
//
// see db/schema.sql for the stored data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/amonks/bandcruise/config"
	"github.com/amonks/bandcruise/sigctx"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, flag.ErrHelp) {
		log.Fatal(err)
	}
}

var usage = strings.TrimSpace(`
usage: bandcruise $cmd
valid $cmd are 'refresh', 'run', 'serve', 'status', 'bands', 'priority',
'schedule', 'attend', 'alerts', 'prefs'
for help: bandcruise $cmd -help
the config file is read from $BANDCRUISE_CONFIG, or bandcruise.yaml
`)

func run() error {
	ctx := sigctx.New()

	if len(os.Args) < 2 {
		return errors.New(usage)
	}
	cmd, args := os.Args[1], os.Args[2:]

	configPath := os.Getenv("BANDCRUISE_CONFIG")
	if configPath == "" {
		configPath = "bandcruise.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var f func(context.Context, *app, []string) error
	switch cmd {
	case "refresh":
		f = refresh
	case "run":
		f = daemon
	case "serve":
		f = serve
	case "status":
		f = status
	case "bands":
		f = bands
	case "priority":
		f = priority
	case "schedule":
		f = schedule
	case "attend":
		f = attend
	case "alerts":
		f = alertsCmd
	case "prefs":
		f = prefsCmd
	default:
		return fmt.Errorf("unknown cmd: '%s'\n%s", cmd, usage)
	}

	a, err := setup(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return f(ctx, a, args)
}
