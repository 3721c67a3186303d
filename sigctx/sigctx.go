// Package sigctx provides a context that is canceled on interrupt.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// New returns a context that is canceled the first time the process receives
// SIGINT or SIGTERM. A second signal kills the process as usual.
func New() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	interrupter := make(chan os.Signal, 1)
	signal.Notify(interrupter, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupter
		signal.Stop(interrupter)
		cancel()
	}()
	return ctx
}
