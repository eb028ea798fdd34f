// File: cmd/autofill/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/visa-autofill/cmd"
)

// osExit can be replaced in tests.
var osExit = os.Exit

func main() {
	// Cancelled on SIGINT/SIGTERM so running passes and the browser shut down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			osExit(0)
			return
		}
		osExit(1)
	}
}
