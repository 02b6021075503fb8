// Command authctl drives an authclient session from the shell.
//
//	authctl --base-url https://auth.example.com login --email alice@example.com --password-stdin
//	authctl get /api/items
//	authctl status
//	authctl logout
//
// Configuration comes from --config, AUTHCLIENT_CONFIG, ./authclient.yaml or AUTHCLIENT_*
// environment variables; flags override all of them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	authclient "github.com/MrEthical07/goAuth-client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, authclient.ErrNotAuthenticated),
		errors.Is(err, authclient.ErrInvalidCredentials),
		errors.Is(err, authclient.ErrUnauthorized):
		return 3
	case errors.Is(err, authclient.ErrNetwork):
		return 4
	default:
		return 1
	}
}
