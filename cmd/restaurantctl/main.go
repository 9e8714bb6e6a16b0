// Command restaurantctl signs in to the restaurants service and manages
// listings from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, describe(err))
		return 2
	}

	app, err := newApp(ctx, cfg, cmd.interactive, stdin, stdout)
	if err != nil {
		fmt.Fprintln(stderr, describe(err))
		return 1
	}
	defer app.Close()

	if err := cmd.run(app, ctx, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		app.logger.Debug("command failed", "command", cmd.name, "error", err)
		fmt.Fprintln(stderr, describe(err))
		return 1
	}
	return 0
}

// describe turns an error into a line for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Email or password is incorrect."
	case errors.Is(err, auth.ErrEmailNotVerified):
		return "Verify your email first. A new verification link has been sent."
	case errors.Is(err, auth.ErrRequiresRecentLogin):
		return "Your current password did not check out. Try again."
	case errors.Is(err, auth.ErrUserCancelled):
		return "Google sign-in was cancelled."
	case errors.Is(err, auth.ErrBackendUnavailable):
		return "The service is unreachable. Try again later."
	case errors.Is(err, auth.ErrOperationTimeout):
		return "The request took too long. Try again."
	}
	return err.Error()
}
