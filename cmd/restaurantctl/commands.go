package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/metrics"
	"github.com/goliatone/go-restaurant-auth/restaurants"
)

type command struct {
	name  string
	usage string
	// interactive commands may wait on a browser consent
	interactive bool
	run         func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"status":          {name: "status", usage: "print the current session", run: (*App).status},
	"signin":          {name: "signin", usage: "sign in with email and password", run: (*App).signIn},
	"signup":          {name: "signup", usage: "create an account with email and password", run: (*App).signUp},
	"google":          {name: "google", usage: "sign in with Google", interactive: true, run: (*App).google},
	"signout":         {name: "signout", usage: "sign out and forget the stored session", run: (*App).signOut},
	"reset-password":  {name: "reset-password", usage: "email a password reset link", run: (*App).resetPassword},
	"change-email":    {name: "change-email", usage: "change the account email", run: (*App).changeEmail},
	"change-password": {name: "change-password", usage: "change the account password", run: (*App).changePassword},
	"restaurants":     {name: "restaurants", usage: "browse restaurants or manage your listing", run: (*App).restaurants},
	"watch":           {name: "watch", usage: "follow session changes and serve metrics", run: (*App).watch},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: restaurantctl <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].usage)
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (a *App) status(_ context.Context, args []string) error {
	if err := newFlagSet("status", a.out).Parse(args); err != nil {
		return err
	}
	a.printState()
	return nil
}

func (a *App) signIn(ctx context.Context, args []string) error {
	fs := newFlagSet("signin", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg := auth.SignInMessage{Email: *email, Password: *password}
	var err error
	if msg.Email == "" {
		if msg.Email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	if msg.Password == "" {
		if msg.Password, err = a.prompt("Password: "); err != nil {
			return err
		}
	}

	if err := auth.NewSignInHandler(a.controller).Execute(ctx, msg); err != nil {
		return err
	}
	a.printState()
	return nil
}

func (a *App) signUp(ctx context.Context, args []string) error {
	fs := newFlagSet("signup", a.out)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	confirm := fs.String("confirm", "", "password confirmation (defaults to -password)")
	role := fs.String("role", string(auth.RoleUser), "user or restaurantOwner")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg := auth.RegisterUserMessage{
		Name:                 *name,
		Email:                *email,
		Password:             *password,
		PasswordConfirmation: *confirm,
		Role:                 *role,
	}
	var err error
	if msg.Password == "" {
		if msg.Password, err = a.prompt("Password: "); err != nil {
			return err
		}
		if msg.PasswordConfirmation, err = a.prompt("Confirm password: "); err != nil {
			return err
		}
	}
	if msg.PasswordConfirmation == "" {
		msg.PasswordConfirmation = msg.Password
	}

	if err := auth.NewRegisterUserHandler(a.controller).Execute(ctx, msg); err != nil {
		return err
	}
	a.printState()
	return nil
}

// google runs the federated flow. A new account must pick a role before the
// process exits: the pending signup is not persisted.
func (a *App) google(ctx context.Context, args []string) error {
	fs := newFlagSet("google", a.out)
	roleFlag := fs.String("role", "", "role for a new account; prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.controller.SignInWithFederated(ctx); err != nil {
		return err
	}

	st := a.controller.State()
	if st.Status() != auth.StatusAwaitingRoleSelection {
		a.printState()
		return nil
	}

	choice := *roleFlag
	if choice == "" {
		pending := st.Pending()
		var err error
		choice, err = a.prompt("No account for %s yet. Choose a role [user/restaurantOwner], empty to cancel: ", pending.Email)
		if err != nil {
			_ = a.controller.AbandonRoleSelection(ctx)
			return err
		}
	}

	if strings.TrimSpace(choice) == "" {
		if err := a.controller.AbandonRoleSelection(ctx); err != nil {
			return err
		}
		a.printState()
		return nil
	}

	role, err := auth.ParseRole(choice)
	if err != nil {
		_ = a.controller.AbandonRoleSelection(ctx)
		return err
	}
	if err := a.controller.CompleteFederatedSignUp(ctx, role); err != nil {
		return err
	}
	a.printState()
	return nil
}

func (a *App) signOut(ctx context.Context, args []string) error {
	if err := newFlagSet("signout", a.out).Parse(args); err != nil {
		return err
	}
	if err := a.controller.SignOut(ctx); err != nil {
		return err
	}
	a.printState()
	return nil
}

func (a *App) resetPassword(ctx context.Context, args []string) error {
	fs := newFlagSet("reset-password", a.out)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	handler := auth.NewInitializePasswordResetHandler(a.controller, a.loggers.GetLogger("commands"))
	return handler.Execute(ctx, auth.InitializePasswordResetMessage{
		Email: *email,
		OnResponse: func(resp *auth.InitializePasswordResetResponse) {
			fmt.Fprintf(a.out, "If an account exists for %s, a reset link is on its way.\n", resp.Email)
		},
	})
}

func (a *App) changeEmail(ctx context.Context, args []string) error {
	fs := newFlagSet("change-email", a.out)
	email := fs.String("email", "", "new email")
	current := fs.String("password", "", "current password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg := auth.ChangeEmailMessage{NewEmail: *email, CurrentPassword: *current}
	if msg.CurrentPassword == "" {
		var err error
		if msg.CurrentPassword, err = a.prompt("Current password: "); err != nil {
			return err
		}
	}

	if err := auth.NewAccountUpdateHandler(a.controller).ChangeEmail(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Email updated. Check your inbox to verify the new address.")
	a.printState()
	return nil
}

func (a *App) changePassword(ctx context.Context, args []string) error {
	fs := newFlagSet("change-password", a.out)
	current := fs.String("current", "", "current password (prompted when empty)")
	next := fs.String("new", "", "new password (prompted when empty)")
	confirm := fs.String("confirm", "", "new password confirmation (defaults to -new)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg := auth.ChangePasswordMessage{CurrentPassword: *current, NewPassword: *next, PasswordConfirmation: *confirm}
	var err error
	if msg.CurrentPassword == "" {
		if msg.CurrentPassword, err = a.prompt("Current password: "); err != nil {
			return err
		}
	}
	if msg.NewPassword == "" {
		if msg.NewPassword, err = a.prompt("New password: "); err != nil {
			return err
		}
		if msg.PasswordConfirmation, err = a.prompt("Confirm new password: "); err != nil {
			return err
		}
	}
	if msg.PasswordConfirmation == "" {
		msg.PasswordConfirmation = msg.NewPassword
	}

	if err := auth.NewAccountUpdateHandler(a.controller).ChangePassword(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password updated.")
	return nil
}

func (a *App) restaurants(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("restaurants: expected one of list, search, mine, save, delete")
	}

	sub, args := args[0], args[1:]
	switch sub {
	case "list":
		fs := newFlagSet("restaurants list", a.out)
		page := fs.Int("page", restaurants.DefaultPage, "page number")
		limit := fs.Int("limit", restaurants.DefaultLimit, "page size")
		if err := fs.Parse(args); err != nil {
			return err
		}
		res, err := a.catalog.List(ctx, *page, *limit)
		if err != nil {
			return err
		}
		a.printJSON(res)
	case "search":
		fs := newFlagSet("restaurants search", a.out)
		field := fs.String("field", "name", "one of "+strings.Join(restaurants.SearchFields, ", "))
		query := fs.String("q", "", "search text")
		page := fs.Int("page", restaurants.DefaultPage, "page number")
		limit := fs.Int("limit", restaurants.DefaultLimit, "page size")
		if err := fs.Parse(args); err != nil {
			return err
		}
		res, err := a.catalog.Search(ctx, *field, *query, *page, *limit)
		if err != nil {
			return err
		}
		a.printJSON(res)
	case "mine":
		if err := newFlagSet("restaurants mine", a.out).Parse(args); err != nil {
			return err
		}
		res, err := a.listings.Current(ctx)
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Fprintln(a.out, "You have no listing yet.")
			return nil
		}
		a.printJSON(res)
	case "save":
		return a.saveListing(ctx, args)
	case "delete":
		if err := newFlagSet("restaurants delete", a.out).Parse(args); err != nil {
			return err
		}
		if err := a.listings.Remove(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Listing deleted.")
	default:
		return fmt.Errorf("restaurants: unknown subcommand %q", sub)
	}
	return nil
}

func (a *App) saveListing(ctx context.Context, args []string) error {
	fs := newFlagSet("restaurants save", a.out)
	var in restaurants.Input
	fs.StringVar(&in.Name, "name", "", "restaurant name")
	fs.StringVar(&in.Cuisine, "cuisine", "", "cuisine")
	fs.StringVar(&in.Borough, "borough", "", "borough")
	fs.StringVar(&in.Building, "building", "", "building number")
	fs.StringVar(&in.Street, "street", "", "street")
	fs.StringVar(&in.Zipcode, "zipcode", "", "zipcode")
	picturePath := fs.String("picture", "", "path to a photo to upload")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var picture *restaurants.Picture
	if *picturePath != "" {
		f, err := os.Open(*picturePath)
		if err != nil {
			return fmt.Errorf("open picture: %w", err)
		}
		defer f.Close()
		picture = &restaurants.Picture{Filename: filepath.Base(*picturePath), Body: f}
	}

	saved, err := a.listings.Save(ctx, in, picture)
	if err != nil {
		return err
	}
	a.printJSON(saved)
	return nil
}

// watch prints every state change until ctx is cancelled.
func (a *App) watch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch", a.out)
	addr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(a.registry))
		srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		a.logger.Info("serving metrics", "addr", *addr)
	}

	report := func(st auth.State) {
		fmt.Fprintf(a.out, "%s %s -> %s\n", time.Now().Format(time.RFC3339), st, st.Route())
	}
	report(a.controller.State())
	cancel := a.controller.Watch(report)
	defer cancel()

	<-ctx.Done()
	return nil
}
