// spendsync is a command-line client for the expense tracking backend. Each
// invocation restores the saved session, runs one command against the
// backend through the client stores, and prints the resulting state.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/mmynk/spendsync/internal/apiclient"
	"github.com/mmynk/spendsync/internal/config"
	"github.com/mmynk/spendsync/internal/coordinator"
	"github.com/mmynk/spendsync/internal/credential"
	"github.com/mmynk/spendsync/internal/credential/sqlite"
	"github.com/mmynk/spendsync/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every command.
type app struct {
	coord  *coordinator.Coordinator
	out    io.Writer
	logger *slog.Logger
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
	// anonymous commands may run without a signed-in session.
	anonymous bool
}

var commands = map[string]command{
	"login":     {summary: "sign in with email and password", run: runLogin, anonymous: true},
	"register":  {summary: "create an account and sign in", run: runRegister, anonymous: true},
	"logout":    {summary: "sign out and forget the saved session", run: runLogout, anonymous: true},
	"whoami":    {summary: "show the signed-in user", run: runWhoami},
	"profile":   {summary: "show or update the profile", run: runProfile},
	"expenses":  {summary: "list expenses", run: runExpenses},
	"add":       {summary: "add an expense, optionally with a receipt", run: runAdd},
	"edit":      {summary: "change fields of an expense", run: runEdit},
	"delete":    {summary: "delete an expense", run: runDelete},
	"dashboard": {summary: "show monthly stats, breakdown and trend", run: runDashboard},
	"chat":      {summary: "ask the assistant a question", run: runChat},
	"insights":  {summary: "show spending insights", run: runInsights},
	"predict":   {summary: "predict next month's spending", run: runPredict},
	"scan":      {summary: "extract expense fields from a receipt image", run: runScan},
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		configPath   string
		baseURL      string
		credentialDB string
		logLevel     string
	)

	flagSet := pflag.NewFlagSet("spendsync", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (default: $"+config.EnvConfig+")")
	flagSet.StringVar(&baseURL, "base-url", "", "backend API root (overrides config)")
	flagSet.StringVar(&credentialDB, "credential-db", "", "SQLite file holding the saved session (overrides config)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(stdout, flagSet)
		return nil
	}

	name := flagSet.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q (run with --help for a list)", name)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if flagSet.Changed("credential-db") {
		cfg.CredentialDB = credentialDB
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	var creds credential.Store
	if cfg.CredentialDB != "" {
		db, err := sqlite.New(cfg.CredentialDB)
		if err != nil {
			return fmt.Errorf("failed to open credential store: %w", err)
		}
		defer db.Close()
		creds = db
	}

	client, err := apiclient.New(cfg.BaseURL, nil,
		apiclient.WithTimeout(cfg.RequestTimeout()),
		apiclient.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	coord, err := coordinator.New(client, coordinator.Options{
		Policy:      cfg.Policy(),
		Credentials: creds,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if err := coord.Restore(ctx); err != nil {
		return err
	}
	if !cmd.anonymous && !coord.State().Session.Authenticated {
		return errors.New("not signed in (run: spendsync login <email>)")
	}

	a := &app{coord: coord, out: stdout, logger: logger}
	return cmd.run(ctx, a, flagSet.Args()[1:])
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: spendsync [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nFlags:\n%s", flagSet.FlagUsages())
}

// newFlags returns a flag set for a subcommand that reports errors instead of
// exiting.
func newFlags(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("spendsync "+name, pflag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// joinArgs joins positional arguments into one free-text value.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
