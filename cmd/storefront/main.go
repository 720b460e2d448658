// storefront is the command line client of the storefront kit.
//
// It keeps one client identity in a state file (or redis) and exposes the
// session and cart services as subcommands. "serve" runs the host
// application and "remote" runs a remote application exposing the basket
// and product list fragments.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dmitrymomot/storefront/pkg/config"
	"github.com/dmitrymomot/storefront/pkg/host"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is what a command runs with. client is nil for commands that do not
// need a client identity.
type env struct {
	cfg    Config
	out    io.Writer
	client *client
}

type command struct {
	summary    string
	needsState bool
	run        func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"login":    {"sign in with email and password", true, runLogin},
	"register": {"create an account and sign in", true, runRegister},
	"logout":   {"sign out, keeping the guest identity", true, runLogout},
	"whoami":   {"show the current identity", true, runWhoami},
	"products": {"list the catalog", true, runProducts},
	"cart":     {"show or change the cart: show|add|update|remove|clear", true, runCart},
	"serve":    {"run the host application", true, runServe},
	"remote":   {"run a remote exposing the basket and product list fragments", false, runRemote},
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var flags globalFlags
	root := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	root.SetInterspersed(false)
	flags.register(root)
	root.Usage = func() { usage(root) }
	if err := root.Parse(args); err != nil {
		return err
	}

	rest := root.Args()
	if len(rest) == 0 {
		usage(root)
		return pflag.ErrHelp
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		usage(root)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	var cfg Config
	var envFiles []string
	if flags.envFile != "" {
		envFiles = append(envFiles, flags.envFile)
	}
	if err := config.Load(&cfg, envFiles...); err != nil {
		return err
	}
	flags.apply(root, &cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Env, "storefront"),
		logger.WithLevelName(cfg.LogLevel),
		logger.WithContextExtractors(host.RequestIDExtractor()),
	)
	logger.SetAsDefault(log)

	e := &env{cfg: cfg, out: out}
	if cmd.needsState {
		c, err := newClient(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := c.Close(); err != nil {
				log.WarnContext(ctx, "shutdown incomplete", logger.Error(err))
			}
		}()
		e.client = c
	}
	return cmd.run(ctx, e, rest[1:])
}

func usage(root *pflag.FlagSet) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Usage: storefront [global flags] <command> [flags]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(os.Stderr, "\nGlobal flags:")
	fmt.Fprint(os.Stderr, root.FlagUsages())
}
