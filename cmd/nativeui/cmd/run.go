package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/go-drift/nativeui/pkg/app"
	"github.com/go-drift/nativeui/pkg/config"
	bridgeerrors "github.com/go-drift/nativeui/pkg/errors"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Run a project headless against an in-memory widget tree",
		Long: `Run the project's entry script headless. Widgets are created in an
in-memory tree; the run ends when the page sends close or on Ctrl-C.

The project directory defaults to the nearest parent holding nativeui.yaml,
nativeui.toml or go.mod.

Flags:
  --trace            Print every script sent to the page
  --verbose          Development logging with stack traces
  --debug-port N     Serve /health, /widget-tree, /trace and /metrics on N`,
		Usage: "nativeui run [dir] [--trace] [--verbose] [--debug-port N]",
		Run:   runRun,
	})
}

type runOptions struct {
	dir       string
	trace     bool
	verbose   bool
	debugPort int
}

func parseRunArgs(args []string) (runOptions, error) {
	var opts runOptions
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--trace":
			opts.trace = true
		case arg == "--verbose":
			opts.verbose = true
		case arg == "--debug-port" || strings.HasPrefix(arg, "--debug-port="):
			value, ok := strings.CutPrefix(arg, "--debug-port=")
			if !ok {
				if i+1 >= len(args) {
					return opts, fmt.Errorf("--debug-port requires a port number")
				}
				i++
				value = args[i]
			}
			port, err := strconv.Atoi(value)
			if err != nil || port <= 0 || port > 65535 {
				return opts, fmt.Errorf("invalid --debug-port %q", value)
			}
			opts.debugPort = port
		case strings.HasPrefix(arg, "--"):
			return opts, fmt.Errorf("unknown flag %s", arg)
		default:
			if opts.dir != "" {
				return opts, fmt.Errorf("unexpected argument %q", arg)
			}
			opts.dir = arg
		}
	}
	return opts, nil
}

func runRun(args []string) error {
	opts, err := parseRunArgs(args)
	if err != nil {
		return fmt.Errorf("%w\n\nUsage: nativeui run [dir] [--trace] [--verbose] [--debug-port N]", err)
	}

	root := opts.dir
	if root == "" {
		root, err = config.FindProjectRoot()
		if err != nil {
			return err
		}
	}
	cfg, err := config.Resolve(root)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Verbose = true
	}
	if opts.debugPort > 0 {
		cfg.DebugPort = opts.debugPort
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()
	bridgeerrors.SetHandler(&bridgeerrors.LogHandler{Logger: logger, Verbose: cfg.Verbose})
	defer bridgeerrors.SetHandler(nil)

	appOpts := []app.Option{app.WithLogger(logger)}
	if opts.trace {
		appOpts = append(appOpts, app.WithTraceWriter(stdout))
	}
	a, err := app.New(cfg, appOpts...)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = a.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
