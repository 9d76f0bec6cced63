// Package cli provides the dirsage command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"dirsage/internal/cleanup"
	"dirsage/internal/config"
	"dirsage/internal/exitcodes"
	"dirsage/internal/logging"
)

// ErrInvalidConfig marks failures to load the configuration file.
var ErrInvalidConfig = errors.New("invalid configuration")

// App holds state shared by subcommands
type App struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

// Config loads the configuration on first use.
func (a *App) Config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	a.cfg = cfg
	return cfg, nil
}

// Logger returns a stdout logger with --verbose and a discarding one
// otherwise, so command output stays parseable.
func (a *App) Logger() *log.Logger {
	if a.verbose {
		return logging.NewStdout()
	}
	return log.New(io.Discard, "", 0)
}

// NewRootCmd builds the dirsage command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	root := &cobra.Command{
		Use:   "dirsage",
		Short: "Inspect directory sizes and delete what you do not need",
		Long: `dirsage lists a directory's children with their recursive sizes,
largest first, and deletes files or directory trees in fail-fast batches.

The HTTP API is served by the separate dirsage-server binary.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&app.configPath, "config", config.DefaultConfigPath, "path to configuration file")
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "log progress to stdout")

	root.AddCommand(
		newScanCmd(app),
		newDeleteCmd(app),
		newExedirCmd(),
		newHistoryCmd(app),
	)
	return root
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitcodes.Success
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, errUsage):
		return exitcodes.InvalidConfig
	case errors.Is(err, cleanup.ErrBlocked):
		return exitcodes.SafetyViolation
	default:
		return exitcodes.RuntimeError
	}
}

var errUsage = errors.New("usage")

func usageError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}
