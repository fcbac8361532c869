// Package cli implements the yinkun command-line interface: the HTTP
// service and offline access to the stored card configurations.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yinkun-ui/yinkun/internal/logging"
	"github.com/yinkun-ui/yinkun/internal/paths"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// app holds flag values and the configuration loaded before each command.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool

	cfg types.Config
}

// NewRootCmd creates the top-level "yinkun" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "yinkun",
		Short: "Card configuration service for the Yinkun dashboard",
		Long: "yinkun stores per-card UI configuration for the Yinkun dashboard\n" +
			"and serves it over HTTP.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.loadConfig,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newServeCmd(a))
	root.AddCommand(newCardCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

func (a *app) loadConfig(cmd *cobra.Command, _ []string) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	cfg, err := decodeConfig(v)
	if err != nil {
		return userError(err)
	}
	cfg.DataDir, err = paths.ResolveDataDir(a.dataDir, cfg.DataDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	a.cfg = cfg
	return nil
}

// commandLogger returns a stderr logger for offline commands. Routine info
// messages are suppressed unless debug logging is configured.
func (a *app) commandLogger(cmd *cobra.Command) *slog.Logger {
	level := "warn"
	if a.cfg.Log.Level == "debug" {
		level = "debug"
	}
	logger, _, err := logging.New(types.LogConfig{Level: level}, cmd.ErrOrStderr())
	if err != nil {
		return logging.Discard()
	}
	return logger
}

// cliError carries the process exit code for a failed command.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func userError(err error) error { return &cliError{code: exitUserError, err: err} }
func sysError(err error) error  { return &cliError{code: exitSysError, err: err} }

// exitCode maps err to an exit code. Errors not raised through userError or
// sysError come from cobra's argument and flag parsing.
func exitCode(err error) int {
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUserError
}
