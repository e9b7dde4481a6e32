package main

import (
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/secretmgr/cmd/secretmgr/commands"
	"github.com/systmms/secretmgr/internal/config"
	dserrors "github.com/systmms/secretmgr/internal/errors"
	"github.com/systmms/secretmgr/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(); err != nil {
		memguard.SafeExit(report(os.Stderr, err))
	}
}

// report prints err for the user and returns the process exit status.
func report(w io.Writer, err error) int {
	_, _ = fmt.Fprintf(w, "Error: %v\n", dserrors.SimplifyError(err))
	return exitCode(err)
}

func exitCode(err error) int {
	if code, ok := commands.ExitCode(err); ok {
		return code
	}
	return 1
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "secretmgr",
		Short: "Load, rotate and check server secrets",
		Long: `secretmgr loads the secrets a server needs (such as the TOTP master key)
from configured providers, validates rotations against a digest ledger, and
migrates data protected by a secret when its value changes.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewCheckCommand(cfg),
		commands.NewServeCommand(cfg),
		commands.NewLedgerCommand(cfg),
		commands.NewTOTPCommand(cfg),
		commands.NewProvidersCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
