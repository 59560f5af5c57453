// Package cmd wires blockdb's command-line surface: a single root
// command that takes the environment directory as its one positional
// argument, builds the storage stack, and drops into the REPL.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"blockdb/catalog"
	"blockdb/exec"
	"blockdb/pagestore"
	"blockdb/repl"
	"blockdb/version"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:     "blockdb <env-dir>",
	Short:   "An embedded relational storage kernel with a local SQL shell",
	Version: version.String(),
	Args:    cobra.ExactArgs(1),
	RunE:    runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

// Execute runs the root command, returning the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitCode
}

var exitCode int

func runRoot(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	envDir := args[0]
	env, err := pagestore.OpenEnvironment(envDir, log)
	if err != nil {
		return fmt.Errorf("open environment: %w", err)
	}
	defer env.Close()

	cat, err := catalog.Open(env, log)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	executor := exec.New(cat, log)
	shell := repl.New(executor, cat, log, os.Stdin, os.Stdout)
	exitCode = shell.Run()
	return nil
}
