// Command drugcompat converts an IV drug compatibility spreadsheet into a
// bilingual JSON dataset and serves it over HTTP.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Process exit statuses
const (
	exitFatal  = 1
	exitStrict = 2
)

// exitError carries the status the process should exit with
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "drugcompat",
		Short:         "Build and serve the IV drug compatibility dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "log progress at info level")

	root.AddCommand(newConvertCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newServeCmd())

	return root
}

func main() {
	loadEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFatal
}

// loadEnv reads .env from the working directory, then from the executable's
// directory. A missing file is not an error.
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

// initCLILogging keeps one-shot commands on stderr, warnings only unless -v
func initCLILogging(cmd *cobra.Command) {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelInfo
	}
	logging.InitConsoleLogger(cmd.ErrOrStderr(), level)
}

func loadRules(path string) (*matrixparser.Ruleset, error) {
	if path == "" {
		return matrixparser.DefaultRuleset(), nil
	}
	rules, err := matrixparser.LoadRuleset(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules, nil
}
