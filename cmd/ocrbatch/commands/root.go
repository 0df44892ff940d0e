// Package commands defines the ocrbatch CLI.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical/ocrbatch/cmd/ocrbatch/ui"
)

// Exit codes, distinguishable for scripting: setup failures (bad config,
// unknown profile, missing input directory, docker unreachable) differ from
// a batch that ran but had failing files.
const (
	ExitOK             = 0
	ExitSetupFailure   = 1
	ExitPartialFailure = 2
)

// ExitError carries a specific process exit code up to main.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

var (
	cfgFile     string
	profileName string
	assumeYes   bool
	verbose     bool
	noColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "ocrbatch",
	Short: "Batch OCR processing of PDF files via containerized OCRmyPDF",
	Long: `ocrbatch recursively scans a directory for PDF files and runs the
OCRmyPDF container on each one, using a named option profile from a YAML
configuration file. Output files are written next to their inputs with an
_ocr suffix; files already carrying the suffix are never reprocessed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Optional .env for the OCRBATCH_* overrides.
		_ = godotenv.Load()
		ui.Init(noColor)
		return nil
	},
	RunE: runBatch,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to the console")
	rootCmd.Flags().StringVarP(&profileName, "profile", "p", "default", "configuration profile to use")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the confirmation prompt")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setupErr(err error) error {
	return &ExitError{Code: ExitSetupFailure, Err: err}
}

func partialErr(failed, total int) error {
	return &ExitError{
		Code: ExitPartialFailure,
		Err:  fmt.Errorf("%d of %d files failed OCR", failed, total),
	}
}
