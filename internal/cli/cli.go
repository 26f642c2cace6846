package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/ecflowgen/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("ecflowgen", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
ecflowgen - Compiles suite descriptions into ecFlow definitions and job files.

Usage:
  ecflowgen [options] SUITE_PATH...

Arguments:
  SUITE_PATH
    A suite file (.hcl, .yaml, .yml or .json) or a directory holding them.

Options:
`)
		flagSet.PrintDefaults()
	}

	suiteFlag := flagSet.String("suite", "", "Comma-separated names of the suites to process. Default is all.")
	sFlag := flagSet.String("s", "", "Comma-separated names of the suites to process (shorthand).")
	outFlag := flagSet.String("out", "", "Write the definition to this file instead of stdout.")
	deployFlag := flagSet.String("deploy", "", "Directory receiving the generated job files, one subdirectory per suite.")
	gitFlag := flagSet.String("git", "", "Git checkout receiving the generated job files of a single suite.")
	replaceFlag := flagSet.String("replace", "", "Replace the suites on the ecFlow server at host:port.")
	checkFlag := flagSet.Bool("check", false, "Check the definition and reject trigger deadlocks.")
	watchFlag := flagSet.Bool("watch", false, "Recompile whenever a suite file changes.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", app.DefaultWorkers, "Number of suites processed concurrently.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := flagSet.Args()
	if len(paths) == 0 {
		slog.Debug("No suite path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	names := *suiteFlag
	if names == "" {
		names = *sFlag
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		SuitePaths: paths,
		Suites:     splitNames(names),
		Out:        *outFlag,
		DeployDir:  *deployFlag,
		GitDir:     *gitFlag,
		Replace:    *replaceFlag,
		Check:      *checkFlag,
		Watch:      *watchFlag,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		Workers:    *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}
