package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

// CLILogger is the process logger for pacer commands
var CLILogger *logging.Logger

// InitCLILogger initializes the CLI logger with the SIMPLE profile.
// verbose wins over level and forces DEBUG.
func InitCLILogger(serviceName string, level string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}

	if verbose {
		level = "debug"
	}
	applyLogLevel(logger, level)

	CLILogger = logger
}

// applyLogLevel maps a config log level onto the logger
func applyLogLevel(logger *logging.Logger, levelStr string) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace", "debug":
		logger.SetLevel(logging.DEBUG)
	case "warn", "warning":
		logger.SetLevel(logging.WARN)
	case "error":
		logger.SetLevel(logging.ERROR)
	default:
		logger.SetLevel(logging.INFO)
	}
}

// exitWithCodeStderr exits before any logger exists.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
