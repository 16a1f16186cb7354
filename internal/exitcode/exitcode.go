package exitcode

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/ghgate/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// StorageError indicates the credential store could not be read or written
	StorageError = 3

	// ConfigError indicates an invalid configuration or item catalog
	ConfigError = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted follows the shell convention for SIGINT (128+2)
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps err to an exit code. GateErrors are classified by
// their code category; anything else falls back to matching cobra's usage
// messages.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var gateErr *errors.GateError
	if stderrors.As(err, &gateErr) {
		switch gateErr.Category() {
		case "AUTH":
			return AuthError
		case "NET":
			return NetworkError
		case "STORE":
			return StorageError
		case "CONFIG", "ITEMS":
			return ConfigError
		case "USAGE":
			return UsageError
		case "CANCEL":
			return Interrupted
		}
		return GeneralError
	}

	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}

	errMsg := strings.ToLower(err.Error())
	for _, usage := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "invalid argument", "required flag", "accepts "} {
		if strings.Contains(errMsg, usage) {
			return UsageError
		}
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case StorageError:
		return "Credential storage error"
	case ConfigError:
		return "Configuration error"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
