package codes

import "errors"

// Process exit codes returned by shc
const (
	Success            = 0
	BuildFailed        = 1
	ConfigurationError = 2
	BackendInitError   = 3
)

// ExitCodes maps shc exit codes to their descriptions
var ExitCodes = map[int]string{
	Success:            "Success",
	BuildFailed:        "One or more jobs failed to compile",
	ConfigurationError: "Invalid configuration or manifest",
	BackendInitError:   "Compiler backend failed to initialize",
}

var (
	// ErrConfiguration is returned for missing arguments and unreadable manifests.
	ErrConfiguration = errors.New("configuration error")

	// ErrBackendInit is returned when the compiler backend cannot be loaded.
	ErrBackendInit = errors.New("compiler backend initialization failed")

	// ErrBuildFailed is returned when at least one job ended in an error outcome.
	ErrBuildFailed = errors.New("build failed")
)

// IsSuccess reports whether code means every job compiled or was skipped
func IsSuccess(code int) bool {
	return code == Success
}

// GetErrorMessage describes an exit code; codes outside the table are "Unknown error"
func GetErrorMessage(code int) string {
	if msg, ok := ExitCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

// ExitCode classifies an error returned by a command into a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrConfiguration):
		return ConfigurationError
	case errors.Is(err, ErrBackendInit):
		return BackendInitError
	default:
		return BuildFailed
	}
}
