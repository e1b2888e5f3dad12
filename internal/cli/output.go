package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes for the driver. Every reported failure, from usage errors
// to representation mismatches deep in a pipeline, exits with
// ExitFailure; there is no partial success.
const (
	ExitSuccess = 0
	ExitFailure = 2
)

// ExitError carries an exit code alongside an error.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError attaches an exit code to an existing error.
func WrapExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

// GetExitCode extracts the exit code from an error. Any error that is
// not an ExitError is a reported failure too.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Output is where the driver writes program output and diagnostics.
// Program output goes to W; diagnostics and verbose progress go to Err,
// which --log can redirect to a file.
type Output struct {
	W         io.Writer
	Err       io.Writer
	Verbosity int

	logFile *os.File
}

// Redirect sends diagnostics to the named file instead of stderr.
func (o *Output) Redirect(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	o.logFile = f
	o.Err = f
	return nil
}

// Close releases the log redirect file, if any.
func (o *Output) Close() error {
	if o.logFile == nil {
		return nil
	}
	return o.logFile.Close()
}

// Logf writes a diagnostic line when verbosity is at least level.
func (o *Output) Logf(level int, format string, args ...any) {
	if o.Verbosity < level {
		return
	}
	fmt.Fprintf(o.Err, format+"\n", args...)
}

// Warnf reports a compiler warning.
func (o *Output) Warnf(format string, args ...any) {
	fmt.Fprintf(o.Err, "Warning: "+format+"\n", args...)
}
