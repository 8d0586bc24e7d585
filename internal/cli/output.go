package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"sales_import/internal/models"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A business rule refused the operation
	ExitCommandError = 2 // Bad arguments, missing files or storage failures
)

// Error codes reported in JSON output.
const (
	ErrCodeGeneric        = "E000"
	ErrCodeLimit          = "E001"
	ErrCodeFinalized      = "E002"
	ErrCodeNotAssigned    = "E003"
	ErrCodeDuplicate      = "E004"
	ErrCodeUnknownSeller  = "E005"
	ErrCodeUnknownStore   = "E006"
	ErrCodeNotConfirmed   = "E007"
	ErrCodeStorage        = "E100"
	ErrCodePartialFailure = "E200"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// classify maps an operation error to its JSON code and exit code.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, models.ErrAssignmentLimitExceeded):
		return ErrCodeLimit, ExitFailure
	case errors.Is(err, models.ErrStoreFinalized):
		return ErrCodeFinalized, ExitFailure
	case errors.Is(err, models.ErrSellerNotAssigned):
		return ErrCodeNotAssigned, ExitFailure
	case errors.Is(err, models.ErrDuplicateTaxIdentifier):
		return ErrCodeDuplicate, ExitFailure
	case errors.Is(err, models.ErrUnknownSeller):
		return ErrCodeUnknownSeller, ExitFailure
	case errors.Is(err, models.ErrUnknownStore):
		return ErrCodeUnknownStore, ExitFailure
	case errors.Is(err, models.ErrNotConfirmed):
		return ErrCodeNotConfirmed, ExitFailure
	case errors.Is(err, models.ErrStorageUnavailable):
		return ErrCodeStorage, ExitCommandError
	}
	return ErrCodeGeneric, ExitCommandError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose/diagnostic output, defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success prints data as JSON, or text for humans.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should end with.
func (f *OutputFormatter) Fail(op string, err error, details any) error {
	code, exit := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", op, err), details)
	return WrapExitError(exit, op+" failed", err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
