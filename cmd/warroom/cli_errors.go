package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rtai-hli/gtc-hackathon/pkg/errors"
)

// CLIError wraps WarRoomError with a hint for the operator.
type CLIError struct {
	*errors.WarRoomError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(we *errors.WarRoomError, hint string) *CLIError {
	return &CLIError{WarRoomError: we, Hint: hint}
}

// Error returns the message followed by the hint.
func (e *CLIError) Error() string {
	if e.WarRoomError == nil {
		return "unknown error"
	}
	msg := e.WarRoomError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the wrapped WarRoomError.
func (e *CLIError) Unwrap() error {
	return e.WarRoomError
}

// Print writes the error in text or JSON form.
func (e *CLIError) Print(w io.Writer, asJSON bool) {
	if asJSON {
		_ = writeJSONLine(w, map[string]any{"error": map[string]any{
			"code":    string(e.Code),
			"message": e.Message,
			"context": e.Context,
			"hint":    e.Hint,
		}})
		return
	}
	fmt.Fprintf(w, "Error [%s]: %s\n", FormatErrorCode(e.Code), e.WarRoomError.Error())
	if e.Hint != "" {
		fmt.Fprintf(w, "  Hint: %s\n", e.Hint)
	}
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	we := errors.New(errors.CodeInvalidInput, "invalid argument: "+reason, nil).
		WithContext("argument", arg)
	return NewCLIError(we, "run 'warroom help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	we := errors.New(errors.CodeConfig, "configuration error", err)
	hint := "check your configuration file syntax and WARROOM_ environment variables"
	if configPath != "" {
		we.WithContext("config_path", configPath)
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(we, hint)
}

// hintFor suggests a next step for a failed command.
func hintFor(code errors.ErrorCode) string {
	switch code {
	case errors.CodeTimeout:
		return "increase --timeout or lower commander pauses"
	case errors.CodeContextLost:
		return "the investigation was interrupted"
	case errors.CodeNotFound:
		return "check the --scenario name or file path"
	case errors.CodeConfig:
		return "check llm.provider, journal.driver and the API key settings"
	case errors.CodeToolFailure, errors.CodeToolNotFound:
		return "check the configured MCP servers and commander.evidence_tools"
	case errors.CodeLLMError:
		return "check llm.base_url and the API key, or run with --set llm.provider=none"
	}
	return ""
}

// asCLIError gives any error a code and hint.
func asCLIError(err error) *CLIError {
	if ce, ok := err.(*CLIError); ok {
		return ce
	}
	we := errors.AsWarRoomError(err)
	return NewCLIError(we, hintFor(we.Code))
}

// FormatErrorCode returns a user-friendly name for error codes.
func FormatErrorCode(code errors.ErrorCode) string {
	switch code {
	case errors.CodeInternal:
		return "Internal Error"
	case errors.CodeInvalidInput:
		return "Invalid Input"
	case errors.CodeNotFound:
		return "Not Found"
	case errors.CodeTimeout:
		return "Timeout"
	case errors.CodeContextLost:
		return "Interrupted"
	case errors.CodeToolNotFound:
		return "Tool Not Found"
	case errors.CodeToolFailure:
		return "Tool Failure"
	case errors.CodeLLMError:
		return "LLM Error"
	case errors.CodeConfig:
		return "Configuration Error"
	default:
		return string(code)
	}
}

func exitWith(err error, asJSON bool) {
	asCLIError(err).Print(os.Stderr, asJSON)
	os.Exit(1)
}
