package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// UnsupportedLanguage indicates no concept catalog exists for a language
	UnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	// MalformedCatalog indicates a catalog failed validation
	MalformedCatalog ErrorCode = "MALFORMED_CATALOG"
	// CorruptJourneyFile indicates a persisted journey exists but cannot be parsed
	CorruptJourneyFile ErrorCode = "CORRUPT_JOURNEY_FILE"
	// JourneyWriteFailed indicates the journey ledger could not be saved
	JourneyWriteFailed ErrorCode = "JOURNEY_WRITE_FAILED"
	// NotARepository indicates the path is not inside a git work tree
	NotARepository ErrorCode = "NOT_A_REPOSITORY"
	// GitCommandFailed indicates a git subprocess exited with an error
	GitCommandFailed ErrorCode = "GIT_COMMAND_FAILED"
	// Timeout indicates an operation timed out
	Timeout ErrorCode = "TIMEOUT"
	// InvalidInput indicates a malformed argument or input document
	InvalidInput ErrorCode = "INVALID_INPUT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// InspectFile suggests looking at a file on disk
	InspectFile FixActionType = "inspect-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// JourneyError represents an error with code, message, and suggestions
type JourneyError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new JourneyError
func New(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *JourneyError {
	if suggestedFixes == nil {
		suggestedFixes = GetSuggestedFixes(code)
	}
	return &JourneyError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *JourneyError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *JourneyError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *JourneyError) WithDetails(details interface{}) *JourneyError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first JourneyError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var je *JourneyError
	if stderrors.As(err, &je) {
		return je.Code
	}
	return ""
}

// HasCode reports whether err's chain contains a JourneyError with the given code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var je *JourneyError
		if !stderrors.As(err, &je) {
			return false
		}
		if je.Code == code {
			return true
		}
		err = je.cause
	}
	return false
}

// Recoverable reports whether the error leaves the caller able to continue
// with other work. Unsupported languages and corrupt ledgers are recoverable;
// everything else propagates.
func Recoverable(err error) bool {
	return HasCode(err, UnsupportedLanguage) || HasCode(err, CorruptJourneyFile)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	MalformedCatalog: {
		{
			Type:        RunCommand,
			Command:     "devjourney catalog validate",
			Safe:        true,
			Description: "Show which catalog entry failed validation",
		},
	},
	CorruptJourneyFile: {
		{
			Type:        InspectFile,
			Description: "The unreadable ledger was moved aside; inspect the backup and merge by hand if needed",
		},
	},
	NotARepository: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify you're in a git repository",
		},
	},
	UnsupportedLanguage: {
		{
			Type:        RunCommand,
			Command:     "devjourney catalog list",
			Safe:        true,
			Description: "List languages with concept tracking",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		out := make([]FixAction, len(fixes))
		copy(out, fixes)
		return out
	}
	return nil
}
