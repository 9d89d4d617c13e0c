package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("underlying error")
	fixes := []FixAction{{Type: RunCommand, Command: "devjourney catalog validate"}}

	err := New(MalformedCatalog, "catalog python is invalid", cause, fixes)

	if err.Code != MalformedCatalog {
		t.Errorf("Code = %v, want %v", err.Code, MalformedCatalog)
	}
	if err.Message != "catalog python is invalid" {
		t.Errorf("Message = %q, want %q", err.Message, "catalog python is invalid")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestNew_DefaultFixes(t *testing.T) {
	err := New(NotARepository, "not a git repository", nil, nil)
	if len(err.SuggestedFixes) != 1 {
		t.Fatalf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
	if err.SuggestedFixes[0].Command != "git status" {
		t.Errorf("Command = %q, want %q", err.SuggestedFixes[0].Command, "git status")
	}
}

func TestJourneyError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      JourneyWriteFailed,
			message:   "failed to save journey",
			cause:     errors.New("disk full"),
			wantParts: []string{"JOURNEY_WRITE_FAILED", "failed to save journey", "disk full"},
		},
		{
			name:      "without cause",
			code:      UnsupportedLanguage,
			message:   "no catalog for cobol",
			cause:     nil,
			wantParts: []string{"UNSUPPORTED_LANGUAGE", "no catalog for cobol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.code, tt.message, tt.cause, nil).Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestJourneyError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(InternalError, "something went wrong", cause, nil)

	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}

	errNoCause := New(Timeout, "git timed out", nil, nil)
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestJourneyError_WithDetails(t *testing.T) {
	err := New(CorruptJourneyFile, "journey unreadable", nil, nil)
	result := err.WithDetails(map[string]string{"path": "/tmp/journey-go.json"})

	if result != err {
		t.Error("WithDetails should return the same error for chaining")
	}
	if err.Details == nil {
		t.Error("Details should be set")
	}
}

func TestHasCode(t *testing.T) {
	inner := New(CorruptJourneyFile, "journey unreadable", errors.New("bad json"), nil)
	outer := New(InternalError, "analysis failed", inner, nil)
	wrapped := fmt.Errorf("python: %w", outer)

	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"direct", inner, CorruptJourneyFile, true},
		{"nested", wrapped, CorruptJourneyFile, true},
		{"outer code", wrapped, InternalError, true},
		{"absent", wrapped, MalformedCatalog, false},
		{"plain error", errors.New("x"), InternalError, false},
		{"nil", nil, InternalError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCode(tt.err, tt.code); got != tt.want {
				t.Errorf("HasCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("wrap: %w", New(Timeout, "slow", nil, nil))
	if got := CodeOf(err); got != Timeout {
		t.Errorf("CodeOf() = %v, want %v", got, Timeout)
	}
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %v, want empty", got)
	}
}

func TestRecoverable(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{UnsupportedLanguage, true},
		{CorruptJourneyFile, true},
		{MalformedCatalog, false},
		{JourneyWriteFailed, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := Recoverable(New(tt.code, "x", nil, nil)); got != tt.want {
				t.Errorf("Recoverable(%v) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{MalformedCatalog, false, 1},
		{CorruptJourneyFile, false, 1},
		{NotARepository, false, 1},
		{UnsupportedLanguage, false, 1},
		{Timeout, true, 0},
		{InternalError, true, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestGetSuggestedFixes_ReturnsCopy(t *testing.T) {
	fixes := GetSuggestedFixes(MalformedCatalog)
	fixes[0].Command = "mutated"

	if ErrorActions[MalformedCatalog][0].Command == "mutated" {
		t.Error("GetSuggestedFixes should not expose the shared table")
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		UnsupportedLanguage,
		MalformedCatalog,
		CorruptJourneyFile,
		JourneyWriteFailed,
		NotARepository,
		GitCommandFailed,
		Timeout,
		InvalidInput,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}
