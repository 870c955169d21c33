package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "test error")
	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "test error" {
		t.Errorf("expected message 'test error', got %s", err.Message)
	}
	if err.Err != nil {
		t.Errorf("expected nil wrapped error, got %v", err.Err)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("original error")
	err := Wrap(originalErr, CodeFilesystem, "cannot read directory")

	if err.Code != CodeFilesystem {
		t.Errorf("expected code %s, got %s", CodeFilesystem, err.Code)
	}
	if err.Err != originalErr {
		t.Errorf("expected wrapped error to be original error")
	}
}

func TestAppErrorError(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			err:      New(CodeValidation, "validation failed"),
			expected: "[VALIDATION_ERROR] validation failed",
		},
		{
			name:     "error with wrapped error",
			err:      DiscoveryError("navigation failed", errors.New("timeout")),
			expected: "[DISCOVERY_ERROR] navigation failed: timeout",
		},
		{
			name:     "unavailable episode",
			err:      ItemUnavailableError("ep-01", errors.New("no download event")),
			expected: "[ITEM_UNAVAILABLE] episode ep-01 is not available for download: no download event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	originalErr := errors.New("original")
	err := PersistError("ep-02", originalErr)

	if unwrapped := err.Unwrap(); unwrapped != originalErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
	if !errors.Is(err, originalErr) {
		t.Error("expected errors.Is to find the original error")
	}
}

func TestAppErrorWithContext(t *testing.T) {
	err := ItemUnavailableError("ep-03", nil).WithContext("catalog", "one-piece")

	if len(err.Context) != 2 {
		t.Errorf("expected 2 context items, got %d", len(err.Context))
	}
	if err.Context["identifier"] != "ep-03" {
		t.Errorf("expected identifier context 'ep-03', got %v", err.Context["identifier"])
	}
}

func TestFilesystemError(t *testing.T) {
	if err := FilesystemError("missing", nil); err.Err != nil || err.Code != CodeFilesystem {
		t.Errorf("unexpected error %+v", err)
	}
	inner := errors.New("permission denied")
	if err := FilesystemError("unreadable", inner); err.Err != inner {
		t.Errorf("expected wrapped error to be preserved")
	}
}

func TestConfigError(t *testing.T) {
	if err := ConfigError("bad", nil); err.Err != nil {
		t.Errorf("expected nil wrapped error")
	}
	if err := ConfigError("bad", errors.New("x")); err.Err == nil {
		t.Errorf("expected wrapped error")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"app error", BrowserError("launch failed", nil), CodeBrowser},
		{"wrapped app error", fmt.Errorf("run: %w", PersistError("ep", nil)), CodePersist},
		{"plain error", errors.New("plain"), CodeUnknown},
		{"nil", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Errorf("GetErrorCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	unavailable := fmt.Errorf("loop: %w", ItemUnavailableError("ep", nil))
	persist := PersistError("ep", errors.New("disk full"))

	if !IsItemUnavailable(unavailable) {
		t.Error("expected wrapped unavailable error to be detected")
	}
	if IsItemUnavailable(persist) {
		t.Error("persist error must not be treated as unavailable")
	}
	if !IsPersistError(persist) {
		t.Error("expected persist error to be detected")
	}
	if IsPersistError(errors.New("plain")) {
		t.Error("plain error must not be a persist error")
	}
	if !IsValidationError(ValidationError("x")) || IsValidationError(NotFoundError("run", "1")) {
		t.Error("IsValidationError mismatch")
	}
}
