package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidTier,
		Message: "tier must be one of free, pro, enterprise",
	}

	expected := "validation_invalid_tier: tier must be one of free, pro, enterprise"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection reset")
	appErr := NewAppError(ErrCodeInternalDB, "failed to read user meta", underlying)

	if !errors.Is(appErr, underlying) {
		t.Errorf("errors.Is should find the underlying error")
	}
	if NewAppError(ErrCodeInternalDB, "missing", nil).Unwrap() != nil {
		t.Errorf("Unwrap() should return nil when Err is nil")
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("tracking call: %w", NewAppError(ErrCodeInternalDB, "increment failed", nil))

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeInternalDB {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeInternalDB)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewAppError(ErrCodeValidationInvalidTier, "bad tier", nil))

	if !IsCode(err, ErrCodeValidationInvalidTier) {
		t.Error("IsCode should match a wrapped AppError")
	}
	if IsCode(err, ErrCodeInternalDB) {
		t.Error("IsCode should not match a different code")
	}
	if IsCode(errors.New("plain"), ErrCodeInternalDB) {
		t.Error("IsCode should be false for non-AppError values")
	}
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	original := NewAppErrorWithDetails(ErrCodeValidationInvalidTier, "bad tier", nil, map[string]any{"tier": "gold"})
	enriched := original.WithDetails(map[string]any{"user_id": int64(7)})

	if len(original.Details) != 1 {
		t.Errorf("original details mutated: %v", original.Details)
	}
	if enriched.Details["tier"] != "gold" || enriched.Details["user_id"] != int64(7) {
		t.Errorf("enriched details = %v", enriched.Details)
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationInvalidTier, http.StatusBadRequest},
		{ErrCodeValidationInvalidUser, http.StatusBadRequest},
		{ErrCodeAuthNonceInvalid, http.StatusForbidden},
		{ErrCodeLimitAPICalls, http.StatusTooManyRequests},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
