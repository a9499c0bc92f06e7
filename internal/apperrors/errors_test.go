package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Validation("N must be between %d and %d", 0, 200), http.StatusBadRequest},
		{Conflict("Email already registered"), http.StatusBadRequest},
		{Unauthorized("Could not validate credentials"), http.StatusUnauthorized},
		{NotFound("User not found"), http.StatusNotFound},
		{Unavailable("ML model not loaded"), http.StatusServiceUnavailable},
		{TooManyAttempts("locked"), http.StatusTooManyRequests},
		{Internal("Prediction failed", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.Status(); got != tc.want {
			t.Errorf("%s: Status() = %d, want %d", tc.err.Code, got, tc.want)
		}
	}
}

func TestInternalKeepsUnderlyingMessage(t *testing.T) {
	cause := errors.New("tree 3 has no nodes")
	err := Internal("Prediction failed", cause)

	if err.Message != "Prediction failed: tree 3 has no nodes" {
		t.Errorf("Message = %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestAsClassifiesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Unavailable("Disease detection model not loaded"))
	if got := As(wrapped); got.Code != CodeUnavailable {
		t.Errorf("As(wrapped).Code = %s, want %s", got.Code, CodeUnavailable)
	}
	if !Is(wrapped, CodeUnavailable) {
		t.Error("Is(wrapped, UNAVAILABLE) = false")
	}

	if got := As(errors.New("plain")); got.Code != CodeInternal {
		t.Errorf("As(plain).Code = %s, want %s", got.Code, CodeInternal)
	}
}
