package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorUnwraps(t *testing.T) {
	err := Newf(ErrBadTimestamp, http.StatusBadRequest, "session entry %d", 2)
	if !errors.Is(err, ErrBadTimestamp) {
		t.Error("errors.Is must see through AppError to the sentinel")
	}
	if got, want := err.Error(), "unparseable timestamp: session entry 2"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestHTTPStatusCode(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrEmptySession, http.StatusBadRequest},
		{ErrBadTimestamp, http.StatusBadRequest},
		{ErrCacheDisabled, http.StatusServiceUnavailable},
		{ErrInternal, http.StatusInternalServerError},
		{errors.New("anything else"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrEmptySession), http.StatusBadRequest},
		{New(ErrInternal, http.StatusTeapot, "explicit code wins"), http.StatusTeapot},
	} {
		if got := HTTPStatusCode(tc.err); got != tc.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
