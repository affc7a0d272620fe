package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
)

type fakeNetError struct{ timeout bool }

func (e fakeNetError) Error() string   { return "network trouble" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return true }

func TestIsOverloaded(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, true},
		{"service unavailable", &googleapi.Error{Code: http.StatusServiceUnavailable}, true},
		{"gateway timeout", &googleapi.Error{Code: http.StatusGatewayTimeout}, true},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, false},
		{"network timeout", fakeNetError{timeout: true}, true},
		{"network failure", fakeNetError{}, true},
		{"plain error", errors.New("boom"), false},
		{"wrapped overload", fmt.Errorf("exhausted 5 attempts: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), true},
		{"wrapped fatal", fmt.Errorf("attempt failed: %w", &googleapi.Error{Code: http.StatusForbidden}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOverloaded(tt.err); got != tt.want {
				t.Errorf("isOverloaded(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
