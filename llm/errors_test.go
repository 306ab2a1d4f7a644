package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "operation failed" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout message", err: errors.New("request timeout"), want: true},
		{name: "timed out message", err: errors.New("operation timed out"), want: true},
		{name: "connection reset", err: errors.New("connection reset by peer"), want: true},
		{name: "temporarily unavailable", err: errors.New("resource temporarily unavailable"), want: true},
		{name: "bad gateway", err: errors.New("502 Bad Gateway"), want: true},
		{name: "service unavailable", err: errors.New("503 Service Unavailable"), want: true},
		{name: "gateway timeout", err: errors.New("504 Gateway Timeout"), want: true},
		{name: "wrapped transient", err: fmt.Errorf("api error: %w", errors.New("connection refused")), want: true},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: true},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "bad request", err: errors.New("400 invalid request"), want: false},
		{name: "auth failure", err: errors.New("401 unauthorized"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsForbidden(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "status code", err: errors.New("403 Forbidden"), want: true},
		{name: "forbidden word", err: errors.New("access forbidden for this key"), want: true},
		{name: "no access phrase", err: errors.New("you do not have access to this model"), want: true},
		{name: "not authorized phrase", err: errors.New("caller is not authorized"), want: true},
		{name: "wrapped forbidden", err: fmt.Errorf("api error: %w", errors.New("403 model denied")), want: true},
		{name: "transient", err: errors.New("503 Service Unavailable"), want: false},
		{name: "bad request", err: errors.New("400 invalid request"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsForbidden(tt.err); got != tt.want {
				t.Errorf("IsForbidden(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestForbiddenError_Error(t *testing.T) {
	t.Run("no fallbacks", func(t *testing.T) {
		err := &ForbiddenError{Model: "gpt-4o"}

		if !strings.Contains(err.Error(), "gpt-4o") {
			t.Errorf("message should name the model: %s", err.Error())
		}

		if !strings.Contains(err.Error(), "no fallback") {
			t.Errorf("message should mention missing fallbacks: %s", err.Error())
		}
	})

	t.Run("exhausted fallbacks", func(t *testing.T) {
		err := &ForbiddenError{Model: "gpt-4o-mini", Fallbacks: []string{"gpt-4o-mini", "gpt-3.5-turbo"}}

		if !strings.Contains(err.Error(), "gpt-3.5-turbo") {
			t.Errorf("message should list the fallbacks: %s", err.Error())
		}
	})
}
