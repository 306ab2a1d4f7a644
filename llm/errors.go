package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// transientMarkers identify failures worth a single retry: timeouts,
// dropped connections and upstream 5xx responses.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"connection",
	"temporarily",
	"502",
	"503",
	"504",
	"bad gateway",
	"service unavailable",
	"gateway timeout",
}

// forbiddenMarkers identify authorization failures that will not succeed
// against the same model no matter how often they are retried.
var forbiddenMarkers = []string{
	"403",
	"forbidden",
	"not have access",
	"not authorized",
}

// IsTransient reports whether err looks like a temporary provider failure.
// Cancellation by the caller is never treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// IsForbidden reports whether err indicates the requested model is not
// accessible with the current credentials.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range forbiddenMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// ForbiddenError is returned when a model is inaccessible and every
// configured fallback model has been exhausted.
type ForbiddenError struct {
	Model     string   // last model that was denied
	Fallbacks []string // fallback models that were configured
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	if len(e.Fallbacks) == 0 {
		return fmt.Sprintf("model %q is not accessible and no fallback models are configured", e.Model)
	}

	return fmt.Sprintf("model %q is not accessible; exhausted fallback models [%s]", e.Model, strings.Join(e.Fallbacks, ", "))
}
