package query

import (
	"context"
	"time"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
)

// MaxRetries caps Options.Retry.
const MaxRetries = 2

const maxBackoff = 30 * time.Second

// clientError is satisfied by HTTP errors that know whether they are 4xx.
type clientError interface {
	IsClientError() bool
}

// Retryable reports whether another attempt could succeed. Client errors,
// missing or invalid sessions and cancellations are final.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var ce clientError
	if errors.As(err, &ce) && ce.IsClientError() {
		return false
	}
	for _, final := range []error{
		errors.ErrAuthRequired,
		errors.ErrSessionInvalid,
		errors.ErrNoRefreshToken,
		errors.ErrNotReady,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, final) {
			return false
		}
	}
	return true
}

// Backoff doubles from one second per attempt up to thirty seconds.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Second << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}
