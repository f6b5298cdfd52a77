package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
	"github.com/WilliamHoest/trackanything-admin/internal/resilience/retry"
)

// ErrTimeout marks requests that exceeded their profile's timeout budget.
var ErrTimeout = errors.New("request timed out")

// ErrBodyTooLarge marks responses rejected for exceeding the body size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// ErrInvalidURL marks URLs rejected before any request was made.
var ErrInvalidURL = errors.New("invalid URL")

// ErrPrivateIP marks URLs that resolve to private or loopback addresses.
var ErrPrivateIP = errors.New("URL resolves to private IP")

// TransportError wraps connection-level failures (DNS, TLS, refused
// connections) that never produced an HTTP status.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorType classifies an error into the label used by the
// scrape_http_errors_total metric.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrBodyTooLarge):
		return "body_too_large"
	case errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrPrivateIP):
		return "invalid_url"
	}

	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return metrics.StatusBucket(httpErr.StatusCode)
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "transport"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "transport"
}
