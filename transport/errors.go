package transport

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/goliatone/go-crm-connector/core"
)

const maxExcerptBytes = 512

func requestError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return core.RemoteTimeoutError(operation, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.RemoteTimeoutError(operation, err)
	}
	return core.RemoteRequestFailedError(operation, err)
}

// Excerpt trims a response body to a short printable prefix for error
// messages.
func Excerpt(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > maxExcerptBytes {
		trimmed = trimmed[:maxExcerptBytes] + "..."
	}
	return trimmed
}
