package agent

import (
	"fmt"
	"net/http"
	"strings"

	"chatstream/internal/domain"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4096

// mapHTTPError maps a non-2xx status and body excerpt to a domain error.
// The result always wraps domain.ErrTransportOpen.
func mapHTTPError(statusCode int, body []byte) error {
	detail := fmt.Sprintf("agent returned %d", statusCode)
	if msg := strings.TrimSpace(string(body)); msg != "" {
		detail += ": " + msg
	}

	switch {
	case statusCode == http.StatusTooManyRequests: // 429
		return fmt.Errorf("%w: %w: %s", domain.ErrTransportOpen, domain.ErrRateLimit, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %w: %s", domain.ErrTransportOpen, domain.ErrServerError, detail)
	default:
		return fmt.Errorf("%w: %s", domain.ErrTransportOpen, detail)
	}
}
