// Package apiclient talks JSON to remote AI providers and maps their HTTP
// failures onto the domain error taxonomy.
package apiclient

import (
	"fmt"
	"net/http"

	"github.com/custodia-labs/lexgraph/internal/core/domain"
)

// maxBody caps how much of an error body is echoed into the message.
const maxBody = 512

// FromStatus returns nil for 200 OK. Rejected credentials wrap
// domain.ErrConfiguration; rate limiting and 5xx wrap domain.ErrTransient.
// Any other status is a plain error.
func FromStatus(provider string, status int, body []byte) error {
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: API key rejected (status %d): %w", provider, status, domain.ErrConfiguration)
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%s: status %d: %s: %w", provider, status, string(body), domain.ErrTransient)
	default:
		return fmt.Errorf("%s: API returned status %d: %s", provider, status, string(body))
	}
}
