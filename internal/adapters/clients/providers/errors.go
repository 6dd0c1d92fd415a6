package providers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Massy-Haddad/Lucid/internal/adapters/clients"
	"github.com/Massy-Haddad/Lucid/internal/domain"
)

// mapClientError translates HTTP-client failures into domain errors.
// Timeouts keep their own reason string so feed handlers can tell a slow
// upstream apart from a dead one in logs.
func mapClientError(err error, serviceName, operation string) error {
	switch {
	case errors.Is(err, clients.ErrTimeout):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s timed out", operation))

	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("circuit breaker open during %s", operation))

	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("max retries exceeded during %s", operation))

	default:
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s failed: %v", operation, err))
	}
}

// mapStatusCode translates non-2xx upstream responses into domain errors.
// Quote APIs have no meaningful error bodies, so only the status matters.
func mapStatusCode(status int, serviceName, operation string) error {
	switch {
	case status == http.StatusNotFound:
		return domain.NewNotFoundError(serviceName, "")

	case status == http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, "rate limit exceeded")

	case status >= http.StatusInternalServerError:
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s failed with status %d", operation, status))

	default:
		return domain.NewValidationError("",
			fmt.Sprintf("%s rejected with status %d", operation, status))
	}
}
