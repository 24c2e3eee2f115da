package acl

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jsamuelsen/quote-sync/internal/adapters/clients"
	"github.com/jsamuelsen/quote-sync/internal/domain"
)

// maxErrorBody caps how much of a failed response is read for a message.
const maxErrorBody = 64 << 10

// remoteError accepts both {"error":{"message":...}} and {"message":...}.
type remoteError struct {
	Nested struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// errorMessage pulls a human message out of an error body, or "" when the
// body is empty, not JSON, or says nothing.
func errorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	var re remoteError
	if err := json.NewDecoder(io.LimitReader(body, maxErrorBody)).Decode(&re); err != nil {
		return ""
	}

	if re.Nested.Message != "" {
		return re.Nested.Message
	}

	return re.Message
}

// MapHTTPError turns the outcome of one exchange into a domain.FetchError.
// resp may be nil when clientErr is set. A 2xx response maps to nil.
func MapHTTPError(resp *http.Response, clientErr error, service, operation string) error {
	switch {
	case errors.Is(clientErr, clients.ErrCircuitOpen):
		return domain.NewFetchError(service, operation, "circuit breaker open")
	case clientErr != nil:
		return domain.NewFetchError(service, operation, clientErr.Error())
	case resp == nil:
		return domain.NewFetchError(service, operation, "no response received")
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	}

	message := errorMessage(resp.Body)
	if message == "" {
		message = statusMessage(resp.StatusCode)
	}

	return domain.NewFetchStatusError(service, operation, resp.StatusCode, message)
}

func statusMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "invalid request"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "access denied"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return "service temporarily unavailable"
	}

	if text := http.StatusText(status); text != "" {
		return text
	}

	return "unexpected status"
}
