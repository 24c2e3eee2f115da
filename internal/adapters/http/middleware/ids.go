package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jsamuelsen/quote-sync/internal/platform/logging"
)

const (
	// HeaderRequestID identifies one HTTP request.
	HeaderRequestID = "X-Request-ID"

	// HeaderCorrelationID follows a whole operation across services, such
	// as an API call and the remote pushes it causes.
	HeaderCorrelationID = "X-Correlation-ID"

	maxIncomingIDLen = 128
)

type idKey int

const (
	requestIDKey idKey = iota
	correlationIDKey
)

// idKind binds a header to its context slot and logger field.
type idKind struct {
	header string
	key    idKey
	log    func(context.Context, string) context.Context
}

var (
	requestIDs     = idKind{header: HeaderRequestID, key: requestIDKey, log: logging.WithRequestID}
	correlationIDs = idKind{header: HeaderCorrelationID, key: correlationIDKey, log: logging.WithCorrelationID}
)

// RequestID adopts a well-formed incoming X-Request-ID or mints a UUID,
// echoes it on the response and puts it on the request context and logger.
func RequestID() gin.HandlerFunc { return requestIDs.handler() }

// CorrelationID is RequestID for X-Correlation-ID.
func CorrelationID() gin.HandlerFunc { return correlationIDs.handler() }

// RequestIDFromContext returns the request id, or "". The remote client
// forwards it on outgoing calls.
func RequestIDFromContext(ctx context.Context) string { return requestIDs.from(ctx) }

// CorrelationIDFromContext returns the correlation id, or "".
func CorrelationIDFromContext(ctx context.Context) string { return correlationIDs.from(ctx) }

// ContextWithRequestID stores a request id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// ContextWithCorrelationID stores a correlation id in ctx.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func (k idKind) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(k.header)
		if !wellFormedID(id) {
			id = uuid.NewString()
		}

		c.Header(k.header, id)

		ctx := context.WithValue(c.Request.Context(), k.key, id)
		c.Request = c.Request.WithContext(k.log(ctx, id))

		c.Next()
	}
}

func (k idKind) from(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(k.key).(string)

	return id
}

// wellFormedID accepts short ids made of letters, digits and . _ - :
// so caller input never reaches logs or response headers unchecked.
func wellFormedID(id string) bool {
	if id == "" || len(id) > maxIncomingIDLen {
		return false
	}

	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-', r == ':':
		default:
			return false
		}
	}

	return true
}
