package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const CorrelationHeader = "X-Correlation-ID"

type correlationKey struct{}

// CorrelationID ensures every request carries a correlation id. An id sent
// by the client is kept; otherwise one is generated. The id is echoed back
// in the response header and stored in the request context.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(CorrelationHeader, id)
		ctx := context.WithValue(req.Context(), correlationKey{}, id)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// CorrelationIDFromContext returns the request's correlation id, or an
// empty string when the middleware did not run.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
