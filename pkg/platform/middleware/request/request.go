// Package request assigns every HTTP request an ID that is threaded through
// logs, audit events and the response.
package request

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"nameguard/pkg/requestcontext"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const maxInboundIDLength = 128

// RequestID reuses a well-formed inbound X-Request-ID or generates a UUID,
// stores it in the context and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if !valid(id) {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}

// valid accepts printable ASCII IDs up to maxInboundIDLength so a caller
// cannot inject control characters into log lines.
func valid(id string) bool {
	if id == "" || len(id) > maxInboundIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
