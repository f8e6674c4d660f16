package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// auditMiddleware records every API request and its response. It buffers the
// request body and restores it for the handler, which is why the webhook route
// must never sit behind this chain.
func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		entry := AuditLogEntry{
			Timestamp: start.UTC(),
			Method:    r.Method,
			Path:      r.URL.Path,
		}

		var requestBody []byte
		if r.Body != nil {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(requestBody))
			entry.Request = string(requestBody)
		}

		wrw := newResponseWriterWrapper(w)

		next.ServeHTTP(wrw, r)

		entry.StatusCode = wrw.GetStatusCode()
		entry.Response = string(wrw.GetBody())
		entry.DurationMS = time.Since(start).Milliseconds()
		entry.BookingRef = bookingRefFrom(requestBody, wrw.GetBody())

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}

// bookingRefFrom pulls the booking ref out of the request, or failing that the
// response, so audit entries can be correlated with webhook deliveries.
func bookingRefFrom(request, response []byte) string {
	var probe struct {
		BookingRef string `json:"bookingRef"`
	}
	if err := json.Unmarshal(request, &probe); err == nil && probe.BookingRef != "" {
		return probe.BookingRef
	}
	if err := json.Unmarshal(response, &probe); err == nil {
		return probe.BookingRef
	}
	return ""
}
