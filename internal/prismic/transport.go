package prismic

import (
	"net/http"
	"net/url"
	"time"

	"github.com/spacetraveling/internal/logger"
	"github.com/spacetraveling/internal/trace"
)

// loggingTransport logs every outbound call and forwards the request id.
type loggingTransport struct {
	inner http.RoundTripper
}

// NewLoggingTransport wraps inner (http.DefaultTransport when nil).
func NewLoggingTransport(inner http.RoundTripper) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &loggingTransport{inner: inner}
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	requestID := trace.RequestIDFromContext(req.Context())
	if requestID != "" && req.Header.Get(trace.HeaderRequestID) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(trace.HeaderRequestID, requestID)
	}

	resp, err := l.inner.RoundTrip(req)
	fields := logger.Fields{
		"method":     req.Method,
		"url":        redactURL(req.URL),
		"duration":   time.Since(start).String(),
		"request_id": requestID,
	}
	if err != nil {
		fields["error"] = err.Error()
		logger.ErrorWithFields("content request failed", fields)
		return nil, err
	}
	fields["status"] = resp.StatusCode
	logger.DebugWithFields("content request", fields)
	return resp, nil
}

func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	q := clone.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		clone.RawQuery = q.Encode()
	}
	return clone.String()
}
