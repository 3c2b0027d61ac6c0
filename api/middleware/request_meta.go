package middleware

import (
	"context"
	"net/http"
	"strings"
)

const (
	ctxClientIP  contextKey = "client_ip"
	ctxUserAgent contextKey = "user_agent"
)

// RequestMeta records the caller's IP address and user agent so downstream
// handlers can attach provenance to activity log entries.
func RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxClientIP, clientIP(r))
		if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
			ctx = context.WithValue(ctx, ctxUserAgent, ua)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientIP).(string); ok {
		return v
	}
	return ""
}

func UserAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserAgent).(string); ok {
		return v
	}
	return ""
}
