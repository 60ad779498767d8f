// Package metadata captures the caller's network origin for the audit
// trail. The middleware stamps client IP and User-Agent onto the request
// context; services read them back when they emit audit events.
package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}
type userAgentKey struct{}

// ClientMetadata records the client IP and User-Agent on the request
// context. Apply it early in the chain so every downstream emitter sees
// the same origin.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithClientMetadata(r.Context(), clientIP(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the client IP recorded by ClientMetadata, or "" when
// the request never passed through it.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent returns the User-Agent recorded by ClientMetadata, or "".
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client metadata directly, for callers that
// do not run the HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// clientIP resolves the originating address, preferring proxy headers
// over the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first entry is the original client; the rest are proxies
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
