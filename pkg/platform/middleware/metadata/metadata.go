package metadata

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"claimdesk/pkg/requestcontext"
)

// ClientMetadata records the client IP and User-Agent on the request context.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest extracts the originating client IP, honoring
// X-Forwarded-For and X-Real-IP set by the ingress.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Agent is the parsed User-Agent of the caller.
type Agent struct {
	Raw     string
	Browser string
	OS      string
	Bot     bool
}

// scannerMarkers catch mail-security link scanners that do not announce
// themselves as bots in a way the parser recognises.
var scannerMarkers = []string{"safelinks", "proofpoint", "mimecast", "barracuda", "urldefense"}

// ParseAgent classifies a User-Agent string.
func ParseAgent(raw string) Agent {
	a := Agent{Raw: raw}
	if raw == "" {
		return a
	}
	ua := useragent.New(raw)
	a.Browser, _ = ua.Browser()
	a.OS = ua.OS()
	a.Bot = ua.Bot()
	lower := strings.ToLower(raw)
	for _, marker := range scannerMarkers {
		if strings.Contains(lower, marker) {
			a.Bot = true
			break
		}
	}
	return a
}

// AgentFromContext parses the User-Agent recorded by ClientMetadata.
func AgentFromContext(ctx context.Context) Agent {
	return ParseAgent(requestcontext.UserAgent(ctx))
}
