package middleware

import (
	"net"
	"net/http"
	"strings"

	"go-trip-planner/internal/event"
)

// ClientAddress resolves the caller's address once per request and stores
// it in the context. trustedHops is the number of proxies in front of the
// service that append to X-Forwarded-For; 0 ignores forwarding headers.
func ClientAddress(trustedHops int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ExtractClientIP(r, trustedHops)
			next.ServeHTTP(w, r.WithContext(event.WithClientIP(r.Context(), ip)))
		})
	}
}

// ExtractClientIP returns the best-known client address, or "" when none
// can be determined.
//
// Each trusted proxy appends the address it received the request from, so
// the client is the entry trustedHops positions from the right. Anything to
// the left of it was supplied by the client and is ignored.
func ExtractClientIP(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
			if ip := forwardedFor(values, trustedHops); ip != "" {
				return ip
			}
		} else if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
			return realIP
		}
	}

	return remoteHost(r)
}

func forwardedFor(values []string, trustedHops int) string {
	var hops []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			hops = append(hops, strings.TrimSpace(part))
		}
	}
	if len(hops) == 0 {
		return ""
	}

	i := len(hops) - trustedHops
	if i < 0 {
		i = 0
	}
	if net.ParseIP(hops[i]) == nil {
		return ""
	}
	return hops[i]
}

func remoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func clientIP(r *http.Request) string {
	if ip := event.ClientIP(r.Context()); ip != "" {
		return ip
	}
	return remoteHost(r)
}
