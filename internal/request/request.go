package request

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

type contextKey string

const (
	requestIDContextKey contextKey = "request_id"
	clientIPContextKey  contextKey = "client_ip"
)

// RequestIDHeader carries the request ID to the browser and to the core API.
const RequestIDHeader = "X-Request-ID"

// ClientIP returns the client IP resolved by the RealIP middleware, falling
// back to the socket peer address.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPContextKey).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

// WithClientIP returns a context carrying the resolved client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey, ip)
}

// ResolveClientIP picks the client address. Forwarding headers are only
// honoured when the peer is one of the trusted proxies; X-Forwarded-For is
// then walked right to left and the first untrusted hop wins.
func ResolveClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := remoteHost(r)
	if len(trusted) == 0 || !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		var hops []string
		for _, line := range xff {
			for _, part := range strings.Split(line, ",") {
				if hop := strings.TrimSpace(part); hop != "" {
					hops = append(hops, hop)
				}
			}
		}
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(hops[i])
			if err != nil {
				// A malformed hop was written by someone we don't trust.
				if i+1 < len(hops) {
					return hops[i+1]
				}
				return peer
			}
			if !containsAddr(addr.Unmap(), trusted) {
				return addr.Unmap().String()
			}
		}
		if len(hops) > 0 {
			return hops[0]
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return containsAddr(addr.Unmap(), trusted)
}

func containsAddr(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Authorization returns the caller's Authorization header verbatim, or "" when absent.
func Authorization(r *http.Request) string {
	return r.Header.Get("Authorization")
}

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// RequestIDFromContext returns the request ID, or "" when none was assigned.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
