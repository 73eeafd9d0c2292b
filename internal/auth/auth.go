// Package auth resolves the caller of a request. Authentication itself
// happens upstream; by the time a request arrives here the gateway has
// already verified the user and forwarded their id in a header.
package auth

import (
	"net/http"
	"strings"
)

// DefaultHeader carries the verified user id
const DefaultHeader = "X-User-ID"

// Identity is the caller of a request. The zero value is anonymous.
type Identity struct {
	UserID string
}

// Anonymous reports whether the caller is unauthenticated
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// Key identifies the caller for rate limiting; anonymous callers are keyed by address
func (i Identity) Key(r *http.Request) string {
	if !i.Anonymous() {
		return "user:" + i.UserID
	}
	return "ip:" + clientIP(r)
}

// Resolver maps a request to an Identity
type Resolver interface {
	Resolve(r *http.Request) Identity
}

// HeaderResolver trusts a header set by the gateway
type HeaderResolver struct {
	Header string
}

// NewHeaderResolver creates a resolver reading header, or DefaultHeader when empty
func NewHeaderResolver(header string) *HeaderResolver {
	if header == "" {
		header = DefaultHeader
	}
	return &HeaderResolver{Header: header}
}

// Resolve returns the identity in the configured header
func (h *HeaderResolver) Resolve(r *http.Request) Identity {
	return Identity{UserID: strings.TrimSpace(r.Header.Get(h.Header))}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}
