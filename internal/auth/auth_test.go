package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderResolver(t *testing.T) {
	r := NewHeaderResolver("")

	req := httptest.NewRequest("GET", "/", nil)
	assert.True(t, r.Resolve(req).Anonymous())

	req.Header.Set("X-User-ID", "  u-1 ")
	id := r.Resolve(req)
	assert.False(t, id.Anonymous())
	assert.Equal(t, "u-1", id.UserID)
	assert.Equal(t, "user:u-1", id.Key(req))
}

func TestAnonymousKey(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "[::1]:5555"
	assert.Equal(t, "ip:::1", Identity{}.Key(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "ip:203.0.113.9", Identity{}.Key(req))
}
