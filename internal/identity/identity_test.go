package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfiguredFallsBackToDisabled(t *testing.T) {
	p := NewClient("", "", "")
	assert.False(t, p.Configured())

	user, err := p.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCurrentUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","email":"buyer@example.com"}`))
	}))
	defer srv.Close()

	p := NewClient(srv.URL, "anon-key", "token-1")
	require.True(t, p.Configured())

	user, err := p.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "buyer@example.com", user.Email)
}

func TestCurrentUserUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := NewClient(srv.URL, "anon-key", "stale-token")
	user, err := p.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCurrentUserWithoutToken(t *testing.T) {
	p := NewClient("http://identity.local", "anon-key", "")
	user, err := p.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}
