package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/oauth"
)

func newIMSTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *oauth.IMSClient) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := oauth.NewIMSClient("client-id", "client-secret", "https://myapp.com/auth/callback",
		[]string{"openid", "frameio.api"},
		oauth.WithEndpoints(server.URL+"/authorize", server.URL+"/token"),
	)
	return server, client
}

func TestAuthorizationURL(t *testing.T) {
	_, client := newIMSTestServer(t, nil)

	rawURL := client.AuthorizationURL("the-state")
	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "client-id", q.Get("client_id"))
	require.Equal(t, "the-state", q.Get("state"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "https://myapp.com/auth/callback", q.Get("redirect_uri"))
	require.Contains(t, q.Get("scope"), "frameio.api")
}

func TestExchangeCode(t *testing.T) {
	var gotGrant, gotCode string
	_, client := newIMSTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.FormValue("grant_type")
		gotCode = r.FormValue("code")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "the-access",
			"refresh_token": "the-refresh",
			"token_type": "bearer",
			"expires_in": 3600,
			"scope": "openid frameio.api"
		}`))
	})

	record, err := client.ExchangeCode(context.Background(), "auth-code")
	require.NoError(t, err)
	require.Equal(t, "authorization_code", gotGrant)
	require.Equal(t, "auth-code", gotCode)
	require.Equal(t, "the-access", record.AccessToken)
	require.Equal(t, "the-refresh", record.RefreshToken)
	require.Equal(t, []string{"openid", "frameio.api"}, record.Scopes)
	require.False(t, record.ExpiresAt.IsZero())
}

func TestExchangeCodeProviderError(t *testing.T) {
	_, client := newIMSTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := client.ExchangeCode(context.Background(), "expired-code")
	require.ErrorIs(t, err, kiterrors.ErrTokenExchange)
}

func TestRefresh(t *testing.T) {
	var gotGrant, gotToken string
	_, client := newIMSTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.FormValue("grant_type")
		gotToken = r.FormValue("refresh_token")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "new-access",
			"refresh_token": "rotated-refresh",
			"token_type": "bearer",
			"expires_in": 3600
		}`))
	})

	record, err := client.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "refresh_token", gotGrant)
	require.Equal(t, "old-refresh", gotToken)
	require.Equal(t, "new-access", record.AccessToken)
	require.Equal(t, "rotated-refresh", record.RefreshToken)
}

func TestRefreshKeepsTokenWhenProviderDoesNotRotate(t *testing.T) {
	_, client := newIMSTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "new-access",
			"token_type": "bearer",
			"expires_in": 3600
		}`))
	})

	record, err := client.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "old-refresh", record.RefreshToken)
}

func TestRefreshProviderError(t *testing.T) {
	_, client := newIMSTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_token"}`))
	})

	_, err := client.Refresh(context.Background(), "revoked")
	require.ErrorIs(t, err, kiterrors.ErrTokenRefresh)
}
