package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetStateTokenLength() int
	GetStateTTL() time.Duration
	GetRefreshBuffer() time.Duration
	GetTokenGraceWindow() time.Duration
	GetHTTPTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetClientID() string {
	return GetEnv("FRAMEIO_CLIENT_ID", "")
}

func (OAuth) GetClientSecret() string {
	return GetEnv("FRAMEIO_CLIENT_SECRET", "")
}

// GetRedirectURI returns the registered callback URL, defaulting to the
// callback route under the public base URL.
func (OAuth) GetRedirectURI() string {
	return GetEnv("FRAMEIO_REDIRECT_URI", EnvVars{}.GetBaseURL()+"/auth/callback")
}

func (OAuth) GetScopes() []string {
	scopes := GetEnv("FRAMEIO_SCOPES", "openid AdobeID frameio.api")
	return strings.Fields(scopes)
}

func (OAuth) GetStateTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

// GetStateTTL is the lifetime of a pending OAuth state record. A callback
// arriving after this window is rejected as an invalid state.
func (OAuth) GetStateTTL() time.Duration {
	return 10 * time.Minute
}

// GetRefreshBuffer is the window before token expiry in which GetToken
// refreshes proactively instead of returning the stored access token.
func (OAuth) GetRefreshBuffer() time.Duration {
	return 5 * time.Minute
}

// GetTokenGraceWindow is added to the token lifetime when computing the
// storage TTL, so storage-level expiry never races ahead of refresh logic.
func (OAuth) GetTokenGraceWindow() time.Duration {
	return 24 * time.Hour
}

func (OAuth) GetHTTPTimeout() time.Duration {
	return 30 * time.Second
}
