// Package oauth implements the token lifecycle for users authenticating
// via Adobe IMS: protocol client, token manager, and the two-phase
// authorization flow.
package oauth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

// Adobe IMS OAuth 2.0 endpoints.
const (
	DefaultAuthURL  = "https://ims-na1.adobelogin.com/ims/authorize/v2"
	DefaultTokenURL = "https://ims-na1.adobelogin.com/ims/token/v3"
)

// Client performs the stateless OAuth protocol operations against the
// identity provider. None of the operations retry internally; exchange in
// particular must not be retried with the same code (codes are single-use).
type Client interface {
	// AuthorizationURL builds the provider redirect URL. No I/O.
	AuthorizationURL(state string) string

	// ExchangeCode performs the authorization-code grant. Any non-success
	// provider response fails with ErrTokenExchange.
	ExchangeCode(ctx context.Context, code string) (*TokenRecord, error)

	// Refresh performs the refresh-token grant. Any non-success provider
	// response fails with ErrTokenRefresh. The returned refresh token may
	// equal the input; callers must use whichever comes back.
	Refresh(ctx context.Context, refreshToken string) (*TokenRecord, error)
}

// IMSClient is the Adobe IMS implementation of Client, built on
// golang.org/x/oauth2.
type IMSClient struct {
	cfg     oauth2.Config
	timeout time.Duration
	nowFunc func() time.Time
}

type IMSOption func(*IMSClient)

// WithEndpoints overrides the IMS endpoints, e.g. for a test server.
func WithEndpoints(authURL, tokenURL string) IMSOption {
	return func(c *IMSClient) {
		c.cfg.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	}
}

func WithTimeout(timeout time.Duration) IMSOption {
	return func(c *IMSClient) {
		c.timeout = timeout
	}
}

func WithClientNowFunc(now func() time.Time) IMSOption {
	return func(c *IMSClient) {
		c.nowFunc = now
	}
}

func NewIMSClient(clientID, clientSecret, redirectURI string, scopes []string, options ...IMSOption) *IMSClient {
	c := &IMSClient{
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  DefaultAuthURL,
				TokenURL: DefaultTokenURL,
			},
		},
		timeout: 30 * time.Second,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

var _ Client = (*IMSClient)(nil)

func (c *IMSClient) AuthorizationURL(state string) string {
	return c.cfg.AuthCodeURL(state)
}

func (c *IMSClient) ExchangeCode(ctx context.Context, code string) (*TokenRecord, error) {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	token, err := c.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, kiterrors.Wrapf(kiterrors.ErrTokenExchange, "%v", err)
	}
	return c.record(token), nil
}

func (c *IMSClient) Refresh(ctx context.Context, refreshToken string) (*TokenRecord, error) {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	// An expired placeholder token forces TokenSource to hit the refresh
	// grant immediately.
	source := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, kiterrors.Wrapf(kiterrors.ErrTokenRefresh, "%v", err)
	}

	record := c.record(token)
	if record.RefreshToken == "" {
		// Provider did not rotate the refresh token.
		record.RefreshToken = refreshToken
	}
	return record, nil
}

func (c *IMSClient) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: c.timeout})
	return context.WithTimeout(ctx, c.timeout)
}

func (c *IMSClient) record(token *oauth2.Token) *TokenRecord {
	scopes := c.cfg.Scopes
	if granted, ok := token.Extra("scope").(string); ok && granted != "" {
		scopes = strings.Fields(granted)
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		// Providers that omit expires_in get a conservative default.
		expiresAt = c.nowFunc().Add(time.Hour)
	}

	return &TokenRecord{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
		Scopes:       scopes,
	}
}
