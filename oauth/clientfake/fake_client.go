// Package clientfake provides an in-memory oauth.Client for tests.
package clientfake

import (
	"context"
	"fmt"
	"sync"
	"time"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/oauth"
)

var _ oauth.Client = (*FakeClient)(nil)

// FakeClient counts protocol calls and returns canned responses.
type FakeClient struct {
	mu sync.Mutex

	ExchangeCalls int
	RefreshCalls  int

	ExchangeRecord *oauth.TokenRecord
	RefreshRecord  *oauth.TokenRecord
	FailExchange   bool
	FailRefresh    bool
	RefreshDelay   time.Duration
}

func New() *FakeClient {
	return &FakeClient{}
}

func (c *FakeClient) AuthorizationURL(state string) string {
	return fmt.Sprintf("https://ims.example.com/authorize?state=%s", state)
}

func (c *FakeClient) ExchangeCode(_ context.Context, code string) (*oauth.TokenRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ExchangeCalls++
	if c.FailExchange {
		return nil, kiterrors.Wrapf(kiterrors.ErrTokenExchange, "fake exchange failure for code %s", code)
	}
	if c.ExchangeRecord != nil {
		record := *c.ExchangeRecord
		return &record, nil
	}
	return &oauth.TokenRecord{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    time.Now().Add(time.Hour),
		Scopes:       []string{"openid", "frameio.api"},
	}, nil
}

func (c *FakeClient) Refresh(_ context.Context, refreshToken string) (*oauth.TokenRecord, error) {
	c.mu.Lock()
	c.RefreshCalls++
	delay := c.RefreshDelay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailRefresh {
		return nil, kiterrors.Wrapf(kiterrors.ErrTokenRefresh, "fake refresh failure")
	}
	if c.RefreshRecord != nil {
		record := *c.RefreshRecord
		return &record, nil
	}
	return &oauth.TokenRecord{
		AccessToken:  "refreshed-access",
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
		Scopes:       []string{"openid", "frameio.api"},
	}, nil
}
