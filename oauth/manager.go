package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/day2-ai/frameio-kit/encryption"
	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/storage"
)

// Manager owns the OAuth token lifecycle for individual users: issuance
// recording, expiry-aware retrieval with refresh, and deletion. Records
// are encrypted before they touch storage.
type Manager struct {
	store      storage.Store
	encryption *encryption.Provider
	client     Client

	refreshBuffer time.Duration // refresh proactively inside this window
	graceWindow   time.Duration // added to the storage TTL past token expiry

	// Refresh for a given user is single-flighted so concurrent GetToken
	// calls inside the buffer trigger one provider call, not several. Some
	// providers invalidate the old refresh token immediately on use, which
	// would fail the second concurrent caller.
	refreshGroup singleflight.Group

	nowFunc func() time.Time
	log     zerolog.Logger
}

type ManagerOption func(*Manager)

func WithRefreshBuffer(buffer time.Duration) ManagerOption {
	return func(m *Manager) { m.refreshBuffer = buffer }
}

func WithGraceWindow(grace time.Duration) ManagerOption {
	return func(m *Manager) { m.graceWindow = grace }
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.nowFunc = now }
}

func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

func NewManager(store storage.Store, enc *encryption.Provider, client Client, options ...ManagerOption) *Manager {
	m := &Manager{
		store:         store,
		encryption:    enc,
		client:        client,
		refreshBuffer: 5 * time.Minute,
		graceWindow:   24 * time.Hour,
		nowFunc:       time.Now,
		log:           zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func userKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// GetToken returns a valid access token for the user, or ok=false if the
// user has never authenticated (the caller triggers the authorization
// flow). A token inside the refresh buffer is refreshed first; if the
// refresh fails, the stored record is deleted and the call fails with
// ErrTokenRefresh — a token that cannot be refreshed is assumed revoked,
// and the caller must treat this identically to "never authenticated".
func (m *Manager) GetToken(ctx context.Context, userID string) (string, bool, error) {
	record, ok, err := m.load(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	if !record.ExpiresWithin(m.nowFunc(), m.refreshBuffer) {
		return record.AccessToken, true, nil
	}

	refreshed, err, _ := m.refreshGroup.Do(userID, func() (interface{}, error) {
		return m.refresh(ctx, userID, record)
	})
	if err != nil {
		return "", false, err
	}
	return refreshed.(*TokenRecord).AccessToken, true, nil
}

func (m *Manager) refresh(ctx context.Context, userID string, record *TokenRecord) (*TokenRecord, error) {
	refreshed, err := m.client.Refresh(ctx, record.RefreshToken)
	if err != nil {
		// Fail closed: delete the record so the next GetToken reports
		// absent and forces re-authentication.
		if deleteErr := m.store.Delete(ctx, userKey(userID)); deleteErr != nil {
			m.log.Error().Err(deleteErr).Str("user_id", userID).Msg("failed to delete token record after failed refresh")
		}
		m.log.Warn().Str("user_id", userID).Msg("token refresh failed, record deleted")
		return nil, kiterrors.Wrapf(err, "Manager.GetToken refresh for user %s", userID)
	}

	refreshed.UserID = userID
	if err := m.StoreToken(ctx, userID, refreshed); err != nil {
		return nil, err
	}
	m.log.Debug().Str("user_id", userID).Time("expires_at", refreshed.ExpiresAt).Msg("token refreshed")
	return refreshed, nil
}

// StoreToken persists the record encrypted, with a storage TTL of the
// token lifetime plus the grace window so storage expiry never races
// ahead of the refresh logic. A record's ExpiresAt must be in the future
// at write time; a provider response carrying an elapsed expiry is
// rejected rather than stored pre-expired.
func (m *Manager) StoreToken(ctx context.Context, userID string, record *TokenRecord) error {
	record.UserID = userID

	now := m.nowFunc()
	if !record.ExpiresAt.After(now) {
		return kiterrors.Wrapf(kiterrors.ErrTokenExchange, "Manager.StoreToken record for user %s already expired at %s", userID, record.ExpiresAt.Format(time.RFC3339))
	}

	plaintext, err := record.marshal()
	if err != nil {
		return err
	}
	ciphertext, err := m.encryption.Encrypt(plaintext)
	if err != nil {
		return kiterrors.Wrapf(err, "Manager.StoreToken encrypt for user %s", userID)
	}

	ttl := record.ExpiresAt.Sub(now) + m.graceWindow
	if err := m.store.Put(ctx, userKey(userID), ciphertext, ttl); err != nil {
		return kiterrors.Wrapf(err, "Manager.StoreToken put for user %s", userID)
	}
	return nil
}

// DeleteToken removes the user's record (logout or explicit revocation).
func (m *Manager) DeleteToken(ctx context.Context, userID string) error {
	if err := m.store.Delete(ctx, userKey(userID)); err != nil {
		return kiterrors.Wrapf(err, "Manager.DeleteToken for user %s", userID)
	}
	return nil
}

func (m *Manager) load(ctx context.Context, userID string) (*TokenRecord, bool, error) {
	ciphertext, ok, err := m.store.Get(ctx, userKey(userID))
	if err != nil {
		return nil, false, kiterrors.Wrapf(err, "Manager get for user %s", userID)
	}
	if !ok {
		return nil, false, nil
	}

	plaintext, err := m.encryption.Decrypt(ciphertext)
	if err != nil {
		// Unreadable ciphertext (rotated key, corruption) surfaces as
		// re-authentication required, not a stale record kept around.
		return nil, false, kiterrors.Wrapf(err, "Manager decrypt for user %s", userID)
	}

	record, err := unmarshalTokenRecord(plaintext)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}
