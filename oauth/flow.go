package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/storage"
)

// stateRecord is the ephemeral CSRF correlation record created when an
// authorization URL is issued and consumed once on callback.
type stateRecord struct {
	UserID        string    `json:"user_id"`
	InteractionID string    `json:"interaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Completion is the outcome of a successful callback: the stored token
// record plus the interaction the login was initiated from, if any.
type Completion struct {
	Record        *TokenRecord
	InteractionID string
}

// Flow implements the two-phase authorization flow. Issuing a state token
// separately from completing the callback is the CSRF defense: an attacker
// who tricks a victim into visiting a crafted callback URL cannot forge a
// state token they never received.
type Flow struct {
	client  Client
	manager *Manager
	store   storage.Store

	stateTTL time.Duration
	stateLen int
	nowFunc  func() time.Time
}

type FlowOption func(*Flow)

func WithStateTTL(ttl time.Duration) FlowOption {
	return func(f *Flow) { f.stateTTL = ttl }
}

// WithStateTokenLength sets the state token length in bytes. Lengths
// below 16 bytes (128 bits) are ignored; a guessable state token defeats
// the CSRF defense.
func WithStateTokenLength(n int) FlowOption {
	return func(f *Flow) {
		if n >= 16 {
			f.stateLen = n
		}
	}
}

func WithFlowNowFunc(now func() time.Time) FlowOption {
	return func(f *Flow) { f.nowFunc = now }
}

func NewFlow(client Client, manager *Manager, store storage.Store, options ...FlowOption) *Flow {
	f := &Flow{
		client:   client,
		manager:  manager,
		store:    store,
		stateTTL: 10 * time.Minute,
		stateLen: 32, // 256 bits
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

func stateKey(token string) string {
	return fmt.Sprintf("authstate:%s", token)
}

// Begin stores a fresh single-use state record and returns the provider
// authorization URL to redirect the user to.
func (f *Flow) Begin(ctx context.Context, userID, interactionID string) (string, error) {
	if userID == "" {
		return "", kiterrors.Wrapf(kiterrors.ErrConfiguration, "user_id is required")
	}

	tokenBytes := make([]byte, f.stateLen)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", kiterrors.Wrapf(err, "Flow.Begin rand.Read")
	}
	stateToken := hex.EncodeToString(tokenBytes)

	record := stateRecord{
		UserID:        userID,
		InteractionID: interactionID,
		CreatedAt:     f.nowFunc(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", kiterrors.Wrapf(err, "Flow.Begin marshal state")
	}
	if err := f.store.Put(ctx, stateKey(stateToken), data, f.stateTTL); err != nil {
		return "", kiterrors.Wrapf(err, "Flow.Begin put state")
	}

	return f.client.AuthorizationURL(stateToken), nil
}

// Complete consumes the state token and exchanges the code. Unknown,
// already-consumed, and expired states are indistinguishable on purpose;
// all fail with ErrInvalidState.
func (f *Flow) Complete(ctx context.Context, code, stateToken string) (*Completion, error) {
	data, ok, err := f.store.GetDelete(ctx, stateKey(stateToken))
	if err != nil {
		return nil, kiterrors.Wrapf(err, "Flow.Complete consume state")
	}
	if !ok {
		return nil, kiterrors.ErrInvalidState
	}

	var record stateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, kiterrors.Wrapf(err, "Flow.Complete unmarshal state")
	}

	// Backends may treat TTL as advisory; enforce the ceiling here too.
	if f.nowFunc().Sub(record.CreatedAt) > f.stateTTL {
		return nil, kiterrors.ErrInvalidState
	}

	tokens, err := f.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if err := f.manager.StoreToken(ctx, record.UserID, tokens); err != nil {
		return nil, err
	}

	return &Completion{Record: tokens, InteractionID: record.InteractionID}, nil
}
