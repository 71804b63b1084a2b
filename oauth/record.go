package oauth

import (
	"encoding/json"
	"time"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

// TokenRecord is one user's OAuth tokens. It is owned by the Manager and
// persisted encrypted; handler code only ever sees the access token value
// returned by GetToken.
type TokenRecord struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
}

// ExpiresWithin reports whether the access token expires inside the given
// buffer (or already has).
func (r *TokenRecord) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	return !now.Before(r.ExpiresAt.Add(-buffer))
}

func (r *TokenRecord) marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, kiterrors.Wrapf(err, "TokenRecord marshal")
	}
	return data, nil
}

func unmarshalTokenRecord(data []byte) (*TokenRecord, error) {
	var r TokenRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, kiterrors.Wrapf(err, "TokenRecord unmarshal")
	}
	return &r, nil
}
