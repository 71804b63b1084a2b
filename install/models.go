// Package install reconciles the declared handler manifest against remote
// Frame.io webhook and custom action resources, per tenant, and manages
// the per-tenant signing secrets that result.
package install

import (
	"encoding/json"
	"fmt"
	"time"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

// Tenant identifies one installed instance of the integration.
type Tenant struct {
	AccountID   string `json:"account_id"`
	WorkspaceID string `json:"workspace_id"`
}

func (t Tenant) String() string {
	return fmt.Sprintf("%s:%s", t.AccountID, t.WorkspaceID)
}

// StatusActive is the only status a stored record carries; uninstall
// deletes the record instead of marking it.
const StatusActive = "active"

// WebhookResource is the single consolidated webhook for a tenant. All
// declared webhook event types share one remote resource and one secret.
type WebhookResource struct {
	RemoteID   string   `json:"remote_id"`
	EventTypes []string `json:"event_types"`
	Secret     string   `json:"secret"`
}

// ActionResource is one installed custom action. The event type is the
// stable identity key; the secret is assigned at remote creation and
// never changes until the resource is deleted and recreated.
type ActionResource struct {
	RemoteID    string `json:"remote_id"`
	EventType   string `json:"event_type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Secret      string `json:"secret"`
}

// Record is the stored installation state for one tenant. It is encrypted
// as a whole before persisting, so every embedded secret and config value
// is protected at rest.
type Record struct {
	AccountID       string            `json:"account_id"`
	WorkspaceID     string            `json:"workspace_id"`
	Status          string            `json:"status"`
	Webhook         *WebhookResource  `json:"webhook,omitempty"`
	Actions         []ActionResource  `json:"actions"`
	Config          map[string]string `json:"config,omitempty"`
	ManifestVersion string            `json:"manifest_version"`
	InstalledAt     time.Time         `json:"installed_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (r *Record) marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, kiterrors.Wrapf(err, "install.Record marshal")
	}
	return data, nil
}

func unmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, kiterrors.Wrapf(err, "install.Record unmarshal")
	}
	return &r, nil
}

// action returns the action entry for the event type, if present.
func (r *Record) action(eventType string) (*ActionResource, bool) {
	for i := range r.Actions {
		if r.Actions[i].EventType == eventType {
			return &r.Actions[i], true
		}
	}
	return nil, false
}

// Summary reports what a reconciliation run did, per resource, so the
// admin-facing caller can display "N succeeded, M failed".
type Summary struct {
	Created []string                    `json:"created"`
	Updated []string                    `json:"updated"`
	Deleted []string                    `json:"deleted"`
	Failed  []kiterrors.ResourceFailure `json:"-"`
}

// FailureMessages renders the per-resource failures for display.
func (s *Summary) FailureMessages() []string {
	msgs := make([]string, 0, len(s.Failed))
	for _, f := range s.Failed {
		msgs = append(msgs, f.Error())
	}
	return msgs
}

// UninstallSummary reports remote deletes that failed during uninstall.
// The local record is deleted regardless; these are warnings about
// possibly orphaned remote resources.
type UninstallSummary struct {
	Deleted  []string `json:"deleted"`
	Warnings []string `json:"warnings"`
}

// StatusReport is the install-status view for one tenant.
type StatusReport struct {
	Installed       bool      `json:"installed"`
	UpdateAvailable bool      `json:"update_available,omitempty"`
	WebhookEvents   []string  `json:"webhook_events,omitempty"`
	ActionEvents    []string  `json:"action_events,omitempty"`
	InstalledAt     time.Time `json:"installed_at,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}
