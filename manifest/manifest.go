// Package manifest describes the webhook subscriptions and custom actions
// an application declares at startup. The registry is built once, frozen,
// and injected wherever the declared handler set is needed; it is never
// mutated at runtime.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

// Action declares one custom action handler.
type Action struct {
	EventType   string // stable identity key, e.g. "my_app.transcribe"
	Name        string
	Description string
}

// Registry collects handler declarations during the startup phase. Call
// Freeze once registration is complete; registration after Freeze fails.
type Registry struct {
	mu       sync.Mutex
	frozen   bool
	webhooks map[string]struct{}
	actions  map[string]Action
}

func NewRegistry() *Registry {
	return &Registry{
		webhooks: make(map[string]struct{}),
		actions:  make(map[string]Action),
	}
}

// RegisterWebhook declares webhook event types the app subscribes to.
// Duplicate registrations collapse into one subscription.
func (r *Registry) RegisterWebhook(eventTypes ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return kiterrors.Wrapf(kiterrors.ErrConfiguration, "registry is frozen")
	}
	for _, eventType := range eventTypes {
		if eventType == "" {
			return kiterrors.Wrapf(kiterrors.ErrConfiguration, "webhook event type cannot be empty")
		}
		r.webhooks[eventType] = struct{}{}
	}
	return nil
}

// RegisterAction declares a custom action. Each event type may be declared
// at most once.
func (r *Registry) RegisterAction(action Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return kiterrors.Wrapf(kiterrors.ErrConfiguration, "registry is frozen")
	}
	if action.EventType == "" {
		return kiterrors.Wrapf(kiterrors.ErrConfiguration, "action event type cannot be empty")
	}
	if _, exists := r.actions[action.EventType]; exists {
		return kiterrors.Wrapf(kiterrors.ErrConfiguration, "action %q already registered", action.EventType)
	}
	r.actions[action.EventType] = action
	return nil
}

// Freeze marks the registry read-only. Idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// WebhookEventTypes returns the declared webhook event types, sorted.
func (r *Registry) WebhookEventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, 0, len(r.webhooks))
	for eventType := range r.webhooks {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}

// Actions returns the declared actions, sorted by event type.
func (r *Registry) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := make([]Action, 0, len(r.actions))
	for _, action := range r.actions {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].EventType < actions[j].EventType
	})
	return actions
}

// HasWebhook reports whether the event type is declared as a webhook.
func (r *Registry) HasWebhook(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.webhooks[eventType]
	return ok
}

// HasAction reports whether the event type is declared as an action.
func (r *Registry) HasAction(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.actions[eventType]
	return ok
}

// Hash returns a stable digest of the declared handler set. Installation
// records store it as manifest_version for staleness detection.
func (r *Registry) Hash() string {
	var b strings.Builder
	for _, eventType := range r.WebhookEventTypes() {
		fmt.Fprintf(&b, "webhook:%s\n", eventType)
	}
	for _, action := range r.Actions() {
		fmt.Fprintf(&b, "action:%s:%s:%s\n", action.EventType, action.Name, action.Description)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
