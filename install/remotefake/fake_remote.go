// Package remotefake provides an in-memory install.RemoteAPI that counts
// calls and assigns deterministic IDs and secrets.
package remotefake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/day2-ai/frameio-kit/install"
	"github.com/day2-ai/frameio-kit/manifest"
)

var _ install.RemoteAPI = (*FakeRemote)(nil)

// FakeRemote records every call. Set the Fail* flags to make a class of
// operation fail.
type FakeRemote struct {
	mu sync.Mutex

	WebhookCreates int
	WebhookUpdates int
	WebhookDeletes int
	ActionCreates  int
	ActionUpdates  int
	ActionDeletes  int

	FailWebhookCreate bool
	FailWebhookUpdate bool
	FailWebhookDelete bool
	FailActionCreate  bool
	FailActionUpdate  bool
	FailActionDelete  bool

	// FailActionCreateFor fails creates only for specific event types.
	FailActionCreateFor map[string]bool

	DeletedActionIDs  []string
	DeletedWebhookIDs []string

	nextID int
}

func New() *FakeRemote {
	return &FakeRemote{FailActionCreateFor: make(map[string]bool)}
}

func (f *FakeRemote) newResource(prefix string) *install.CreatedResource {
	f.nextID++
	return &install.CreatedResource{
		ID:     fmt.Sprintf("%s-%d", prefix, f.nextID),
		Secret: fmt.Sprintf("secret-%s-%d", prefix, f.nextID),
	}
}

func (f *FakeRemote) CreateWebhook(_ context.Context, _ install.Tenant, _, _ string, _ []string) (*install.CreatedResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WebhookCreates++
	if f.FailWebhookCreate {
		return nil, errors.New("remote webhook create failed")
	}
	return f.newResource("wh"), nil
}

func (f *FakeRemote) UpdateWebhook(_ context.Context, _ install.Tenant, _ string, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WebhookUpdates++
	if f.FailWebhookUpdate {
		return errors.New("remote webhook update failed")
	}
	return nil
}

func (f *FakeRemote) DeleteWebhook(_ context.Context, _ install.Tenant, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WebhookDeletes++
	if f.FailWebhookDelete {
		return errors.New("remote webhook delete failed")
	}
	f.DeletedWebhookIDs = append(f.DeletedWebhookIDs, remoteID)
	return nil
}

func (f *FakeRemote) CreateAction(_ context.Context, _ install.Tenant, action manifest.Action, _ string) (*install.CreatedResource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ActionCreates++
	if f.FailActionCreate || f.FailActionCreateFor[action.EventType] {
		return nil, fmt.Errorf("remote action create failed for %s", action.EventType)
	}
	return f.newResource("act"), nil
}

func (f *FakeRemote) UpdateAction(_ context.Context, _ install.Tenant, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ActionUpdates++
	if f.FailActionUpdate {
		return errors.New("remote action update failed")
	}
	return nil
}

func (f *FakeRemote) DeleteAction(_ context.Context, _ install.Tenant, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ActionDeletes++
	if f.FailActionDelete {
		return errors.New("remote action delete failed")
	}
	f.DeletedActionIDs = append(f.DeletedActionIDs, remoteID)
	return nil
}

// ResetCounts zeroes the call counters between reconciliation runs.
func (f *FakeRemote) ResetCounts() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WebhookCreates, f.WebhookUpdates, f.WebhookDeletes = 0, 0, 0
	f.ActionCreates, f.ActionUpdates, f.ActionDeletes = 0, 0, 0
}

// TotalCalls returns the number of remote operations issued so far.
func (f *FakeRemote) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.WebhookCreates + f.WebhookUpdates + f.WebhookDeletes +
		f.ActionCreates + f.ActionUpdates + f.ActionDeletes
}
