package install

import (
	"context"

	"github.com/day2-ai/frameio-kit/manifest"
)

// CreatedResource is what the remote API returns when a webhook or action
// is created. The signing secret is returned at creation time only; no
// later call can recover it.
type CreatedResource struct {
	ID     string
	Secret string
}

// RemoteAPI is the slice of the Frame.io REST surface reconciliation
// needs. The real client lives outside the core; implementations must
// honor the passed context for cancellation and timeouts.
type RemoteAPI interface {
	CreateWebhook(ctx context.Context, tenant Tenant, name, url string, eventTypes []string) (*CreatedResource, error)
	UpdateWebhook(ctx context.Context, tenant Tenant, remoteID string, eventTypes []string) error
	DeleteWebhook(ctx context.Context, tenant Tenant, remoteID string) error

	CreateAction(ctx context.Context, tenant Tenant, action manifest.Action, url string) (*CreatedResource, error)
	UpdateAction(ctx context.Context, tenant Tenant, remoteID, name, description string) error
	DeleteAction(ctx context.Context, tenant Tenant, remoteID string) error
}
