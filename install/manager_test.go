package install_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/day2-ai/frameio-kit/encryption"
	"github.com/day2-ai/frameio-kit/event"
	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/install"
	"github.com/day2-ai/frameio-kit/install/remotefake"
	"github.com/day2-ai/frameio-kit/manifest"
	"github.com/day2-ai/frameio-kit/storage"
)

var testTenant = install.Tenant{AccountID: "acc-1", WorkspaceID: "ws-1"}

type installFixture struct {
	store    *storage.MemoryStore
	enc      *encryption.Provider
	registry *manifest.Registry
	remote   *remotefake.FakeRemote
	manager  *install.Manager
}

// setupInstall builds a fixture with a manifest declaring one webhook
// event type ("file.ready") and one action ("my.transcribe").
func setupInstall(t *testing.T) *installFixture {
	t.Helper()
	key, err := encryption.GenerateKey()
	require.NoError(t, err)
	enc, err := encryption.New(key, "")
	require.NoError(t, err)

	f := &installFixture{
		store:    storage.NewMemoryStore(),
		enc:      enc,
		registry: manifest.NewRegistry(),
		remote:   remotefake.New(),
	}
	require.NoError(t, f.registry.RegisterWebhook("file.ready"))
	require.NoError(t, f.registry.RegisterAction(manifest.Action{
		EventType:   "my.transcribe",
		Name:        "Transcribe",
		Description: "Transcribes a file",
	}))
	f.registry.Freeze()
	f.manager = install.NewManager(f.store, f.enc, f.registry, f.remote, "https://myapp.com")
	return f
}

// rebuildRegistry swaps the fixture's manifest for a new declaration set
// and returns a manager bound to it, reusing the same store and keys so
// existing records survive. Simulates a redeploy with changed handlers.
func (f *installFixture) rebuildRegistry(t *testing.T, build func(r *manifest.Registry)) *install.Manager {
	t.Helper()
	f.registry = manifest.NewRegistry()
	build(f.registry)
	f.registry.Freeze()
	return install.NewManager(f.store, f.enc, f.registry, f.remote, "https://myapp.com")
}

func TestReconcileFreshInstall(t *testing.T) {
	f := setupInstall(t)

	summary, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	require.Equal(t, 1, f.remote.WebhookCreates)
	require.Equal(t, 1, f.remote.ActionCreates)
	require.Equal(t, 2, f.remote.TotalCalls())
	require.ElementsMatch(t, []string{"webhook", "action:my.transcribe"}, summary.Created)
	require.Empty(t, summary.Updated)
	require.Empty(t, summary.Deleted)

	record, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, install.StatusActive, record.Status)
	require.NotNil(t, record.Webhook)
	require.Equal(t, []string{"file.ready"}, record.Webhook.EventTypes)
	require.NotEmpty(t, record.Webhook.Secret)
	require.Len(t, record.Actions, 1)
	require.Equal(t, "my.transcribe", record.Actions[0].EventType)
	require.NotEmpty(t, record.Actions[0].Secret)
	require.Equal(t, f.registry.Hash(), record.ManifestVersion)
}

func TestReconcileIdempotent(t *testing.T) {
	f := setupInstall(t)

	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)
	f.remote.ResetCounts()

	summary, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)
	require.Zero(t, f.remote.TotalCalls(), "an unchanged manifest must issue zero remote calls")
	require.Empty(t, summary.Created)
	require.Empty(t, summary.Updated)
	require.Empty(t, summary.Deleted)
}

func TestReconcileActionSwap(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	record, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	oldActionID := record.Actions[0].RemoteID
	webhookID := record.Webhook.RemoteID

	manager := f.rebuildRegistry(t, func(r *manifest.Registry) {
		require.NoError(t, r.RegisterWebhook("file.ready"))
		require.NoError(t, r.RegisterAction(manifest.Action{EventType: "my.translate", Name: "Translate"}))
	})
	f.remote.ResetCounts()

	summary, err := manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	require.Equal(t, 1, f.remote.ActionCreates)
	require.Equal(t, 1, f.remote.ActionDeletes)
	require.Zero(t, f.remote.WebhookCreates+f.remote.WebhookUpdates+f.remote.WebhookDeletes, "the webhook entry must be untouched")
	require.Contains(t, f.remote.DeletedActionIDs, oldActionID)
	require.ElementsMatch(t, []string{"action:my.translate"}, summary.Created)
	require.ElementsMatch(t, []string{"action:my.transcribe"}, summary.Deleted)

	record, err = manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.Equal(t, webhookID, record.Webhook.RemoteID)
	require.Len(t, record.Actions, 1)
	require.Equal(t, "my.translate", record.Actions[0].EventType)
}

func TestReconcileSecretPreservedOnMetadataUpdate(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	before, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	secret := before.Actions[0].Secret
	remoteID := before.Actions[0].RemoteID
	require.NotEmpty(t, secret)

	manager := f.rebuildRegistry(t, func(r *manifest.Registry) {
		require.NoError(t, r.RegisterWebhook("file.ready"))
		require.NoError(t, r.RegisterAction(manifest.Action{
			EventType:   "my.transcribe",
			Name:        "Transcribe v2", // name changed, event type did not
			Description: "Transcribes a file",
		}))
	})
	f.remote.ResetCounts()

	_, err = manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)
	require.Equal(t, 1, f.remote.ActionUpdates)
	require.Zero(t, f.remote.ActionCreates)
	require.Zero(t, f.remote.ActionDeletes)

	after, err := manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.Equal(t, secret, after.Actions[0].Secret, "secrets are never reassigned on update")
	require.Equal(t, remoteID, after.Actions[0].RemoteID)
	require.Equal(t, "Transcribe v2", after.Actions[0].Name)
}

func TestReconcileWebhookEventTypesChanged(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	before, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	webhookID := before.Webhook.RemoteID
	webhookSecret := before.Webhook.Secret

	manager := f.rebuildRegistry(t, func(r *manifest.Registry) {
		require.NoError(t, r.RegisterWebhook("file.ready", "comment.created"))
		require.NoError(t, r.RegisterAction(manifest.Action{
			EventType: "my.transcribe", Name: "Transcribe", Description: "Transcribes a file",
		}))
	})
	f.remote.ResetCounts()

	_, err = manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)
	require.Equal(t, 1, f.remote.WebhookUpdates)
	require.Zero(t, f.remote.WebhookCreates)

	after, err := manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.Equal(t, webhookID, after.Webhook.RemoteID)
	require.Equal(t, webhookSecret, after.Webhook.Secret)
	require.Equal(t, []string{"comment.created", "file.ready"}, after.Webhook.EventTypes)
}

func TestReconcileWebhookRemovedEntirely(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	manager := f.rebuildRegistry(t, func(r *manifest.Registry) {
		require.NoError(t, r.RegisterAction(manifest.Action{
			EventType: "my.transcribe", Name: "Transcribe", Description: "Transcribes a file",
		}))
	})
	f.remote.ResetCounts()

	_, err = manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)
	require.Equal(t, 1, f.remote.WebhookDeletes)

	after, err := manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.Nil(t, after.Webhook)
}

func TestReconcilePartialFailure(t *testing.T) {
	f := setupInstall(t)
	f.remote.FailActionCreate = true

	summary, err := f.manager.Reconcile(context.Background(), testTenant, nil)

	var reconcileErr *kiterrors.ReconciliationError
	require.ErrorAs(t, err, &reconcileErr)
	require.Len(t, reconcileErr.Failures, 1)
	require.Equal(t, "action", reconcileErr.Failures[0].Resource)

	// The webhook create succeeded and was committed despite the failure.
	require.ElementsMatch(t, []string{"webhook"}, summary.Created)
	record, getErr := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, getErr)
	require.NotNil(t, record.Webhook)
	require.Empty(t, record.Actions)

	// Once the remote recovers, the next run retries only the failed create.
	f.remote.FailActionCreate = false
	f.remote.ResetCounts()
	_, err = f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)
	require.Equal(t, 1, f.remote.ActionCreates)
	require.Zero(t, f.remote.WebhookCreates+f.remote.WebhookUpdates)
}

func TestUninstall(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	summary, err := f.manager.Uninstall(context.Background(), testTenant)
	require.NoError(t, err)
	require.Empty(t, summary.Warnings)
	require.ElementsMatch(t, []string{"webhook", "action:my.transcribe"}, summary.Deleted)

	record, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestUninstallDeletesRecordDespiteRemoteFailures(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	f.remote.FailWebhookDelete = true
	f.remote.FailActionDelete = true

	summary, err := f.manager.Uninstall(context.Background(), testTenant)
	require.NoError(t, err, "uninstall must not fail on remote delete errors")
	require.Len(t, summary.Warnings, 2)

	record, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.Nil(t, record, "the local record must be gone even when remote deletes failed")
}

func TestUninstallNotInstalled(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Uninstall(context.Background(), testTenant)
	require.ErrorIs(t, err, kiterrors.ErrNotInstalled)
}

func TestSecretLookup(t *testing.T) {
	f := setupInstall(t)
	_, err := f.manager.Reconcile(context.Background(), testTenant, nil)
	require.NoError(t, err)

	record, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)

	secret, err := f.manager.Secret(context.Background(), event.Event{
		Type: "file.ready", Kind: event.KindWebhook,
		AccountID: testTenant.AccountID, WorkspaceID: testTenant.WorkspaceID,
	})
	require.NoError(t, err)
	require.Equal(t, record.Webhook.Secret, secret)

	secret, err = f.manager.Secret(context.Background(), event.Event{
		Type: "my.transcribe", Kind: event.KindAction,
		AccountID: testTenant.AccountID, WorkspaceID: testTenant.WorkspaceID,
	})
	require.NoError(t, err)
	require.Equal(t, record.Actions[0].Secret, secret)

	// Unknown tenant and unknown event type both fail.
	_, err = f.manager.Secret(context.Background(), event.Event{
		Type: "file.ready", Kind: event.KindWebhook, AccountID: "other", WorkspaceID: "other",
	})
	require.ErrorIs(t, err, kiterrors.ErrNotInstalled)

	_, err = f.manager.Secret(context.Background(), event.Event{
		Type: "never.declared", Kind: event.KindWebhook,
		AccountID: testTenant.AccountID, WorkspaceID: testTenant.WorkspaceID,
	})
	require.ErrorIs(t, err, kiterrors.ErrNotInstalled)
}

func TestStatus(t *testing.T) {
	f := setupInstall(t)

	report, err := f.manager.Status(context.Background(), testTenant)
	require.NoError(t, err)
	require.False(t, report.Installed)

	_, err = f.manager.Reconcile(context.Background(), testTenant, map[string]string{"language": "en"})
	require.NoError(t, err)

	report, err = f.manager.Status(context.Background(), testTenant)
	require.NoError(t, err)
	require.True(t, report.Installed)
	require.False(t, report.UpdateAvailable)
	require.Equal(t, []string{"file.ready"}, report.WebhookEvents)
	require.Equal(t, []string{"my.transcribe"}, report.ActionEvents)

	// A changed manifest flips the staleness flag without any remote call.
	manager := f.rebuildRegistry(t, func(r *manifest.Registry) {
		require.NoError(t, r.RegisterWebhook("file.ready", "comment.created"))
	})
	report, err = manager.Status(context.Background(), testTenant)
	require.NoError(t, err)
	require.True(t, report.UpdateAvailable)
}

func TestReconcileStoresConfig(t *testing.T) {
	f := setupInstall(t)

	_, err := f.manager.Reconcile(context.Background(), testTenant, map[string]string{
		"language": "en",
		"api_key":  "s3cret",
	})
	require.NoError(t, err)

	record, err := f.manager.GetInstallation(context.Background(), testTenant)
	require.NoError(t, err)
	require.Equal(t, "en", record.Config["language"])
	require.Equal(t, "s3cret", record.Config["api_key"])
}
