package install

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/day2-ai/frameio-kit/encryption"
	"github.com/day2-ai/frameio-kit/event"
	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/manifest"
	"github.com/day2-ai/frameio-kit/storage"
)

// Manager reconciles the handler manifest against remote resources and
// persists the resulting installation records with their signing secrets.
type Manager struct {
	store      storage.Store
	encryption *encryption.Provider
	registry   *manifest.Registry
	remote     RemoteAPI
	baseURL    string

	opTimeout time.Duration
	nowFunc   func() time.Time
	log       zerolog.Logger
}

type ManagerOption func(*Manager)

func WithOpTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) { m.opTimeout = timeout }
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.nowFunc = now }
}

func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

func NewManager(store storage.Store, enc *encryption.Provider, registry *manifest.Registry, remote RemoteAPI, baseURL string, options ...ManagerOption) *Manager {
	m := &Manager{
		store:      store,
		encryption: enc,
		registry:   registry,
		remote:     remote,
		baseURL:    baseURL,
		opTimeout:  30 * time.Second,
		nowFunc:    time.Now,
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func installKey(tenant Tenant) string {
	return fmt.Sprintf("install:%s:%s", tenant.AccountID, tenant.WorkspaceID)
}

// diff is the full plan for one reconciliation, computed before any
// remote call is issued.
type diff struct {
	webhookCreate bool
	webhookUpdate bool
	webhookDelete bool

	actionCreates []manifest.Action
	actionUpdates []actionUpdate
	actionDeletes []ActionResource
}

type actionUpdate struct {
	remoteID    string
	eventType   string
	name        string
	description string
}

func (d *diff) empty() bool {
	return !d.webhookCreate && !d.webhookUpdate && !d.webhookDelete &&
		len(d.actionCreates) == 0 && len(d.actionUpdates) == 0 && len(d.actionDeletes) == 0
}

// Reconcile brings the tenant's remote resources and stored record in
// line with the declared manifest. The diff is computed first; creates,
// updates and deletes are then applied as independent remote operations.
// A failure in one does not block the others: successes are committed to
// the record and failures are aggregated into a ReconciliationError.
func (m *Manager) Reconcile(ctx context.Context, tenant Tenant, config map[string]string) (*Summary, error) {
	runID := uuid.NewString()
	log := m.log.With().Str("run_id", runID).Str("tenant", tenant.String()).Logger()

	record, err := m.GetInstallation(ctx, tenant)
	if err != nil {
		return nil, err
	}
	now := m.nowFunc()
	if record == nil {
		record = &Record{
			AccountID:   tenant.AccountID,
			WorkspaceID: tenant.WorkspaceID,
			Status:      StatusActive,
			InstalledAt: now,
		}
	}

	plan := m.computeDiff(record)
	log.Info().
		Bool("webhook_create", plan.webhookCreate).
		Bool("webhook_update", plan.webhookUpdate).
		Bool("webhook_delete", plan.webhookDelete).
		Int("action_creates", len(plan.actionCreates)).
		Int("action_updates", len(plan.actionUpdates)).
		Int("action_deletes", len(plan.actionDeletes)).
		Msg("reconciliation plan computed")

	summary := &Summary{}
	m.applyWebhook(ctx, tenant, record, plan, summary)
	m.applyActions(ctx, tenant, record, plan, summary)

	if len(summary.Failed) == 0 {
		record.ManifestVersion = m.registry.Hash()
	}
	for k, v := range config {
		if record.Config == nil {
			record.Config = make(map[string]string)
		}
		record.Config[k] = v
	}
	record.UpdatedAt = now

	if err := m.putRecord(ctx, tenant, record); err != nil {
		return nil, err
	}

	if len(summary.Failed) > 0 {
		log.Warn().Int("failed", len(summary.Failed)).Msg("reconciliation completed with failures")
		return summary, &kiterrors.ReconciliationError{Failures: summary.Failed}
	}
	log.Info().Msg("reconciliation complete")
	return summary, nil
}

func (m *Manager) computeDiff(record *Record) *diff {
	plan := &diff{}

	manifestTypes := m.registry.WebhookEventTypes()
	switch {
	case record.Webhook == nil && len(manifestTypes) > 0:
		plan.webhookCreate = true
	case record.Webhook != nil && len(manifestTypes) == 0:
		plan.webhookDelete = true
	case record.Webhook != nil && !slices.Equal(record.Webhook.EventTypes, manifestTypes):
		plan.webhookUpdate = true
	}

	declared := make(map[string]manifest.Action)
	for _, action := range m.registry.Actions() {
		declared[action.EventType] = action
		existing, ok := record.action(action.EventType)
		if !ok {
			plan.actionCreates = append(plan.actionCreates, action)
			continue
		}
		if existing.Name != action.Name || existing.Description != action.Description {
			plan.actionUpdates = append(plan.actionUpdates, actionUpdate{
				remoteID:    existing.RemoteID,
				eventType:   action.EventType,
				name:        action.Name,
				description: action.Description,
			})
		}
	}
	for _, existing := range record.Actions {
		if _, ok := declared[existing.EventType]; !ok {
			plan.actionDeletes = append(plan.actionDeletes, existing)
		}
	}

	return plan
}

func (m *Manager) applyWebhook(ctx context.Context, tenant Tenant, record *Record, plan *diff, summary *Summary) {
	manifestTypes := m.registry.WebhookEventTypes()

	switch {
	case plan.webhookCreate:
		created, err := m.callCreateWebhook(ctx, tenant, manifestTypes)
		if err != nil {
			summary.Failed = append(summary.Failed, kiterrors.ResourceFailure{
				Resource: "webhook", Operation: "create", ID: "webhook", Err: err,
			})
			return
		}
		record.Webhook = &WebhookResource{
			RemoteID:   created.ID,
			EventTypes: manifestTypes,
			Secret:     created.Secret,
		}
		summary.Created = append(summary.Created, "webhook")

	case plan.webhookUpdate:
		// Single metadata call; remote ID and secret are preserved.
		if err := m.callUpdateWebhook(ctx, tenant, record.Webhook.RemoteID, manifestTypes); err != nil {
			summary.Failed = append(summary.Failed, kiterrors.ResourceFailure{
				Resource: "webhook", Operation: "update", ID: record.Webhook.RemoteID, Err: err,
			})
			return
		}
		record.Webhook.EventTypes = manifestTypes
		summary.Updated = append(summary.Updated, "webhook")

	case plan.webhookDelete:
		if err := m.callDeleteWebhook(ctx, tenant, record.Webhook.RemoteID); err != nil {
			summary.Failed = append(summary.Failed, kiterrors.ResourceFailure{
				Resource: "webhook", Operation: "delete", ID: record.Webhook.RemoteID, Err: err,
			})
			return
		}
		record.Webhook = nil
		summary.Deleted = append(summary.Deleted, "webhook")
	}
}

func (m *Manager) applyActions(ctx context.Context, tenant Tenant, record *Record, plan *diff, summary *Summary) {
	for _, action := range plan.actionCreates {
		created, err := m.callCreateAction(ctx, tenant, action)
		if err != nil {
			summary.Failed = append(summary.Failed, kiterrors.ResourceFailure{
				Resource: "action", Operation: "create", ID: action.EventType, Err: err,
			})
			continue
		}
		record.Actions = append(record.Actions, ActionResource{
			RemoteID:    created.ID,
			EventType:   action.EventType,
			Name:        action.Name,
			Description: action.Description,
			Secret:      created.Secret,
		})
		summary.Created = append(summary.Created, "action:"+action.EventType)
	}

	for _, update := range plan.actionUpdates {
		if err := m.callUpdateAction(ctx, tenant, update); err != nil {
			summary.Failed = append(summary.Failed, kiterrors.ResourceFailure{
				Resource: "action", Operation: "update", ID: update.eventType, Err: err,
			})
			continue
		}
		// Metadata only; the secret assigned at creation stays.
		if existing, ok := record.action(update.eventType); ok {
			existing.Name = update.name
			existing.Description = update.description
		}
		summary.Updated = append(summary.Updated, "action:"+update.eventType)
	}

	for _, stale := range plan.actionDeletes {
		if err := m.callDeleteAction(ctx, tenant, stale.RemoteID); err != nil {
			summary.Failed = append(summary.Failed, kiterrors.ResourceFailure{
				Resource: "action", Operation: "delete", ID: stale.EventType, Err: err,
			})
			continue
		}
		record.Actions = slices.DeleteFunc(record.Actions, func(a ActionResource) bool {
			return a.EventType == stale.EventType
		})
		summary.Deleted = append(summary.Deleted, "action:"+stale.EventType)
	}
}

// Uninstall deletes every remote resource referenced by the record, then
// deletes the record itself regardless of remote failures. A stale remote
// resource is a lesser failure than an installation that can never be
// removed.
func (m *Manager) Uninstall(ctx context.Context, tenant Tenant) (*UninstallSummary, error) {
	record, err := m.GetInstallation(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, kiterrors.Wrapf(kiterrors.ErrNotInstalled, "tenant %s", tenant)
	}

	summary := &UninstallSummary{}
	if record.Webhook != nil {
		if err := m.callDeleteWebhook(ctx, tenant, record.Webhook.RemoteID); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("delete webhook %s: %v", record.Webhook.RemoteID, err))
		} else {
			summary.Deleted = append(summary.Deleted, "webhook")
		}
	}
	for _, action := range record.Actions {
		if err := m.callDeleteAction(ctx, tenant, action.RemoteID); err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("delete action %s: %v", action.EventType, err))
		} else {
			summary.Deleted = append(summary.Deleted, "action:"+action.EventType)
		}
	}

	if err := m.store.Delete(ctx, installKey(tenant)); err != nil {
		return nil, kiterrors.Wrapf(err, "Manager.Uninstall delete record for tenant %s", tenant)
	}
	m.log.Info().Str("tenant", tenant.String()).Int("warnings", len(summary.Warnings)).Msg("uninstalled")
	return summary, nil
}

// GetInstallation loads and decrypts the tenant's record, or nil if the
// tenant has never installed.
func (m *Manager) GetInstallation(ctx context.Context, tenant Tenant) (*Record, error) {
	ciphertext, ok, err := m.store.Get(ctx, installKey(tenant))
	if err != nil {
		return nil, kiterrors.Wrapf(err, "Manager get record for tenant %s", tenant)
	}
	if !ok {
		return nil, nil
	}

	plaintext, err := m.encryption.Decrypt(ciphertext)
	if err != nil {
		// Unreadable record (rotated key, corruption): reinstall required.
		return nil, kiterrors.Wrapf(err, "Manager decrypt record for tenant %s", tenant)
	}
	return unmarshalRecord(plaintext)
}

// Status summarizes the tenant's installation for the admin surface.
func (m *Manager) Status(ctx context.Context, tenant Tenant) (*StatusReport, error) {
	record, err := m.GetInstallation(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &StatusReport{Installed: false}, nil
	}

	report := &StatusReport{
		Installed:       true,
		UpdateAvailable: record.ManifestVersion != m.registry.Hash(),
		InstalledAt:     record.InstalledAt,
		UpdatedAt:       record.UpdatedAt,
	}
	if record.Webhook != nil {
		report.WebhookEvents = record.Webhook.EventTypes
	}
	for _, action := range record.Actions {
		report.ActionEvents = append(report.ActionEvents, action.EventType)
	}
	return report, nil
}

// Secret returns the decrypted signing secret matching the event, looked
// up in the tenant's installation record.
func (m *Manager) Secret(ctx context.Context, ev event.Event) (string, error) {
	tenant := Tenant{AccountID: ev.AccountID, WorkspaceID: ev.WorkspaceID}
	record, err := m.GetInstallation(ctx, tenant)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", kiterrors.Wrapf(kiterrors.ErrNotInstalled, "no installation for tenant %s", tenant)
	}

	switch ev.Kind {
	case event.KindWebhook:
		if record.Webhook != nil && slices.Contains(record.Webhook.EventTypes, ev.Type) {
			return record.Webhook.Secret, nil
		}
	case event.KindAction:
		if action, ok := record.action(ev.Type); ok {
			return action.Secret, nil
		}
	}
	return "", kiterrors.Wrapf(kiterrors.ErrNotInstalled, "event type %q not installed for tenant %s", ev.Type, tenant)
}

func (m *Manager) putRecord(ctx context.Context, tenant Tenant, record *Record) error {
	plaintext, err := record.marshal()
	if err != nil {
		return err
	}
	ciphertext, err := m.encryption.Encrypt(plaintext)
	if err != nil {
		return kiterrors.Wrapf(err, "Manager encrypt record for tenant %s", tenant)
	}
	if err := m.store.Put(ctx, installKey(tenant), ciphertext, 0); err != nil {
		return kiterrors.Wrapf(err, "Manager put record for tenant %s", tenant)
	}
	return nil
}

// Remote calls are individually bounded so one hung request cannot stall
// the whole reconciliation past its deadline.

func (m *Manager) callCreateWebhook(ctx context.Context, tenant Tenant, eventTypes []string) (*CreatedResource, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return m.remote.CreateWebhook(ctx, tenant, "frameio-kit webhook", m.baseURL, eventTypes)
}

func (m *Manager) callUpdateWebhook(ctx context.Context, tenant Tenant, remoteID string, eventTypes []string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return m.remote.UpdateWebhook(ctx, tenant, remoteID, eventTypes)
}

func (m *Manager) callDeleteWebhook(ctx context.Context, tenant Tenant, remoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return m.remote.DeleteWebhook(ctx, tenant, remoteID)
}

func (m *Manager) callCreateAction(ctx context.Context, tenant Tenant, action manifest.Action) (*CreatedResource, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return m.remote.CreateAction(ctx, tenant, action, m.baseURL)
}

func (m *Manager) callUpdateAction(ctx context.Context, tenant Tenant, update actionUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return m.remote.UpdateAction(ctx, tenant, update.remoteID, update.name, update.description)
}

func (m *Manager) callDeleteAction(ctx context.Context, tenant Tenant, remoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()
	return m.remote.DeleteAction(ctx, tenant, remoteID)
}
