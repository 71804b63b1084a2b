package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
	"github.com/day2-ai/frameio-kit/manifest"
)

func TestRegistryRegistration(t *testing.T) {
	r := manifest.NewRegistry()

	require.NoError(t, r.RegisterWebhook("file.ready", "comment.created"))
	require.NoError(t, r.RegisterWebhook("file.ready")) // duplicate collapses
	require.NoError(t, r.RegisterAction(manifest.Action{
		EventType:   "my_app.transcribe",
		Name:        "Transcribe",
		Description: "Transcribes a video file",
	}))

	require.Equal(t, []string{"comment.created", "file.ready"}, r.WebhookEventTypes())
	require.Len(t, r.Actions(), 1)
	require.True(t, r.HasWebhook("file.ready"))
	require.False(t, r.HasWebhook("my_app.transcribe"))
	require.True(t, r.HasAction("my_app.transcribe"))
}

func TestRegistryRejectsDuplicateAction(t *testing.T) {
	r := manifest.NewRegistry()
	require.NoError(t, r.RegisterAction(manifest.Action{EventType: "my_app.x", Name: "X"}))
	err := r.RegisterAction(manifest.Action{EventType: "my_app.x", Name: "other"})
	require.ErrorIs(t, err, kiterrors.ErrConfiguration)
}

func TestRegistryFrozen(t *testing.T) {
	r := manifest.NewRegistry()
	require.NoError(t, r.RegisterWebhook("file.ready"))
	r.Freeze()
	r.Freeze() // idempotent

	require.ErrorIs(t, r.RegisterWebhook("comment.created"), kiterrors.ErrConfiguration)
	require.ErrorIs(t, r.RegisterAction(manifest.Action{EventType: "my_app.x"}), kiterrors.ErrConfiguration)
	require.Equal(t, []string{"file.ready"}, r.WebhookEventTypes())
}

func TestRegistryHashStability(t *testing.T) {
	build := func() *manifest.Registry {
		r := manifest.NewRegistry()
		require.NoError(t, r.RegisterWebhook("file.ready"))
		require.NoError(t, r.RegisterAction(manifest.Action{EventType: "my_app.transcribe", Name: "Transcribe", Description: "d"}))
		return r
	}

	a := build()
	b := build()
	require.Equal(t, a.Hash(), b.Hash())

	// Registration order must not affect the hash.
	c := manifest.NewRegistry()
	require.NoError(t, c.RegisterAction(manifest.Action{EventType: "my_app.transcribe", Name: "Transcribe", Description: "d"}))
	require.NoError(t, c.RegisterWebhook("file.ready"))
	require.Equal(t, a.Hash(), c.Hash())

	// Any declared change must change the hash.
	d := build()
	require.NoError(t, d.RegisterWebhook("comment.created"))
	require.NotEqual(t, a.Hash(), d.Hash())
}
