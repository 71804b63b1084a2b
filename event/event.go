// Package event holds the minimal view of incoming Frame.io events the
// core needs for secret resolution and signature verification.
package event

// Kind distinguishes webhook deliveries from custom action invocations.
// The two are signed the same way but resolve secrets differently.
type Kind string

const (
	KindWebhook Kind = "webhook"
	KindAction  Kind = "action"
)

// Event identifies an incoming request for secret resolution. Payload
// validation and the full event model live outside the core.
type Event struct {
	Type        string
	Kind        Kind
	AccountID   string
	WorkspaceID string
}
