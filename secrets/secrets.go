// Package secrets resolves the signing secret for an incoming event.
//
// Resolvers are composed into a Chain with strict precedence: the first
// resolver that yields a secret wins, and a chain that exhausts every
// resolver fails closed so an unsigned request is never accepted.
package secrets

import (
	"context"

	"github.com/day2-ai/frameio-kit/event"
	"github.com/day2-ai/frameio-kit/internal/config"
	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

// Resolver yields the signing secret for an event. The second return
// value reports whether this resolver had an answer at all; an error is
// reserved for lookups that genuinely failed (storage, decryption) and
// aborts the chain.
type Resolver interface {
	Resolve(ctx context.Context, ev event.Event) (string, bool, error)
}

// ResolverFunc adapts a plain function to the Resolver interface.
type ResolverFunc func(ctx context.Context, ev event.Event) (string, bool, error)

func (f ResolverFunc) Resolve(ctx context.Context, ev event.Event) (string, bool, error) {
	return f(ctx, ev)
}

// Static always resolves to a fixed secret. An empty secret resolves to
// nothing, so an unset value falls through to the next resolver.
type Static string

func (s Static) Resolve(context.Context, event.Event) (string, bool, error) {
	if s == "" {
		return "", false, nil
	}
	return string(s), true, nil
}

// InstallationSecrets is the slice of the installation manager this
// package needs.
type InstallationSecrets interface {
	Secret(ctx context.Context, ev event.Event) (string, error)
}

// Installation resolves secrets from the tenant's installation record.
// A tenant without a matching installation fails the whole chain: such a
// request must be rejected, never verified against a shared fallback
// secret further down.
type Installation struct {
	manager InstallationSecrets
}

func NewInstallation(manager InstallationSecrets) *Installation {
	return &Installation{manager: manager}
}

func (r *Installation) Resolve(ctx context.Context, ev event.Event) (string, bool, error) {
	secret, err := r.manager.Secret(ctx, ev)
	if err != nil {
		if kiterrors.Is(err, kiterrors.ErrNotInstalled) {
			return "", false, kiterrors.Wrapf(kiterrors.ErrSecretResolution, "no installation secret for event %q (%v)", ev.Type, err)
		}
		return "", false, kiterrors.Wrapf(err, "Installation.Resolve event %q", ev.Type)
	}
	return secret, true, nil
}

// Defaults resolves the configured kind-level fallback secret, shared
// across all handlers of that kind. Lowest precedence in the chain.
type Defaults struct {
	cfg config.SecretConfig
}

func NewDefaults(cfg config.SecretConfig) *Defaults {
	return &Defaults{cfg: cfg}
}

func (r *Defaults) Resolve(_ context.Context, ev event.Event) (string, bool, error) {
	var secret string
	switch ev.Kind {
	case event.KindWebhook:
		secret = r.cfg.GetDefaultWebhookSecret()
	case event.KindAction:
		secret = r.cfg.GetDefaultActionSecret()
	}
	if secret == "" {
		return "", false, nil
	}
	return secret, true, nil
}

// Chain tries each resolver in order and returns the first secret
// found. Resolver errors abort the chain immediately; exhausting the
// chain without a secret is ErrSecretResolution.
type Chain struct {
	resolvers []Resolver
}

func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// NewDefaultChain assembles the standard precedence for one handler:
// static handler secret, handler resolver function, installation record,
// configured kind-level fallback. Absent levels are left out of the
// chain entirely, so a handler without an installation manager can still
// fall back to the configured defaults.
func NewDefaultChain(static string, fn ResolverFunc, installs InstallationSecrets, cfg config.SecretConfig) *Chain {
	resolvers := make([]Resolver, 0, 4)
	if static != "" {
		resolvers = append(resolvers, Static(static))
	}
	if fn != nil {
		resolvers = append(resolvers, fn)
	}
	if installs != nil {
		resolvers = append(resolvers, NewInstallation(installs))
	}
	if cfg != nil {
		resolvers = append(resolvers, NewDefaults(cfg))
	}
	return NewChain(resolvers...)
}

func (c *Chain) Resolve(ctx context.Context, ev event.Event) (string, error) {
	for _, resolver := range c.resolvers {
		secret, ok, err := resolver.Resolve(ctx, ev)
		if err != nil {
			return "", err
		}
		if ok {
			return secret, nil
		}
	}
	return "", kiterrors.Wrapf(kiterrors.ErrSecretResolution, "no resolver produced a secret for event %q", ev.Type)
}
