package crmsdk

import (
	"context"

	"github.com/pancarangroup/crmportal/pkg/eventbus"
)

// Snapshot is the full set of session artifacts the portal persists. A
// Snapshot with an empty AccessToken represents a logged-out state.
type Snapshot struct {
	AccessToken  string        `json:"accessToken"`
	Profile      *UserProfile  `json:"profile"`
	AbilityRules []AbilityRule `json:"abilityRules"`
	TenantType   string        `json:"tenantType"`
	FeatureRoles []string      `json:"featureRoles"`
}

// SessionStore is the single owner of persisted session state. Every API
// client variant and the auth orchestrator go through this interface; none
// of them touch the underlying storage directly.
//
// Clear removes state only. Broadcasting the logout notification is the
// teardown helper's job, so that login can silently discard stale state
// without emitting a spurious logout event.
type SessionStore interface {
	// Save atomically commits the whole snapshot. No reader may observe a
	// state where only some fields were updated.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the persisted snapshot. Missing fields resolve to typed
	// zero defaults (empty slices stay nil, Profile stays nil); a missing
	// store is not an error.
	Load(ctx context.Context) (Snapshot, error)

	// SetAccessToken persists just the session token. During login the
	// backend JWT exists before the profile does; this is the only
	// legitimate partial write.
	SetAccessToken(ctx context.Context, token string) error

	// AccessToken returns the stored session token, or "" when absent.
	AccessToken(ctx context.Context) (string, error)

	// Clear removes every persisted field, including legacy entries.
	// Calling Clear on an already-cleared store is a no-op, never an error.
	Clear(ctx context.Context) error
}

// eventPublisher is the slice of eventbus.Bus the SDK needs.
type eventPublisher interface {
	Publish(event string)
}

// teardown clears the store and broadcasts the logout notification. Every
// authentication-class failure path funnels through here so callers never
// have to remember to clean up.
func teardown(ctx context.Context, store SessionStore, bus eventPublisher) error {
	if err := store.Clear(ctx); err != nil {
		return err
	}
	if bus != nil {
		bus.Publish(eventbus.EventLogout)
	}
	return nil
}
