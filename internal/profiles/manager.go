// Package profiles resolves human-readable display information for
// identities. A missing profile row degrades to an email-only fallback,
// never a failure.
package profiles

import (
	"context"
	"fmt"
	"sync"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/session"
)

// Manager holds the signed-in identity's profile.
type Manager struct {
	client  *remote.Client
	session *session.Provider

	mu      sync.Mutex
	profile *models.Profile
	loading bool
}

// NewManager creates a profile manager cleared on sign-out.
func NewManager(client *remote.Client, sess *session.Provider) *Manager {
	m := &Manager{client: client, session: sess}
	sess.Subscribe(func(ident *models.Identity) {
		if ident == nil {
			m.mu.Lock()
			m.profile = nil
			m.mu.Unlock()
		}
	})
	return m
}

// Current returns the loaded profile, or nil.
func (m *Manager) Current() *models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// Loading reports whether a load is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Load fetches the current identity's profile. Absence of a row, or the
// profiles relation being unavailable, degrades to a fallback profile
// built from the identity itself.
func (m *Manager) Load(ctx context.Context) (*models.Profile, error) {
	ident := m.session.Current()
	if ident == nil {
		return nil, nil
	}

	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	var profile models.Profile
	err := m.client.Select(ctx, "profiles", &profile,
		remote.Eq("id", ident.ID),
		remote.MaybeSingle(),
	)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false

	if err != nil && !remote.IsSchemaUnavailable(err) {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.ID == "" {
		profile = models.Profile{ID: ident.ID, Email: ident.Email}
	}
	m.profile = &profile
	return m.profile, nil
}

// Get fetches a single profile by identity id. Absence is nil, nil.
func (m *Manager) Get(ctx context.Context, identityID string) (*models.Profile, error) {
	var profile models.Profile
	err := m.client.Select(ctx, "profiles", &profile,
		remote.Eq("id", identityID),
		remote.MaybeSingle(),
	)
	if err != nil {
		if remote.IsSchemaUnavailable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.ID == "" {
		return nil, nil
	}
	return &profile, nil
}

// Update patches the current identity's profile.
func (m *Manager) Update(ctx context.Context, updates map[string]any) (*models.Profile, error) {
	ident := m.session.Current()
	if ident == nil {
		return nil, remote.ErrAuthenticationRequired
	}

	var updated models.Profile
	err := m.client.Update(ctx, "profiles", updates, &updated,
		remote.Eq("id", ident.ID),
		remote.Single(),
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	m.mu.Lock()
	m.profile = &updated
	m.mu.Unlock()
	return &updated, nil
}
