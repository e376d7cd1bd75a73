// Package session tracks the current authenticated identity and
// notifies dependent managers when it changes. It is the only writer of
// the client's session; everything else reads.
package session

import (
	"context"
	"sync"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/remote"
)

// Provider owns the current identity. Observers are notified in
// registration order, which is how the composition root enforces the
// session -> projects -> tasks propagation order.
type Provider struct {
	client *remote.Client

	mu        sync.Mutex
	current   *models.Identity
	loading   bool
	observers []func(*models.Identity)
}

// NewProvider creates a session provider. A session already held by the
// client (restored from a cached token) becomes the current identity.
func NewProvider(client *remote.Client) *Provider {
	return &Provider{
		client:  client,
		current: client.Session(),
	}
}

// Current returns the current identity, or nil when signed out.
func (p *Provider) Current() *models.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	ident := *p.current
	return &ident
}

// Loading reports whether a sign-in or sign-out is in flight.
func (p *Provider) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Subscribe registers an observer for identity changes. The observer
// receives the new identity, nil on sign-out. Registration order is
// notification order.
func (p *Provider) Subscribe(fn func(*models.Identity)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

func (p *Provider) setLoading(v bool) {
	p.mu.Lock()
	p.loading = v
	p.mu.Unlock()
}

func (p *Provider) setCurrent(ident *models.Identity) {
	p.mu.Lock()
	p.current = ident
	observers := make([]func(*models.Identity), len(p.observers))
	copy(observers, p.observers)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(ident)
	}
}

// SignIn authenticates against the remote store and establishes the
// identity on success.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*models.Identity, error) {
	p.setLoading(true)
	defer p.setLoading(false)

	ident, err := p.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	p.setCurrent(ident)
	return ident, nil
}

// SignOut ends the session. Local state is cleared and observers are
// notified even when the remote revocation fails; the error is returned
// for the UI to surface as a non-fatal notice.
func (p *Provider) SignOut(ctx context.Context) error {
	p.setLoading(true)
	defer p.setLoading(false)

	err := p.client.SignOut(ctx)
	p.setCurrent(nil)
	return err
}
