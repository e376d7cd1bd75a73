package session

import (
	"context"
	"testing"

	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/storetest"
)

func newTestProvider(t *testing.T) (*storetest.Server, *remote.Client, *Provider) {
	t.Helper()

	srv := storetest.New()
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatalf("remote.New() error = %v", err)
	}
	return srv, client, NewProvider(client)
}

func TestSignInEstablishesIdentity(t *testing.T) {
	srv, _, provider := newTestProvider(t)
	userID := srv.SeedUser("alice@example.com", "secret123")

	if provider.Current() != nil {
		t.Fatal("expected nil identity before sign-in")
	}

	ident, err := provider.SignIn(context.Background(), "alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if ident.ID != userID {
		t.Errorf("identity ID = %s, want %s", ident.ID, userID)
	}
	if cur := provider.Current(); cur == nil || cur.ID != userID {
		t.Errorf("Current() = %v, want id %s", cur, userID)
	}
}

func TestSignInFailureLeavesSignedOut(t *testing.T) {
	srv, _, provider := newTestProvider(t)
	srv.SeedUser("alice@example.com", "secret123")

	_, err := provider.SignIn(context.Background(), "alice@example.com", "wrong")
	if !remote.IsAuthenticationRequired(err) {
		t.Fatalf("expected authentication error, got %v", err)
	}
	if provider.Current() != nil {
		t.Error("expected nil identity after failed sign-in")
	}
}

func TestObserverNotificationOrder(t *testing.T) {
	srv, _, provider := newTestProvider(t)
	srv.SeedUser("alice@example.com", "secret123")

	var order []string
	provider.Subscribe(func(ident *models.Identity) {
		order = append(order, "first")
	})
	provider.Subscribe(func(ident *models.Identity) {
		order = append(order, "second")
	})

	if _, err := provider.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("notification order = %v, want [first second]", order)
	}
}

func TestSignOutNotifiesNil(t *testing.T) {
	srv, _, provider := newTestProvider(t)
	srv.SeedUser("alice@example.com", "secret123")

	var got []*models.Identity
	provider.Subscribe(func(ident *models.Identity) {
		got = append(got, ident)
	})

	if _, err := provider.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if err := provider.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d notifications, want 2", len(got))
	}
	if got[0] == nil || got[1] != nil {
		t.Errorf("notifications = [%v %v], want [identity nil]", got[0], got[1])
	}
	if provider.Current() != nil {
		t.Error("expected nil identity after sign-out")
	}
}

func TestRestoredSessionBecomesCurrent(t *testing.T) {
	srv, client, provider := newTestProvider(t)
	userID := srv.SeedUser("alice@example.com", "secret123")

	if _, err := provider.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	token := client.Token()

	fresh, err := remote.New(remote.Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatalf("remote.New() error = %v", err)
	}
	if err := fresh.SetToken(token); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	restored := NewProvider(fresh)
	if cur := restored.Current(); cur == nil || cur.ID != userID {
		t.Errorf("restored Current() = %v, want id %s", cur, userID)
	}
}
