package profiles

import (
	"context"
	"testing"

	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/session"
	"github.com/good-yellow-bee/taskboard/internal/storetest"
)

func newTestManager(t *testing.T) (*storetest.Server, *session.Provider, *Manager) {
	t.Helper()

	srv := storetest.New()
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatalf("remote.New() error = %v", err)
	}
	sess := session.NewProvider(client)
	return srv, sess, NewManager(client, sess)
}

func TestLoadWithoutIdentity(t *testing.T) {
	_, _, manager := newTestManager(t)

	profile, err := manager.Load(context.Background())
	if err != nil || profile != nil {
		t.Errorf("Load() without identity = %v, %v; want nil, nil", profile, err)
	}
}

func TestLoad(t *testing.T) {
	srv, sess, manager := newTestManager(t)
	userID := srv.SeedUser("alice@example.com", "secret123")
	srv.Insert("profiles", map[string]any{"id": "ignore-me", "email": "other@example.com"})

	if _, err := sess.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	profile, err := manager.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if profile.ID != userID || profile.Email != "alice@example.com" {
		t.Errorf("profile = %+v", profile)
	}
	if cur := manager.Current(); cur == nil || cur.ID != userID {
		t.Errorf("Current() = %v", cur)
	}
}

func TestLoadFallsBackWithoutProfileRow(t *testing.T) {
	srv, sess, manager := newTestManager(t)
	userID := srv.SeedUserWithoutProfile("alice@example.com", "secret123")

	if _, err := sess.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	profile, err := manager.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if profile.ID != userID || profile.Email != "alice@example.com" {
		t.Errorf("fallback profile = %+v, want identity-derived", profile)
	}
	if profile.DisplayName() != "alice@example.com" {
		t.Errorf("DisplayName() = %s, want the email", profile.DisplayName())
	}
}

func TestLoadFallsBackWhenRelationMissing(t *testing.T) {
	srv, sess, manager := newTestManager(t)
	userID := srv.SeedUser("alice@example.com", "secret123")

	if _, err := sess.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}

	srv.ProfilesUnavailable = true
	profile, err := manager.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() with missing relation error = %v", err)
	}
	if profile.ID != userID {
		t.Errorf("profile id = %s, want %s", profile.ID, userID)
	}
}

func TestGet(t *testing.T) {
	srv, _, manager := newTestManager(t)
	userID := srv.SeedUser("alice@example.com", "secret123")

	profile, err := manager.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if profile == nil || profile.ID != userID {
		t.Errorf("profile = %+v", profile)
	}

	absent, err := manager.Get(context.Background(), "no-such-id")
	if err != nil || absent != nil {
		t.Errorf("Get() for absent id = %v, %v; want nil, nil", absent, err)
	}
}

func TestUpdate(t *testing.T) {
	srv, sess, manager := newTestManager(t)
	srv.SeedUser("alice@example.com", "secret123")

	t.Run("requires identity", func(t *testing.T) {
		_, err := manager.Update(context.Background(), map[string]any{"full_name": "x"})
		if !remote.IsAuthenticationRequired(err) {
			t.Errorf("expected authentication error, got %v", err)
		}
	})

	t.Run("patches and caches", func(t *testing.T) {
		if _, err := sess.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}

		updated, err := manager.Update(context.Background(), map[string]any{"full_name": "Alice Smith"})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.FullName != "Alice Smith" {
			t.Errorf("full name = %s", updated.FullName)
		}
		if manager.Current().FullName != "Alice Smith" {
			t.Error("cached profile not refreshed")
		}
	})
}

func TestSignOutClearsProfile(t *testing.T) {
	srv, sess, manager := newTestManager(t)
	srv.SeedUser("alice@example.com", "secret123")

	if _, err := sess.SignIn(context.Background(), "alice@example.com", "secret123"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if _, err := manager.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := sess.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	if manager.Current() != nil {
		t.Error("expected nil profile after sign-out")
	}
}
