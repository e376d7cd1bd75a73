package projects

import (
	"context"
	"testing"

	"github.com/good-yellow-bee/taskboard/internal/invites"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/session"
	"github.com/good-yellow-bee/taskboard/internal/storetest"
)

type testEnv struct {
	srv     *storetest.Server
	client  *remote.Client
	session *session.Provider
	manager *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := storetest.New()
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatalf("remote.New() error = %v", err)
	}

	sess := session.NewProvider(client)
	inv := invites.NewService(client, sess)
	return &testEnv{
		srv:     srv,
		client:  client,
		session: sess,
		manager: NewManager(client, sess, inv),
	}
}

func (e *testEnv) signIn(t *testing.T, email, password string) string {
	t.Helper()
	ident, err := e.session.SignIn(context.Background(), email, password)
	if err != nil {
		t.Fatalf("SignIn(%s) error = %v", email, err)
	}
	return ident.ID
}

func TestLoadAllWithoutIdentity(t *testing.T) {
	env := newTestEnv(t)
	env.srv.Insert("projects", map[string]any{"name": "alpha", "created_by": "u1"})

	if err := env.manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if got := env.manager.Projects(); len(got) != 0 {
		t.Errorf("got %d projects without identity, want 0", len(got))
	}
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	userID := env.signIn(t, "alice@example.com", "secret123")

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := env.manager.Create(context.Background(), "   ", "")
		if !remote.IsValidationFailed(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("direct insert", func(t *testing.T) {
		created, err := env.manager.Create(context.Background(), "alpha", "first board")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID == "" || created.Name != "alpha" {
			t.Errorf("created = %+v", created)
		}

		// Prepended without a refetch.
		list := env.manager.Projects()
		if len(list) == 0 || list[0].ID != created.ID {
			t.Errorf("new project not at head of list")
		}

		// The creator holds an owner membership row.
		var owner bool
		for _, row := range env.srv.Rows("project_members") {
			if row["project_id"] == created.ID && row["user_id"] == userID && row["role"] == "owner" {
				owner = true
			}
		}
		if !owner {
			t.Error("expected an owner membership for the creator")
		}
	})

	t.Run("policy rejection falls back to rpc", func(t *testing.T) {
		env.srv.RejectProjectInsert = true
		defer func() { env.srv.RejectProjectInsert = false }()

		created, err := env.manager.Create(context.Background(), "beta", "")
		if err != nil {
			t.Fatalf("Create() with fallback error = %v", err)
		}
		if created.Name != "beta" {
			t.Errorf("name = %s, want beta", created.Name)
		}

		var owner bool
		for _, row := range env.srv.Rows("project_members") {
			if row["project_id"] == created.ID && row["role"] == "owner" {
				owner = true
			}
		}
		if !owner {
			t.Error("expected the rpc path to record the owner membership")
		}
	})
}

func TestLoadAllAttachesMembers(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	userID := env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := env.manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	list := env.manager.Projects()
	if len(list) != 1 {
		t.Fatalf("got %d projects, want 1", len(list))
	}
	role, ok := list[0].MemberRole(userID)
	if !ok || role != models.RoleOwner {
		t.Errorf("MemberRole = %v, %v; want owner", role, ok)
	}
	if list[0].ID != created.ID {
		t.Errorf("loaded id = %s, want %s", list[0].ID, created.ID)
	}
}

func TestLoadOne(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("selects the project", func(t *testing.T) {
		project, err := env.manager.LoadOne(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("LoadOne() error = %v", err)
		}
		if project.ID != created.ID {
			t.Errorf("loaded id = %s, want %s", project.ID, created.ID)
		}
		if cur := env.manager.Current(); cur == nil || cur.ID != created.ID {
			t.Errorf("Current() = %v, want %s", cur, created.ID)
		}
	})

	t.Run("failure clears current", func(t *testing.T) {
		if _, err := env.manager.LoadOne(context.Background(), "missing"); err == nil {
			t.Fatal("expected error for missing project")
		}
		if env.manager.Current() != nil {
			t.Error("expected nil current after failed load")
		}
		if env.manager.Err() == "" {
			t.Error("expected an error message to be recorded")
		}
	})
}

func TestUpdateKeepsListConsistent(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := env.manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if _, err := env.manager.LoadOne(context.Background(), created.ID); err != nil {
		t.Fatalf("LoadOne() error = %v", err)
	}

	updated, err := env.manager.Update(context.Background(), created.ID, map[string]any{"name": "renamed"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "renamed" {
		t.Errorf("name = %s, want renamed", updated.Name)
	}

	list := env.manager.Projects()
	if list[0].Name != "renamed" {
		t.Errorf("list entry name = %s, want renamed", list[0].Name)
	}
	if len(list[0].Members) == 0 {
		t.Error("update dropped the attached members")
	}
	if cur := env.manager.Current(); cur == nil || cur.Name != "renamed" {
		t.Errorf("Current() = %v, want renamed", cur)
	}
}

func TestDeleteClearsCurrent(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	env.srv.Insert("tasks", map[string]any{"project_id": created.ID, "title": "t", "status": "todo"})
	if _, err := env.manager.LoadOne(context.Background(), created.ID); err != nil {
		t.Fatalf("LoadOne() error = %v", err)
	}

	var notified []*models.Project
	env.manager.Subscribe(func(p *models.Project) {
		notified = append(notified, p)
	})

	if err := env.manager.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if env.manager.Current() != nil {
		t.Error("expected nil current after deleting the selected project")
	}
	if len(env.manager.Projects()) != 0 {
		t.Error("expected empty list after delete")
	}
	if len(notified) != 1 || notified[0] != nil {
		t.Errorf("observer notifications = %v, want one nil", notified)
	}
	if rows := env.srv.Rows("tasks"); len(rows) != 0 {
		t.Errorf("store kept %d tasks after cascade", len(rows))
	}
}

func TestHasRole(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	bobID := env.srv.SeedUser("bob@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	env.srv.Insert("project_members", map[string]any{
		"project_id": created.ID, "user_id": bobID, "role": "member",
	})
	if err := env.manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	t.Run("creator is owner-equivalent", func(t *testing.T) {
		if !env.manager.HasRole(created.ID, models.RoleOwner) {
			t.Error("creator should satisfy the owner role")
		}
		if !env.manager.HasRole(created.ID) {
			t.Error("creator should satisfy any-membership")
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		if env.manager.HasRole("missing", models.RoleOwner) {
			t.Error("unknown project should never satisfy a role")
		}
	})

	t.Run("plain member", func(t *testing.T) {
		bobEnv := newTestEnvSharingStore(t, env.srv)
		bobEnv.signIn(t, "bob@example.com", "secret123")
		if err := bobEnv.manager.LoadAll(context.Background()); err != nil {
			t.Fatalf("LoadAll() error = %v", err)
		}

		if !bobEnv.manager.HasRole(created.ID) {
			t.Error("member should satisfy any-membership")
		}
		if bobEnv.manager.HasRole(created.ID, models.RoleOwner, models.RoleAdmin) {
			t.Error("member should not satisfy owner/admin")
		}
	})
}

// newTestEnvSharingStore builds a second manager stack against an
// already-running fake store, for multi-identity scenarios.
func newTestEnvSharingStore(t *testing.T, srv *storetest.Server) *testEnv {
	t.Helper()

	client, err := remote.New(remote.Config{BaseURL: srv.URL()})
	if err != nil {
		t.Fatalf("remote.New() error = %v", err)
	}
	sess := session.NewProvider(client)
	inv := invites.NewService(client, sess)
	return &testEnv{
		srv:     srv,
		client:  client,
		session: sess,
		manager: NewManager(client, sess, inv),
	}
}

func TestInviteMemberRefreshesCurrent(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	bobID := env.srv.SeedUser("bob@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.manager.LoadOne(context.Background(), created.ID); err != nil {
		t.Fatalf("LoadOne() error = %v", err)
	}

	result, err := env.manager.InviteMember(context.Background(), created.ID, "bob@example.com", models.RoleMember)
	if err != nil {
		t.Fatalf("InviteMember() error = %v", err)
	}
	if result.Outcome != "added" {
		t.Errorf("outcome = %s, want added", result.Outcome)
	}

	cur := env.manager.Current()
	if cur == nil {
		t.Fatal("expected a current project")
	}
	if _, ok := cur.MemberRole(bobID); !ok {
		t.Error("current project missing the new member after refresh")
	}
}

func TestRemoveMemberLeavesInvitations(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	bobID := env.srv.SeedUser("bob@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	memberID := env.srv.Insert("project_members", map[string]any{
		"project_id": created.ID, "user_id": bobID, "role": "member",
	})
	env.srv.Insert("invitations", map[string]any{
		"project_id": created.ID, "email": "carol@example.com",
		"role": "member", "status": "pending",
	})
	if _, err := env.manager.LoadOne(context.Background(), created.ID); err != nil {
		t.Fatalf("LoadOne() error = %v", err)
	}

	if err := env.manager.RemoveMember(context.Background(), memberID); err != nil {
		t.Fatalf("RemoveMember() error = %v", err)
	}

	cur := env.manager.Current()
	if _, ok := cur.MemberRole(bobID); ok {
		t.Error("removed member still present after refresh")
	}
	if rows := env.srv.Rows("invitations"); len(rows) != 1 {
		t.Errorf("pending invitations changed by member removal: %d rows", len(rows))
	}
}

func TestUpdateMemberRole(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	bobID := env.srv.SeedUser("bob@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	memberID := env.srv.Insert("project_members", map[string]any{
		"project_id": created.ID, "user_id": bobID, "role": "member",
	})
	if _, err := env.manager.LoadOne(context.Background(), created.ID); err != nil {
		t.Fatalf("LoadOne() error = %v", err)
	}

	if err := env.manager.UpdateMemberRole(context.Background(), memberID, "superuser"); !remote.IsValidationFailed(err) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}

	if err := env.manager.UpdateMemberRole(context.Background(), memberID, models.RoleAdmin); err != nil {
		t.Fatalf("UpdateMemberRole() error = %v", err)
	}
	role, _ := env.manager.Current().MemberRole(bobID)
	if role != models.RoleAdmin {
		t.Errorf("role = %s, want admin", role)
	}
}

// TestInvitationLifecycle walks the whole collaboration flow: alice
// creates a board and invites an address with no account yet, bob signs
// up later, sees the invitation, accepts, and ends up a plain member.
func TestInvitationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "Sprint 1", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := env.manager.InviteMember(context.Background(), created.ID, "b@example.com", models.RoleMember)
	if err != nil {
		t.Fatalf("InviteMember() error = %v", err)
	}
	if result.Outcome != invites.OutcomePending {
		t.Fatalf("outcome = %s, want pending (no account yet)", result.Outcome)
	}

	// Bob signs up and logs in with his own stack.
	bobID := env.srv.SeedUser("b@example.com", "secret123")
	bobEnv := newTestEnvSharingStore(t, env.srv)
	bobEnv.signIn(t, "b@example.com", "secret123")
	bobInvites := invites.NewService(bobEnv.client, bobEnv.session)

	pending, err := bobInvites.ListForCurrentIdentity(context.Background())
	if err != nil {
		t.Fatalf("ListForCurrentIdentity() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != result.Invitation.ID {
		t.Fatalf("pending = %+v, want the invitation alice sent", pending)
	}

	member, err := bobInvites.Accept(context.Background(), pending[0].ID)
	if err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if member.UserID != bobID || member.Role != models.RoleMember {
		t.Errorf("membership = %+v, want bob as member", member)
	}

	if err := bobEnv.manager.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if !bobEnv.manager.HasRole(created.ID, models.RoleMember) {
		t.Error("bob should hold the member role after accepting")
	}
	if bobEnv.manager.HasRole(created.ID, models.RoleOwner, models.RoleAdmin) {
		t.Error("bob must not gain owner/admin from a member invitation")
	}
}

func TestSignOutClearsState(t *testing.T) {
	env := newTestEnv(t)
	env.srv.SeedUser("alice@example.com", "secret123")
	env.signIn(t, "alice@example.com", "secret123")

	created, err := env.manager.Create(context.Background(), "alpha", "")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := env.manager.LoadOne(context.Background(), created.ID); err != nil {
		t.Fatalf("LoadOne() error = %v", err)
	}

	if err := env.session.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if env.manager.Current() != nil {
		t.Error("expected nil current after sign-out")
	}
	if len(env.manager.Projects()) != 0 {
		t.Error("expected empty list after sign-out")
	}
}
