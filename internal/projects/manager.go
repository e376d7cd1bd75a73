// Package projects owns the in-memory project list and the
// current-project pointer, keeping both consistent with the remote
// store across user actions. Updates are confirm-then-apply: local
// state changes only after the store accepts the mutation.
package projects

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/good-yellow-bee/taskboard/internal/invites"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/session"
)

// Manager is the project state manager. Safe for concurrent use; load
// operations carry a generation counter so the last-initiated load wins
// and stale completions are discarded.
type Manager struct {
	client  *remote.Client
	session *session.Provider
	invites *invites.Service

	mu        sync.Mutex
	projects  []*models.Project
	current   *models.Project
	loading   bool
	lastErr   string
	loadGen   uint64
	observers []func(*models.Project)
}

// NewManager creates a project manager wired to session changes: on
// sign-out all owned state is cleared rather than kept stale.
func NewManager(client *remote.Client, sess *session.Provider, inv *invites.Service) *Manager {
	m := &Manager{client: client, session: sess, invites: inv}
	sess.Subscribe(func(ident *models.Identity) {
		if ident == nil {
			m.clear()
		}
	})
	return m
}

// Subscribe registers an observer for current-project changes. The task
// manager uses this to invalidate its list when navigation happens.
func (m *Manager) Subscribe(fn func(*models.Project)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) notifyCurrent(p *models.Project) {
	m.mu.Lock()
	observers := make([]func(*models.Project), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(p)
	}
}

func (m *Manager) clear() {
	m.mu.Lock()
	m.projects = nil
	m.current = nil
	m.loading = false
	m.lastErr = ""
	m.loadGen++
	m.mu.Unlock()

	m.notifyCurrent(nil)
}

// Projects returns a copy of the owned project list.
func (m *Manager) Projects() []*models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Project, len(m.projects))
	copy(out, m.projects)
	return out
}

// Current returns the currently selected project, or nil.
func (m *Manager) Current() *models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Loading reports whether a load is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the last recorded error message, empty after a success.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) beginLoad() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadGen++
	m.loading = true
	return m.loadGen
}

// endLoad reports whether gen is still the most recent load. Superseded
// completions must be discarded without touching state.
func (m *Manager) endLoad(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.loadGen {
		return false
	}
	m.loading = false
	return true
}

// LoadAll fetches every project visible to the current identity along
// with all memberships. No identity means an empty list, not an error.
func (m *Manager) LoadAll(ctx context.Context) error {
	if m.session.Current() == nil {
		m.mu.Lock()
		m.projects = nil
		m.current = nil
		m.loading = false
		m.mu.Unlock()
		return nil
	}

	gen := m.beginLoad()

	var list []*models.Project
	err := m.client.Select(ctx, "projects", &list, remote.Order("created_at", true))
	if err == nil {
		var members []models.Membership
		if err = m.client.Select(ctx, "project_members", &members); err == nil {
			attachMembers(list, members)
		}
	}

	if !m.endLoad(gen) {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.lastErr = "failed to load projects"
		return fmt.Errorf("load projects: %w", err)
	}
	m.projects = list
	m.lastErr = ""
	return nil
}

func attachMembers(list []*models.Project, members []models.Membership) {
	byProject := make(map[string][]models.Membership)
	for _, mem := range members {
		byProject[mem.ProjectID] = append(byProject[mem.ProjectID], mem)
	}
	for _, p := range list {
		p.Members = byProject[p.ID]
	}
}

// LoadOne fetches a single project with its membership list and makes
// it the current project. On failure the current pointer is cleared and
// the error recorded; the caller always gets a renderable error state.
func (m *Manager) LoadOne(ctx context.Context, projectID string) (*models.Project, error) {
	gen := m.beginLoad()

	project, err := m.fetchOne(ctx, projectID)

	if !m.endLoad(gen) {
		return project, nil
	}

	m.mu.Lock()
	if err != nil {
		m.current = nil
		m.lastErr = "failed to load project"
		m.mu.Unlock()
		m.notifyCurrent(nil)
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	m.current = project
	m.lastErr = ""
	m.mu.Unlock()

	m.notifyCurrent(project)
	return project, nil
}

func (m *Manager) fetchOne(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	err := m.client.Select(ctx, "projects", &project,
		remote.Eq("id", projectID),
		remote.Single(),
	)
	if err != nil {
		return nil, err
	}

	var members []models.Membership
	err = m.client.Select(ctx, "project_members", &members,
		remote.Eq("project_id", projectID),
		remote.Order("role", false),
	)
	if err != nil {
		return nil, err
	}
	project.Members = members
	return &project, nil
}

// Create inserts a project and prepends it to the in-memory list
// without refetching. A direct insert rejected by the store's row-level
// policy engine falls back to the create_project_direct procedure; the
// fallback is never attempted preemptively. Afterwards the creator is
// added as an explicit owner membership best-effort: the store usually
// does this itself, and a duplicate or failed insert does not fail the
// creation.
func (m *Manager) Create(ctx context.Context, name, description string) (*models.Project, error) {
	ident := m.session.Current()
	if ident == nil {
		return nil, remote.ErrAuthenticationRequired
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, remote.NewValidationError("project name is required")
	}

	var created models.Project
	err := m.client.Insert(ctx, "projects", map[string]any{
		"name":        name,
		"description": description,
		"created_by":  ident.ID,
	}, &created)
	if err != nil {
		rpcErr := m.client.RPC(ctx, "create_project_direct", map[string]any{
			"project_name":        name,
			"project_description": description,
			"creator_id":          ident.ID,
		}, &created)
		if rpcErr != nil {
			m.mu.Lock()
			m.lastErr = "failed to create project"
			m.mu.Unlock()
			return nil, fmt.Errorf("create project: %w", err)
		}
	} else {
		// Best-effort: the conflict case just means the store already
		// recorded the owner row.
		_, _, _ = m.invites.AddMember(ctx, created.ID, ident.ID, models.RoleOwner)
	}

	m.mu.Lock()
	m.projects = append([]*models.Project{&created}, m.projects...)
	m.lastErr = ""
	m.mu.Unlock()

	return &created, nil
}

// Update patches a project, keeping the list entry and the current
// pointer consistent with each other.
func (m *Manager) Update(ctx context.Context, projectID string, updates map[string]any) (*models.Project, error) {
	var updated models.Project
	err := m.client.Update(ctx, "projects", updates, &updated,
		remote.Eq("id", projectID),
		remote.Single(),
	)
	if err != nil {
		m.mu.Lock()
		m.lastErr = "failed to update project"
		m.mu.Unlock()
		return nil, fmt.Errorf("update project: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.projects {
		if p.ID == projectID {
			updated.Members = p.Members
			m.projects[i] = &updated
			break
		}
	}
	if m.current != nil && m.current.ID == projectID {
		if updated.Members == nil {
			updated.Members = m.current.Members
		}
		m.current = &updated
	}
	m.lastErr = ""
	return &updated, nil
}

// Delete removes a project. Cascading task cleanup is the store's
// responsibility; locally the list entry is dropped and the current
// pointer cleared when it matched.
func (m *Manager) Delete(ctx context.Context, projectID string) error {
	if err := m.client.Delete(ctx, "projects", remote.Eq("id", projectID)); err != nil {
		m.mu.Lock()
		m.lastErr = "failed to delete project"
		m.mu.Unlock()
		return fmt.Errorf("delete project: %w", err)
	}

	var clearedCurrent bool
	m.mu.Lock()
	for i, p := range m.projects {
		if p.ID == projectID {
			m.projects = append(m.projects[:i], m.projects[i+1:]...)
			break
		}
	}
	if m.current != nil && m.current.ID == projectID {
		m.current = nil
		clearedCurrent = true
	}
	m.lastErr = ""
	m.mu.Unlock()

	if clearedCurrent {
		m.notifyCurrent(nil)
	}
	return nil
}

// InviteMember delegates to the invitation workflow and refreshes the
// current project when it is the one affected.
func (m *Manager) InviteMember(ctx context.Context, projectID, email string, role models.Role) (*invites.Result, error) {
	result, err := m.invites.Invite(ctx, projectID, email, role)
	if err != nil {
		m.mu.Lock()
		m.lastErr = "failed to invite member"
		m.mu.Unlock()
		return nil, err
	}

	if current := m.Current(); current != nil && current.ID == projectID {
		if _, err := m.LoadOne(ctx, projectID); err != nil {
			return result, err
		}
	}
	return result, nil
}

// RemoveMember deletes a membership row and refreshes the current
// project if one is selected. Pending invitations for the removed
// member's email are left untouched.
func (m *Manager) RemoveMember(ctx context.Context, memberID string) error {
	if err := m.client.Delete(ctx, "project_members", remote.Eq("id", memberID)); err != nil {
		m.mu.Lock()
		m.lastErr = "failed to remove member"
		m.mu.Unlock()
		return fmt.Errorf("remove member: %w", err)
	}

	if current := m.Current(); current != nil {
		if _, err := m.LoadOne(ctx, current.ID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateMemberRole changes an existing member's role and refreshes the
// current project if one is selected.
func (m *Manager) UpdateMemberRole(ctx context.Context, memberID string, role models.Role) error {
	if !models.ValidRole(string(role)) {
		return remote.NewValidationError(fmt.Sprintf("invalid role: %s", role))
	}

	err := m.client.Update(ctx, "project_members",
		map[string]any{"role": role},
		nil,
		remote.Eq("id", memberID),
		remote.Single(),
	)
	if err != nil {
		m.mu.Lock()
		m.lastErr = "failed to update member role"
		m.mu.Unlock()
		return fmt.Errorf("update member role: %w", err)
	}

	if current := m.Current(); current != nil {
		if _, err := m.LoadOne(ctx, current.ID); err != nil {
			return err
		}
	}
	return nil
}

// HasRole is a pure derivation over already-loaded state: true when the
// current identity created the project or holds one of the given roles.
// No roles means any membership qualifies. The creator is
// owner-equivalent even without an explicit membership row.
func (m *Manager) HasRole(projectID string, roles ...models.Role) bool {
	ident := m.session.Current()
	if ident == nil || projectID == "" {
		return false
	}

	m.mu.Lock()
	var project *models.Project
	for _, p := range m.projects {
		if p.ID == projectID {
			project = p
			break
		}
	}
	if project == nil && m.current != nil && m.current.ID == projectID {
		project = m.current
	}
	m.mu.Unlock()

	if project == nil {
		return false
	}
	if project.CreatedBy == ident.ID {
		return true
	}

	role, ok := project.MemberRole(ident.ID)
	if !ok {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if role == r {
			return true
		}
	}
	return false
}
