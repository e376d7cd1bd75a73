// Package tasks owns the task list for the currently selected project
// and the status-column derivation the board renders from. Mutations
// are confirm-then-apply: local state changes only after the remote
// call resolves, and a failed call leaves the task untouched.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/good-yellow-bee/taskboard/internal/metrics"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/projects"
	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/session"
)

// CreateInput holds the attributes for a new task. Zero values default
// to status todo and priority medium.
type CreateInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.Priority
	AssigneeID  string
}

// Manager is the task state manager. The loading flag is coarse,
// per-manager rather than per-task; the UI only drives a single spinner
// off it.
type Manager struct {
	client  *remote.Client
	session *session.Provider

	mu        sync.Mutex
	projectID string
	tasks     []*models.Task
	loading   bool
	lastErr   string
	loadGen   uint64
}

// NewManager creates a task manager invalidated whenever the current
// project changes and cleared on sign-out.
func NewManager(client *remote.Client, sess *session.Provider, proj *projects.Manager) *Manager {
	m := &Manager{client: client, session: sess}
	sess.Subscribe(func(ident *models.Identity) {
		if ident == nil {
			m.clear()
		}
	})
	proj.Subscribe(func(p *models.Project) {
		m.onProjectChange(p)
	})
	return m
}

func (m *Manager) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectID = ""
	m.tasks = nil
	m.loading = false
	m.lastErr = ""
	m.loadGen++
}

// onProjectChange invalidates the owned list when navigation moves to a
// different project. The caller reloads explicitly via LoadForProject.
func (m *Manager) onProjectChange(p *models.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()

	newID := ""
	if p != nil {
		newID = p.ID
	}
	if newID == m.projectID {
		return
	}
	m.projectID = newID
	m.tasks = nil
	m.lastErr = ""
	m.loadGen++
}

// Tasks returns a copy of the owned task list.
func (m *Manager) Tasks() []*models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Task, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// ByStatus returns the tasks sitting in one board column. Pure
// derivation; ordering follows the store's default (creation time,
// descending).
func (m *Manager) ByStatus(status models.TaskStatus) []*models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Task
	for _, t := range m.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Loading reports whether any operation is in flight.
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

// LoadForProject fetches the task list for a project. No project or no
// identity yields an empty list without error. Assignee profiles are
// resolved best-effort; a missing profile never fails the load.
func (m *Manager) LoadForProject(ctx context.Context, projectID string) error {
	if projectID == "" || m.session.Current() == nil {
		m.clear()
		return nil
	}

	m.mu.Lock()
	m.loadGen++
	gen := m.loadGen
	m.loading = true
	m.projectID = projectID
	m.mu.Unlock()

	var list []*models.Task
	err := m.client.Select(ctx, "tasks", &list,
		remote.Eq("project_id", projectID),
		remote.Order("created_at", true),
	)
	if err == nil {
		m.resolveAssignees(ctx, list)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.loadGen {
		// A later load or invalidation superseded this one.
		return nil
	}
	m.loading = false
	if err != nil {
		m.lastErr = "failed to load tasks"
		return fmt.Errorf("load tasks: %w", err)
	}
	m.tasks = list
	m.lastErr = ""
	return nil
}

func (m *Manager) resolveAssignees(ctx context.Context, list []*models.Task) {
	cache := make(map[string]*models.Profile)
	for _, t := range list {
		if t.AssigneeID == "" {
			continue
		}
		if p, ok := cache[t.AssigneeID]; ok {
			t.Assignee = p
			continue
		}
		var profile models.Profile
		err := m.client.Select(ctx, "profiles", &profile,
			remote.Eq("id", t.AssigneeID),
			remote.MaybeSingle(),
		)
		if err != nil || profile.ID == "" {
			cache[t.AssigneeID] = nil
			continue
		}
		cache[t.AssigneeID] = &profile
		t.Assignee = &profile
	}
}

func (m *Manager) setBusy() {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()
}

func (m *Manager) setDone(errMsg string) {
	m.mu.Lock()
	m.loading = false
	m.lastErr = errMsg
	m.mu.Unlock()
}

// Create inserts a task into the current project and appends it to the
// list once the store confirms it.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*models.Task, error) {
	ident := m.session.Current()
	if ident == nil {
		return nil, remote.ErrAuthenticationRequired
	}

	m.mu.Lock()
	projectID := m.projectID
	m.mu.Unlock()
	if projectID == "" {
		return nil, remote.NewValidationError("no project selected")
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, remote.NewValidationError("task title is required")
	}
	if in.Status == "" {
		in.Status = models.StatusTodo
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !models.ValidStatus(string(in.Status)) {
		return nil, remote.NewValidationError(fmt.Sprintf("invalid status: %s", in.Status))
	}
	if !models.ValidPriority(string(in.Priority)) {
		return nil, remote.NewValidationError(fmt.Sprintf("invalid priority: %s", in.Priority))
	}

	row := map[string]any{
		"title":       in.Title,
		"description": in.Description,
		"status":      in.Status,
		"priority":    in.Priority,
		"project_id":  projectID,
		"created_by":  ident.ID,
	}
	if in.AssigneeID != "" {
		row["assignee_id"] = in.AssigneeID
	}

	m.setBusy()
	var created models.Task
	if err := m.client.Insert(ctx, "tasks", row, &created); err != nil {
		m.setDone("failed to add task")
		return nil, fmt.Errorf("create task: %w", err)
	}
	m.setDone("")

	m.mu.Lock()
	if m.projectID == projectID {
		m.tasks = append(m.tasks, &created)
	}
	m.mu.Unlock()
	return &created, nil
}

// Update patches a task's editable fields and replaces the list entry
// with the store's representation.
func (m *Manager) Update(ctx context.Context, task *models.Task) (*models.Task, error) {
	if !models.ValidStatus(string(task.Status)) {
		return nil, remote.NewValidationError(fmt.Sprintf("invalid status: %s", task.Status))
	}

	patch := map[string]any{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"assignee_id": task.AssigneeID,
	}

	m.setBusy()
	var updated models.Task
	err := m.client.Update(ctx, "tasks", patch, &updated,
		remote.Eq("id", task.ID),
		remote.Single(),
	)
	if err != nil {
		m.setDone("failed to update task")
		return nil, fmt.Errorf("update task: %w", err)
	}
	m.setDone("")

	m.replace(&updated)
	return &updated, nil
}

// Delete removes a task from the store and then from the list.
func (m *Manager) Delete(ctx context.Context, taskID string) error {
	m.setBusy()
	if err := m.client.Delete(ctx, "tasks", remote.Eq("id", taskID)); err != nil {
		m.setDone("failed to delete task")
		return fmt.Errorf("delete task: %w", err)
	}
	m.setDone("")

	m.mu.Lock()
	for i, t := range m.tasks {
		if t.ID == taskID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// ChangeStatus moves a task across board columns. The new status is
// applied locally only after the remote call resolves; on failure the
// task is left unchanged and the error recorded.
func (m *Manager) ChangeStatus(ctx context.Context, taskID string, status models.TaskStatus) error {
	if !models.ValidStatus(string(status)) {
		return remote.NewValidationError(fmt.Sprintf("invalid status: %s", status))
	}

	m.setBusy()
	err := m.client.Update(ctx, "tasks",
		map[string]any{"status": status},
		nil,
		remote.Eq("id", taskID),
		remote.Single(),
	)
	if err != nil {
		m.setDone("failed to change task status")
		return fmt.Errorf("change task status: %w", err)
	}
	m.setDone("")
	metrics.TaskMovesTotal.Inc()

	m.mu.Lock()
	for _, t := range m.tasks {
		if t.ID == taskID {
			t.Status = status
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// Assign sets a task's assignee, confirm-then-apply like ChangeStatus.
// An empty identity id clears the assignment.
func (m *Manager) Assign(ctx context.Context, taskID, identityID string) error {
	m.setBusy()
	err := m.client.Update(ctx, "tasks",
		map[string]any{"assignee_id": identityID},
		nil,
		remote.Eq("id", taskID),
		remote.Single(),
	)
	if err != nil {
		m.setDone("failed to assign task")
		return fmt.Errorf("assign task: %w", err)
	}
	m.setDone("")

	m.mu.Lock()
	for _, t := range m.tasks {
		if t.ID == taskID {
			t.AssigneeID = identityID
			t.Assignee = nil
			break
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) replace(task *models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID == task.ID {
			m.tasks[i] = task
			return
		}
	}
}
