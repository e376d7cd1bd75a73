// Package invites implements the invitation workflow: inviting an email
// into a project, listing pending invitations for the signed-in
// identity, and the accept/decline transitions.
package invites

import (
	"context"
	"fmt"
	"strings"

	"github.com/good-yellow-bee/taskboard/internal/metrics"
	"github.com/good-yellow-bee/taskboard/internal/models"
	"github.com/good-yellow-bee/taskboard/internal/remote"
	"github.com/good-yellow-bee/taskboard/internal/session"
)

// Outcome classifies the result of an invite call.
type Outcome string

const (
	// OutcomeAdded means the email resolved to an identity and a
	// membership was created directly.
	OutcomeAdded Outcome = "added"
	// OutcomeAlreadyMember means the identity already holds a
	// membership; Result.Member carries the existing role.
	OutcomeAlreadyMember Outcome = "already_member"
	// OutcomePending means a pending invitation exists (new or reused).
	OutcomePending Outcome = "pending"
	// OutcomePendingPlaceholder means profile resolution was
	// unavailable and the invite degraded to best-effort delivery.
	OutcomePendingPlaceholder Outcome = "pending_placeholder"
)

// Result is the structured outcome of an invite.
type Result struct {
	Outcome    Outcome
	Email      string
	Member     *models.Membership
	Invitation *models.Invitation
	Message    string
}

// Service runs the invitation workflow against the remote store.
type Service struct {
	client  *remote.Client
	session *session.Provider
}

// NewService creates an invitation service.
func NewService(client *remote.Client, sess *session.Provider) *Service {
	return &Service{client: client, session: sess}
}

// AddMember inserts a membership row. A duplicate insert is the
// idempotent "already a member" outcome, never an error; the returned
// bool is true in that case and the membership carries the existing role.
func (s *Service) AddMember(ctx context.Context, projectID, userID string, role models.Role) (*models.Membership, bool, error) {
	row := map[string]any{
		"project_id": projectID,
		"user_id":    userID,
		"role":       role,
	}

	var member models.Membership
	err := s.client.Insert(ctx, "project_members", row, &member)
	if err == nil {
		return &member, false, nil
	}
	if !remote.IsConflict(err) {
		return nil, false, err
	}

	// Already a member: surface the existing row and role.
	var existing models.Membership
	lookupErr := s.client.Select(ctx, "project_members", &existing,
		remote.Eq("project_id", projectID),
		remote.Eq("user_id", userID),
		remote.MaybeSingle(),
	)
	if lookupErr != nil || existing.UserID == "" {
		existing = models.Membership{ProjectID: projectID, UserID: userID, Role: role}
	}
	return &existing, true, nil
}

// Invite invites an email into a project. If the email resolves to an
// existing profile the membership is created directly; otherwise a
// pending invitation record is created, reusing any existing pending
// record for the same (project, email) pair.
func (s *Service) Invite(ctx context.Context, projectID, email string, role models.Role) (*Result, error) {
	ident := s.session.Current()
	if ident == nil {
		return nil, remote.ErrAuthenticationRequired
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, remote.NewValidationError("email is required")
	}
	if !models.ValidRole(string(role)) {
		return nil, remote.NewValidationError(fmt.Sprintf("invalid role: %s", role))
	}

	var profile models.Profile
	err := s.client.Select(ctx, "profiles", &profile,
		remote.Eq("email", email),
		remote.Limit(1),
		remote.MaybeSingle(),
	)
	if remote.IsSchemaUnavailable(err) {
		// Profile resolution is entirely unavailable; invitation
		// delivery is best-effort, so degrade instead of failing.
		metrics.InvitesTotal.WithLabelValues(string(OutcomePendingPlaceholder)).Inc()
		return &Result{
			Outcome: OutcomePendingPlaceholder,
			Email:   email,
			Message: "could not verify the address; invite recorded as best-effort",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if profile.ID != "" {
		member, already, err := s.AddMember(ctx, projectID, profile.ID, role)
		if err != nil {
			return nil, err
		}
		outcome := OutcomeAdded
		if already {
			outcome = OutcomeAlreadyMember
		}
		metrics.InvitesTotal.WithLabelValues(string(outcome)).Inc()
		return &Result{Outcome: outcome, Email: email, Member: member}, nil
	}

	// No identity for this email: at most one pending invitation per
	// (project, email). Reuse an existing one unchanged.
	var existing models.Invitation
	err = s.client.Select(ctx, "invitations", &existing,
		remote.Eq("project_id", projectID),
		remote.Eq("email", email),
		remote.Eq("status", string(models.InvitationPending)),
		remote.Limit(1),
		remote.MaybeSingle(),
	)
	if err != nil {
		return nil, err
	}
	if existing.ID != "" {
		metrics.InvitesTotal.WithLabelValues(string(OutcomePending)).Inc()
		return &Result{Outcome: OutcomePending, Email: email, Invitation: &existing}, nil
	}

	row := map[string]any{
		"project_id": projectID,
		"email":      email,
		"role":       role,
		"status":     models.InvitationPending,
		"invited_by": ident.ID,
	}
	var created models.Invitation
	if err := s.client.Insert(ctx, "invitations", row, &created); err != nil {
		return nil, err
	}

	metrics.InvitesTotal.WithLabelValues(string(OutcomePending)).Inc()
	return &Result{
		Outcome:    OutcomePending,
		Email:      email,
		Invitation: &created,
		Message:    fmt.Sprintf("invitation sent to %s", email),
	}, nil
}

// ListForCurrentIdentity returns pending invitations addressed to the
// signed-in identity's email. Empty when not authenticated.
func (s *Service) ListForCurrentIdentity(ctx context.Context) ([]*models.Invitation, error) {
	ident := s.session.Current()
	if ident == nil {
		return nil, nil
	}

	var pending []*models.Invitation
	err := s.client.Select(ctx, "invitations", &pending,
		remote.Eq("email", strings.ToLower(ident.Email)),
		remote.Eq("status", string(models.InvitationPending)),
		remote.Order("created_at", true),
	)
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// loadScoped loads an invitation and verifies it is addressed to the
// current identity.
func (s *Service) loadScoped(ctx context.Context, invitationID string) (*models.Invitation, *models.Identity, error) {
	ident := s.session.Current()
	if ident == nil {
		return nil, nil, remote.ErrAuthenticationRequired
	}

	var inv models.Invitation
	err := s.client.Select(ctx, "invitations", &inv,
		remote.Eq("id", invitationID),
		remote.Single(),
	)
	if err != nil {
		return nil, nil, err
	}

	if !strings.EqualFold(inv.Email, ident.Email) {
		return nil, nil, remote.NewAuthorizationDenied("invitation was issued to a different email")
	}
	return &inv, ident, nil
}

// Accept creates the membership promised by the invitation and marks it
// accepted. Membership creation and the status update are two separate
// store writes; if the second fails the membership still stands and
// re-running Accept is safe thanks to the unique-membership invariant.
func (s *Service) Accept(ctx context.Context, invitationID string) (*models.Membership, error) {
	inv, ident, err := s.loadScoped(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvitationDeclined {
		return nil, remote.NewConflict("invitation was already declined")
	}

	member, _, err := s.AddMember(ctx, inv.ProjectID, ident.ID, inv.Role)
	if err != nil {
		return nil, err
	}

	if inv.Status == models.InvitationPending {
		err := s.client.Update(ctx, "invitations",
			map[string]any{"status": models.InvitationAccepted},
			nil,
			remote.Eq("id", inv.ID),
		)
		if err != nil {
			return member, fmt.Errorf("membership created but invitation not marked accepted: %w", err)
		}
	}
	return member, nil
}

// Decline marks a pending invitation declined. Scoped to invitations
// addressed to the current identity's email. Declining never touches
// memberships.
func (s *Service) Decline(ctx context.Context, invitationID string) error {
	inv, _, err := s.loadScoped(ctx, invitationID)
	if err != nil {
		return err
	}
	if inv.Status.Terminal() {
		return remote.NewConflict(fmt.Sprintf("invitation is already %s", inv.Status))
	}

	return s.client.Update(ctx, "invitations",
		map[string]any{"status": models.InvitationDeclined},
		nil,
		remote.Eq("id", inv.ID),
		remote.Eq("email", strings.ToLower(inv.Email)),
	)
}
