package models

import (
	"time"
)

// InvitationStatus tracks an invitation through its lifecycle.
// Accepted and declined are terminal; there is no transition out of them.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Terminal reports whether the status admits no further transitions.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined
}

// Invitation is a standing offer of membership to an email address that
// does not yet resolve to an identity. At most one pending invitation
// exists per (project, email) pair.
type Invitation struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"project_id"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	Status    InvitationStatus `json:"status"`
	InvitedBy string           `json:"invited_by"`
	CreatedAt time.Time        `json:"created_at"`
}
