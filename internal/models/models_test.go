package models

import (
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"owner", RoleOwner},
		{"admin", RoleAdmin},
		{"member", RoleMember},
		{"", RoleMember},
		{"superuser", RoleMember},
	}

	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{"owner", "admin", "member"} {
		if !ValidRole(r) {
			t.Errorf("ValidRole(%q) = false, want true", r)
		}
	}
	for _, r := range []string{"", "viewer", "Owner"} {
		if ValidRole(r) {
			t.Errorf("ValidRole(%q) = true, want false", r)
		}
	}
}

func TestRoleCanManage(t *testing.T) {
	if !RoleOwner.CanManage() || !RoleAdmin.CanManage() {
		t.Error("owner and admin should be able to manage")
	}
	if RoleMember.CanManage() {
		t.Error("member should not be able to manage")
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{"todo", "in_progress", "testing", "done"} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "archived", "Done", "in-progress"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%q) = true, want false", s)
		}
	}
}

func TestInvitationStatusTerminal(t *testing.T) {
	if InvitationPending.Terminal() {
		t.Error("pending should not be terminal")
	}
	if !InvitationAccepted.Terminal() || !InvitationDeclined.Terminal() {
		t.Error("accepted and declined should be terminal")
	}
}

func TestProfileDisplayName(t *testing.T) {
	var nilProfile *Profile
	if got := nilProfile.DisplayName(); got != "" {
		t.Errorf("nil profile display name = %q, want empty", got)
	}

	p := &Profile{Email: "a@example.com"}
	if got := p.DisplayName(); got != "a@example.com" {
		t.Errorf("display name = %q, want email fallback", got)
	}

	p.FullName = "Alice"
	if got := p.DisplayName(); got != "Alice" {
		t.Errorf("display name = %q, want full name", got)
	}
}

func TestProjectMemberRole(t *testing.T) {
	p := &Project{
		ID: "p1",
		Members: []Membership{
			{UserID: "u1", Role: RoleAdmin},
			{UserID: "u2", Role: RoleMember},
		},
	}

	role, ok := p.MemberRole("u1")
	if !ok || role != RoleAdmin {
		t.Errorf("MemberRole(u1) = %q, %v", role, ok)
	}
	if _, ok := p.MemberRole("u3"); ok {
		t.Error("MemberRole(u3) should not be found")
	}
}
