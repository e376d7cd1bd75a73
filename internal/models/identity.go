package models

// Identity is the authenticated user as tracked by the session layer.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile holds public display information for an identity.
// A profile row may not exist for every identity; callers must treat
// absence as a fallback-display case, never a failure.
type Profile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName returns the best human-readable name for the profile.
// Safe to call on a nil profile.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
