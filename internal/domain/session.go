package domain

// Session carries the authenticated caller through services. AccessToken is the
// bearer token of the current request and is forwarded to remote collaborators.
type Session struct {
	UserID      string
	Role        Role
	AccessToken string
}

// IsStaff reports whether the session belongs to faculty or admin.
func (s Session) IsStaff() bool {
	return s.Role == RoleFaculty || s.Role == RoleAdmin
}
