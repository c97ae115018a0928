package models

// UserRole represents the roles the identity service stamps into access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
	RoleParent     UserRole = "PARENT"
)

// IsAdmin reports whether the role administers a whole school.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID    string
	Role      UserRole
	SchoolID  string
	StudentID string
}
