package domain

// SystemRole is the global role of a principal, independent of any organization.
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleAgent SystemRole = "agent"
	SystemRoleUser  SystemRole = "user"
)

// Valid reports whether r is a known system role.
func (r SystemRole) Valid() bool {
	switch r {
	case SystemRoleAdmin, SystemRoleAgent, SystemRoleUser:
		return true
	}
	return false
}

// Principal is an authenticated identity. It is passed explicitly through every call.
type Principal struct {
	UserID     string
	SystemRole SystemRole
}
