package domain

// Actor is the authenticated caller of a core operation, resolved once at
// the HTTP boundary and passed explicitly. Core code never reads ambient
// auth state.
type Actor struct {
	ID          string
	Role        Role
	DisplayName string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsSupport reports whether the actor carries the support role.
func (a Actor) IsSupport() bool {
	return a.Role == RoleSupport
}
