package models

import (
	"context"
	"errors"
)

// UserRole represents the role of a user in the system
type UserRole string

const (
	RoleAttendee  UserRole = "user"
	RoleOrganizer UserRole = "organizer"
	RoleAdmin     UserRole = "admin"
)

// User is the authenticated principal attached to a request. Accounts are
// managed elsewhere; this service only needs the id and the role.
type User struct {
	ID    int      `json:"id"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// ValidateRole checks that role is one of the known roles
func ValidateRole(role UserRole) error {
	switch role {
	case RoleAttendee, RoleOrganizer, RoleAdmin:
		return nil
	default:
		return errors.New("invalid user role")
	}
}

// IsAdmin returns true if the user is an admin
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CanCreateEvents returns true if the user can create events
func (u *User) CanCreateEvents() bool {
	return u != nil && (u.Role == RoleOrganizer || u.Role == RoleAdmin)
}

// CanReadTemplates returns true if the user may use templates.
func (u *User) CanReadTemplates() bool {
	return u.CanCreateEvents()
}

// CanCreateTemplates returns true if the user may save events as templates.
func (u *User) CanCreateTemplates() bool {
	return u.CanCreateEvents()
}

type userContextKey struct{}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user stored by WithUser, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}
