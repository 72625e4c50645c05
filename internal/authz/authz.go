// Package authz decides who may act on a booking.
package authz

import "roombook/backend/internal/domain"

// RoleAuthorizer lets owners mutate their own bookings and lets super users
// and admins mutate and book for anyone.
type RoleAuthorizer struct{}

func (RoleAuthorizer) CanMutate(requester domain.Requester, booking domain.Booking) bool {
	if requester.ID != "" && requester.ID == booking.OwnerID {
		return true
	}
	return isPrivileged(requester.Role)
}

func (RoleAuthorizer) CanActOnBehalf(requester domain.Requester) bool {
	return isPrivileged(requester.Role)
}

func isPrivileged(role domain.Role) bool {
	return role == domain.RoleSuperUser || role == domain.RoleAdmin
}
