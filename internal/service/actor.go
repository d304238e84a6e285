package service

import "agritrace/internal/models"

// Actor is the verified identity behind a call. The zero value is an
// anonymous caller.
type Actor struct {
	ID   string
	Role models.Role
}

func (a Actor) Authenticated() bool { return a.ID != "" }

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// CanActFor reports whether the actor may act on behalf of id.
func (a Actor) CanActFor(id string) bool {
	return a.IsAdmin() || (a.Authenticated() && a.ID == id)
}
