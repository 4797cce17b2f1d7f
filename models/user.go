package models

import "strings"

// Role controls what a portal user may do. Engineers act on their own claims
// only; supervisors and admins manage inventory and may act on any claim.
type Role string

const (
	RoleEngineer   Role = "ENGINEER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// CanManageInventory reports whether the role may create items, log arrivals,
// remove devices and act on other users' claims.
func (r Role) CanManageInventory() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// User is the acting identity attached to every authenticated request.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	RZANumber string `json:"rzaNumber"`
	Role      Role   `json:"role"`
}

// DisplayName is the "Name Surname" form stamped onto claims.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}
