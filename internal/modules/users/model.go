package users

import (
	"time"

	"github.com/milagros-hr/proyecto-transport/internal/types"
)

const (
	CollectionRiders  = "riders"
	CollectionDrivers = "drivers"
)

type Vehicle struct {
	Plate string `json:"plate"`
	Model string `json:"model,omitempty"`
	Color string `json:"color,omitempty"`
	Seats int    `json:"seats,omitempty"`
}

type User struct {
	ID           types.ID   `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	Role         types.Role `json:"role"`
	PasswordHash string     `json:"password_hash,omitempty"`
	Vehicle      *Vehicle   `json:"vehicle,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
}

// Public strips the password hash.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

func collectionFor(role types.Role) string {
	if role == types.RoleDriver {
		return CollectionDrivers
	}
	return CollectionRiders
}
