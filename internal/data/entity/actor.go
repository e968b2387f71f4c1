package entity

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin             Role = "admin"
	RoleHospitalAuthority Role = "hospital-authority"
	RoleUser              Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHospitalAuthority, RoleUser:
		return true
	}
	return false
}

// Actor is the caller of a state-changing operation, already authenticated
// and role-resolved upstream.
type Actor struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	HospitalID *uuid.UUID `json:"hospital_id,omitempty"`
}

// SystemActor is used for mutations not initiated by a person.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}
