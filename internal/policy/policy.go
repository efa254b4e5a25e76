// Package policy holds the authorization decision table shared by every
// protected handler. Decisions are pure values; callers map a denial to a
// 403 and must have authenticated the principal beforehand.
package policy

import "github.com/healthconnect/healthconnect-api/internal/models"

// Principal is the authenticated actor making a request.
type Principal struct {
	ID   string
	Role models.Role
}

// Owners carries the identity fields relevant to a resource: both ids for
// an appointment, the authoring doctor alone for medical-record writes.
type Owners struct {
	PatientID string
	DoctorID  string
}

type Action int

const (
	ActionRead Action = iota
	ActionUpdate
	ActionCancel
	ActionDelete
	ActionCreateRecord
)

// CanAccess decides whether the principal may perform action on a resource
// owned by owners. Admins may do anything; creating a medical record is
// reserved to doctors; everything else is ownership-based.
func CanAccess(p Principal, owners Owners, action Action) bool {
	switch p.Role {
	case models.RoleAdmin:
		return true
	case models.RoleDoctor:
		if action == ActionCreateRecord {
			return true
		}
		return owns(p.ID, owners)
	case models.RolePatient:
		if action == ActionCreateRecord {
			return false
		}
		return owns(p.ID, owners)
	}
	return false
}

func owns(id string, o Owners) bool {
	if id == "" {
		return false
	}
	return id == o.PatientID || id == o.DoctorID
}
