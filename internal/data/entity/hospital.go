package entity

type HospitalStatus string

const (
	HospitalStatusPending  HospitalStatus = "pending"
	HospitalStatusApproved HospitalStatus = "approved"
	HospitalStatusRejected HospitalStatus = "rejected"
)

type Hospital struct {
	Base
	Name   string         `db:"name" json:"name"`
	Status HospitalStatus `db:"status" json:"status"`
}

// CanMoveTo reports whether a hospital in status s may move to next.
// Rejection is reachable from approved so a hospital can be taken offline.
func (s HospitalStatus) CanMoveTo(next HospitalStatus) bool {
	switch s {
	case HospitalStatusPending:
		return next == HospitalStatusApproved || next == HospitalStatusRejected
	case HospitalStatusApproved:
		return next == HospitalStatusRejected
	}
	return false
}
