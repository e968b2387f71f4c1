package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeManualUpdate      ChangeType = "manual_update"
	ChangeBookingAllocation ChangeType = "booking_allocation"
	ChangeBookingRelease    ChangeType = "booking_release"
	ChangeApproval          ChangeType = "approval"
	ChangeDecline           ChangeType = "decline"
	ChangeCapacityResize    ChangeType = "capacity_resize"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeManualUpdate, ChangeBookingAllocation, ChangeBookingRelease,
		ChangeApproval, ChangeDecline, ChangeCapacityResize:
		return true
	}
	return false
}

// AuditLogEntry records one inventory mutation. Entries are append-only.
type AuditLogEntry struct {
	BaseSimple
	HospitalID     uuid.UUID    `db:"hospital_id" json:"hospital_id"`
	ResourceType   ResourceType `db:"resource_type" json:"resource_type"`
	ChangeType     ChangeType   `db:"change_type" json:"change_type"`
	PreviousCounts Counts       `db:"previous_counts" json:"previous_counts"`
	NewCounts      Counts       `db:"new_counts" json:"new_counts"`
	Units          int          `db:"units" json:"units"`
	Bucket         Bucket       `db:"bucket" json:"bucket,omitempty"`
	ActorID        string       `db:"actor_id" json:"actor_id"`
	ActorRole      Role         `db:"actor_role" json:"actor_role"`
	BookingID      *uuid.UUID   `db:"booking_id" json:"booking_id,omitempty"`
	Reason         string       `db:"reason" json:"reason,omitempty"`
}

// AuditFilter narrows an audit history query. Zero values mean "any".
type AuditFilter struct {
	ResourceType ResourceType
	ChangeType   ChangeType
	BookingID    *uuid.UUID
	From         *time.Time
	To           *time.Time
}

// Matches is used by stores that filter in memory.
func (f AuditFilter) Matches(e *AuditLogEntry) bool {
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ChangeType != "" && e.ChangeType != f.ChangeType {
		return false
	}
	if f.BookingID != nil && (e.BookingID == nil || *e.BookingID != *f.BookingID) {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}
