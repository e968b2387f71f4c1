package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusDeclined  BookingStatus = "declined"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

type Booking struct {
	Base
	BookingReference  string        `db:"booking_reference" json:"booking_reference"`
	UserID            uuid.UUID     `db:"user_id" json:"user_id"`
	HospitalID        uuid.UUID     `db:"hospital_id" json:"hospital_id"`
	ResourceType      ResourceType  `db:"resource_type" json:"resource_type"`
	Units             int           `db:"units" json:"units"`
	Status            BookingStatus `db:"status" json:"status"`
	Urgency           Urgency       `db:"urgency" json:"urgency"`
	ScheduledDate     time.Time     `db:"scheduled_date" json:"scheduled_date"`
	EstimatedDuration int           `db:"estimated_duration" json:"estimated_duration"` // hours
	QuotedAmount      *float64      `db:"quoted_amount" json:"quoted_amount,omitempty"`
	Notes             string        `db:"notes" json:"notes,omitempty"`
	StatusReason      string        `db:"status_reason" json:"status_reason,omitempty"`
}
