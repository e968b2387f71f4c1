package request

import "time"

type CreateBookingRequest struct {
	HospitalID        string    `json:"hospital_id" validate:"required,uuid"`
	ResourceType      string    `json:"resource_type" validate:"required,oneof=beds icu operationTheatres"`
	Units             int       `json:"units" validate:"omitempty,min=1,max=50"`
	Urgency           string    `json:"urgency" validate:"required,oneof=low medium high critical"`
	ScheduledDate     time.Time `json:"scheduled_date" validate:"required,future"`
	EstimatedDuration int       `json:"estimated_duration" validate:"required,gt=0,max=8760"`
	Notes             string    `json:"notes" validate:"max=2000"`
}

// BookingDecisionRequest carries the optional reason for decline and cancel.
type BookingDecisionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type HospitalBookingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=pending approved declined cancelled completed"`
}
