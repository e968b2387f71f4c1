package response

import (
	"time"

	"hospital-booking/internal/data/entity"
)

type BookingResponse struct {
	ID                string               `json:"id"`
	BookingReference  string               `json:"booking_reference"`
	UserID            string               `json:"user_id"`
	HospitalID        string               `json:"hospital_id"`
	ResourceType      entity.ResourceType  `json:"resource_type"`
	Units             int                  `json:"units"`
	Status            entity.BookingStatus `json:"status"`
	Urgency           entity.Urgency       `json:"urgency"`
	ScheduledDate     time.Time            `json:"scheduled_date"`
	EstimatedDuration int                  `json:"estimated_duration"`
	QuotedAmount      *float64             `json:"quoted_amount,omitempty"`
	Notes             string               `json:"notes,omitempty"`
	StatusReason      string               `json:"status_reason,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:                b.ID.String(),
		BookingReference:  b.BookingReference,
		UserID:            b.UserID.String(),
		HospitalID:        b.HospitalID.String(),
		ResourceType:      b.ResourceType,
		Units:             b.Units,
		Status:            b.Status,
		Urgency:           b.Urgency,
		ScheduledDate:     b.ScheduledDate,
		EstimatedDuration: b.EstimatedDuration,
		QuotedAmount:      b.QuotedAmount,
		Notes:             b.Notes,
		StatusReason:      b.StatusReason,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
}
