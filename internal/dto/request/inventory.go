package request

import "time"

// ManualAdjustRequest holds the proposed bucket values. Total is optional;
// when set it must equal the current total.
type ManualAdjustRequest struct {
	Total       *int   `json:"total,omitempty"`
	Available   int    `json:"available"`
	Occupied    int    `json:"occupied"`
	Reserved    int    `json:"reserved"`
	Maintenance int    `json:"maintenance"`
	Reason      string `json:"reason" validate:"max=500"`
}

type ResizeCapacityRequest struct {
	Total  int    `json:"total" validate:"gte=0"`
	Reason string `json:"reason" validate:"max=500"`
}

type AddResourceRequest struct {
	ResourceType string `json:"resource_type" validate:"required,oneof=beds icu operationTheatres"`
	Total        int    `json:"total" validate:"gte=0"`
}

type AuditHistoryRequest struct {
	PaginatedRequest
	ResourceType string     `json:"resource_type" validate:"omitempty,oneof=beds icu operationTheatres"`
	ChangeType   string     `json:"change_type" validate:"omitempty,oneof=manual_update booking_allocation booking_release approval decline capacity_resize"`
	BookingID    string     `json:"booking_id" validate:"omitempty,uuid"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
}
