package response

import (
	"time"

	"hospital-booking/internal/data/entity"
)

type InventoryResponse struct {
	ResourceType entity.ResourceType `json:"resource_type"`
	Total        int                 `json:"total"`
	Available    int                 `json:"available"`
	Occupied     int                 `json:"occupied"`
	Reserved     int                 `json:"reserved"`
	Maintenance  int                 `json:"maintenance"`
	Version      int64               `json:"version"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func InventoryToResponse(inv *entity.ResourceInventory) InventoryResponse {
	return InventoryResponse{
		ResourceType: inv.ResourceType,
		Total:        inv.Total,
		Available:    inv.Available,
		Occupied:     inv.Occupied,
		Reserved:     inv.Reserved,
		Maintenance:  inv.Maintenance,
		Version:      inv.Version,
		UpdatedAt:    inv.UpdatedAt,
	}
}

type AvailabilityResponse struct {
	HospitalID  string              `json:"hospital_id"`
	Resources   []InventoryResponse `json:"resources"`
	GeneratedAt time.Time           `json:"generated_at"`
}

type ResourceUtilization struct {
	ResourceType   entity.ResourceType `json:"resource_type"`
	Total          int                 `json:"total"`
	Occupied       int                 `json:"occupied"`
	UtilizationPct float64             `json:"utilization_pct"`
}

type UtilizationResponse struct {
	HospitalID  string                `json:"hospital_id"`
	Resources   []ResourceUtilization `json:"resources"`
	GeneratedAt time.Time             `json:"generated_at"`
}

type AuditEntryResponse struct {
	ID             string              `json:"id"`
	ResourceType   entity.ResourceType `json:"resource_type"`
	ChangeType     entity.ChangeType   `json:"change_type"`
	PreviousCounts entity.Counts       `json:"previous_counts"`
	NewCounts      entity.Counts       `json:"new_counts"`
	Units          int                 `json:"units,omitempty"`
	Bucket         entity.Bucket       `json:"bucket,omitempty"`
	ActorID        string              `json:"actor_id"`
	ActorRole      entity.Role         `json:"actor_role"`
	BookingID      *string             `json:"booking_id,omitempty"`
	Reason         string              `json:"reason,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
}

func AuditEntryToResponse(e *entity.AuditLogEntry) AuditEntryResponse {
	resp := AuditEntryResponse{
		ID:             e.ID.String(),
		ResourceType:   e.ResourceType,
		ChangeType:     e.ChangeType,
		PreviousCounts: e.PreviousCounts,
		NewCounts:      e.NewCounts,
		Units:          e.Units,
		Bucket:         e.Bucket,
		ActorID:        e.ActorID,
		ActorRole:      e.ActorRole,
		Reason:         e.Reason,
		Timestamp:      e.CreatedAt,
	}
	if e.BookingID != nil {
		id := e.BookingID.String()
		resp.BookingID = &id
	}
	return resp
}
