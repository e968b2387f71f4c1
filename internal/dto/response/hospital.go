package response

import (
	"time"

	"hospital-booking/internal/data/entity"
)

type HospitalResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Status    entity.HospitalStatus `json:"status"`
	Resources []InventoryResponse   `json:"resources,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func HospitalToResponse(h *entity.Hospital, inventories []*entity.ResourceInventory) HospitalResponse {
	resp := HospitalResponse{
		ID:        h.ID.String(),
		Name:      h.Name,
		Status:    h.Status,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.UpdatedAt,
	}
	for _, inv := range inventories {
		resp.Resources = append(resp.Resources, InventoryToResponse(inv))
	}
	return resp
}
