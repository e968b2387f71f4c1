package request

type RegisterHospitalRequest struct {
	Name string `json:"name" validate:"required,min=2,max=200"`
}

type ResourceCapacity struct {
	ResourceType string `json:"resource_type" validate:"required,oneof=beds icu operationTheatres"`
	Total        int    `json:"total" validate:"gte=0"`
}

type ApproveHospitalRequest struct {
	Capacities []ResourceCapacity `json:"capacities" validate:"required,min=1,dive"`
}

type RejectHospitalRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
