package adaptor

import (
	"net/http"

	"hospital-booking/internal/dto/request"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/middleware"
	"hospital-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type HospitalHandler struct {
	service usecase.HospitalService
	log     *zap.Logger
}

func NewHospitalHandler(service usecase.HospitalService, log *zap.Logger) *HospitalHandler {
	return &HospitalHandler{
		service: service,
		log:     log.With(zap.String("handler", "hospital")),
	}
}

// RegisterHospital handles POST /api/hospitals
func (h *HospitalHandler) RegisterHospital(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterHospitalRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	hospital, err := h.service.RegisterHospital(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "register hospital")
		return
	}

	utils.ResponseCreated(w, "success", hospital)
}

// GetHospital handles GET /api/hospitals/{id}
func (h *HospitalHandler) GetHospital(w http.ResponseWriter, r *http.Request) {
	hospital, err := h.service.GetHospital(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get hospital")
		return
	}

	utils.ResponseSuccess(w, "success", hospital)
}

// ApproveHospital handles POST /api/hospitals/{id}/approve
func (h *HospitalHandler) ApproveHospital(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromRequest(r)

	var req request.ApproveHospitalRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	hospital, err := h.service.ApproveHospital(r.Context(), chi.URLParam(r, "id"), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "approve hospital")
		return
	}

	utils.ResponseSuccess(w, "success", hospital)
}

// RejectHospital handles POST /api/hospitals/{id}/reject
func (h *HospitalHandler) RejectHospital(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromRequest(r)

	var req request.RejectHospitalRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	hospital, err := h.service.RejectHospital(r.Context(), chi.URLParam(r, "id"), actor, req.Reason)
	if err != nil {
		handleServiceError(w, h.log, err, "reject hospital")
		return
	}

	utils.ResponseSuccess(w, "success", hospital)
}

// AddResourceType handles POST /api/hospitals/{id}/inventory
func (h *HospitalHandler) AddResourceType(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromRequest(r)

	var req request.AddResourceRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	inv, err := h.service.AddResourceType(r.Context(), chi.URLParam(r, "id"), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "add resource type")
		return
	}

	utils.ResponseCreated(w, "success", inv)
}

// UpdateInventory handles PUT /api/hospitals/{id}/inventory/{resourceType}
func (h *HospitalHandler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromRequest(r)

	var req request.ManualAdjustRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	inv, err := h.service.UpdateInventory(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "resourceType"), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update inventory")
		return
	}

	utils.ResponseSuccess(w, "success", inv)
}

// ResizeCapacity handles PUT /api/hospitals/{id}/inventory/{resourceType}/capacity
func (h *HospitalHandler) ResizeCapacity(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromRequest(r)

	var req request.ResizeCapacityRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	inv, err := h.service.ResizeCapacity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "resourceType"), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "resize capacity")
		return
	}

	utils.ResponseSuccess(w, "success", inv)
}
