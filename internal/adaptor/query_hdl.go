package adaptor

import (
	"net/http"
	"time"

	"hospital-booking/internal/dto/request"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type QueryHandler struct {
	service usecase.QueryService
	log     *zap.Logger
}

func NewQueryHandler(service usecase.QueryService, log *zap.Logger) *QueryHandler {
	return &QueryHandler{
		service: service,
		log:     log.With(zap.String("handler", "query")),
	}
}

// GetAvailability handles GET /api/hospitals/{id}/availability
func (h *QueryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.GetAvailability(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}

// GetUtilization handles GET /api/hospitals/{id}/utilization
func (h *QueryHandler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	utilization, err := h.service.GetUtilization(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get utilization")
		return
	}

	utils.ResponseSuccess(w, "success", utilization)
}

// GetAuditHistory handles GET /api/hospitals/{id}/audit
// Query: resource_type, change_type, booking_id, from, to (RFC 3339), page, per_page.
func (h *QueryHandler) GetAuditHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.AuditHistoryRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), utils.DefaultPerPage),
		},
		ResourceType: query.Get("resource_type"),
		ChangeType:   query.Get("change_type"),
		BookingID:    query.Get("booking_id"),
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{{"from", &req.From}, {"to", &req.To}} {
		raw := query.Get(bound.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.ResponseBadRequest(w, "Invalid "+bound.name+" timestamp, expected RFC 3339", nil)
			return
		}
		*bound.dst = &t
	}

	history, err := h.service.GetAuditHistory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleServiceError(w, h.log, err, "get audit history")
		return
	}

	utils.ResponseSuccess(w, "success", history)
}
