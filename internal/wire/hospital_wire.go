package wire

import (
	"hospital-booking/internal/adaptor"
	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireHospital(r chi.Router, hospitalHandler *adaptor.HospitalHandler, queryHandler *adaptor.QueryHandler, log *zap.Logger) {
	// Public reads
	r.Get("/api/hospitals/{id}", hospitalHandler.GetHospital)
	r.Get("/api/hospitals/{id}/availability", queryHandler.GetAvailability)
	r.Get("/api/hospitals/{id}/utilization", queryHandler.GetUtilization)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ActorContext(log))
		r.Use(middleware.RequireRole(log, entity.RoleHospitalAuthority, entity.RoleAdmin))

		r.Post("/api/hospitals", hospitalHandler.RegisterHospital)
		r.Get("/api/hospitals/{id}/audit", queryHandler.GetAuditHistory)
		r.Post("/api/hospitals/{id}/inventory", hospitalHandler.AddResourceType)
		r.Put("/api/hospitals/{id}/inventory/{resourceType}", hospitalHandler.UpdateInventory)
		r.Put("/api/hospitals/{id}/inventory/{resourceType}/capacity", hospitalHandler.ResizeCapacity)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ActorContext(log))
		r.Use(middleware.RequireRole(log, entity.RoleAdmin))

		r.Post("/api/hospitals/{id}/approve", hospitalHandler.ApproveHospital)
		r.Post("/api/hospitals/{id}/reject", hospitalHandler.RejectHospital)
	})
}
