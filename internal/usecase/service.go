package usecase

import (
	"hospital-booking/internal/data/repository"
	"hospital-booking/pkg/cache"
	"hospital-booking/pkg/observability"
	"hospital-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Allocation AllocationService
	Booking    BookingService
	Hospital   HospitalService
	Query      QueryService
}

func NewService(repo *repository.Repository, c cache.Cache, metrics *observability.Metrics, config *utils.Config, log *zap.Logger) *Service {
	allocation := NewAllocationService(repo, c, metrics, config.Allocation, log)
	quoter := NewRateTable(config.Pricing.HourlyRates)

	return &Service{
		Allocation: allocation,
		Booking:    NewBookingService(repo, allocation, quoter, log),
		Hospital:   NewHospitalService(repo, allocation, log),
		Query:      NewQueryService(repo, c, metrics, config.Query, log),
	}
}
