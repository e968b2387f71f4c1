package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/internal/data/repository"
	"hospital-booking/internal/dto/request"
	"hospital-booking/internal/dto/response"
	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/cache"
	"hospital-booking/pkg/observability"
	"hospital-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueryService serves read-only projections. Availability and utilization
// may be up to the configured cache TTL stale.
type QueryService interface {
	GetAvailability(ctx context.Context, hospitalID string) (*response.AvailabilityResponse, error)
	GetUtilization(ctx context.Context, hospitalID string) (*response.UtilizationResponse, error)
	GetAuditHistory(ctx context.Context, hospitalID string, req *request.AuditHistoryRequest) (*response.PaginatedResponse[response.AuditEntryResponse], error)
}

type queryService struct {
	repo    *repository.Repository
	cache   cache.Cache
	ttl     time.Duration
	metrics *observability.Metrics
	log     *zap.Logger
}

func NewQueryService(repo *repository.Repository, c cache.Cache, metrics *observability.Metrics, config utils.QueryConfig, log *zap.Logger) QueryService {
	if c == nil || config.CacheTTL <= 0 {
		c = cache.Nop{}
	}
	return &queryService{
		repo:    repo,
		cache:   c,
		ttl:     config.CacheTTL,
		metrics: metrics,
		log:     log.With(zap.String("service", "query")),
	}
}

func availabilityCacheKey(hospitalID uuid.UUID) string {
	return "availability:" + hospitalID.String()
}

func utilizationCacheKey(hospitalID uuid.UUID) string {
	return "utilization:" + hospitalID.String()
}

// cached returns the value stored under key, or computes, stores and
// returns it. Cache errors degrade to a storage read.
func cached[T any](ctx context.Context, s *queryService, kind, key string, load func() (*T, error)) (*T, error) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn("Query cache read failed", zap.Error(err), zap.String("key", key))
	}
	if ok {
		var value T
		if err := json.Unmarshal(raw, &value); err == nil {
			s.metrics.RecordCacheHit(ctx, kind)
			return &value, nil
		}
		s.log.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}
	s.metrics.RecordCacheMiss(ctx, kind)

	value, err := load()
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(value); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.log.Warn("Query cache write failed", zap.Error(err), zap.String("key", key))
		}
	}
	return value, nil
}

func (s *queryService) inventories(ctx context.Context, hospitalID uuid.UUID) ([]*entity.ResourceInventory, error) {
	hospital, err := s.repo.Hospital.FindByID(ctx, hospitalID)
	if err != nil {
		return nil, fmt.Errorf("get hospital: %w", err)
	}
	if hospital == nil {
		return nil, apperror.NewNotFoundError("hospital %s not found", hospitalID)
	}

	inventories, err := s.repo.Inventory.ListByHospital(ctx, hospitalID)
	if err != nil {
		s.log.Error("Failed to list inventory",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
		)
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return inventories, nil
}

func (s *queryService) GetAvailability(ctx context.Context, hospitalID string) (*response.AvailabilityResponse, error) {
	id, err := parseID("hospital", hospitalID)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, "availability", availabilityCacheKey(id), func() (*response.AvailabilityResponse, error) {
		inventories, err := s.inventories(ctx, id)
		if err != nil {
			return nil, err
		}

		resp := &response.AvailabilityResponse{
			HospitalID:  id.String(),
			Resources:   make([]response.InventoryResponse, 0, len(inventories)),
			GeneratedAt: time.Now().UTC(),
		}
		for _, inv := range inventories {
			resp.Resources = append(resp.Resources, response.InventoryToResponse(inv))
		}
		return resp, nil
	})
}

func (s *queryService) GetUtilization(ctx context.Context, hospitalID string) (*response.UtilizationResponse, error) {
	id, err := parseID("hospital", hospitalID)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, "utilization", utilizationCacheKey(id), func() (*response.UtilizationResponse, error) {
		inventories, err := s.inventories(ctx, id)
		if err != nil {
			return nil, err
		}

		resp := &response.UtilizationResponse{
			HospitalID:  id.String(),
			Resources:   make([]response.ResourceUtilization, 0, len(inventories)),
			GeneratedAt: time.Now().UTC(),
		}
		for _, inv := range inventories {
			resp.Resources = append(resp.Resources, response.ResourceUtilization{
				ResourceType:   inv.ResourceType,
				Total:          inv.Total,
				Occupied:       inv.Occupied,
				UtilizationPct: inv.Utilization(),
			})
		}
		return resp, nil
	})
}

func (s *queryService) GetAuditHistory(ctx context.Context, hospitalID string, req *request.AuditHistoryRequest) (*response.PaginatedResponse[response.AuditEntryResponse], error) {
	req.Normalize()
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, err := parseID("hospital", hospitalID)
	if err != nil {
		return nil, err
	}

	filter := entity.AuditFilter{
		ResourceType: entity.ResourceType(req.ResourceType),
		ChangeType:   entity.ChangeType(req.ChangeType),
		From:         req.From,
		To:           req.To,
	}
	if req.BookingID != "" {
		bookingID, err := parseID("booking", req.BookingID)
		if err != nil {
			return nil, err
		}
		filter.BookingID = &bookingID
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperror.NewValidationError("to must not be before from")
	}

	entries, total, err := s.repo.Audit.Query(ctx, id, filter, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to query audit history",
			zap.Error(err),
			zap.String("hospital_id", hospitalID),
		)
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	data := make([]response.AuditEntryResponse, len(entries))
	for i, e := range entries {
		data[i] = response.AuditEntryToResponse(e)
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}
