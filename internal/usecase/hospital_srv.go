package usecase

import (
	"context"
	"fmt"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/internal/data/repository"
	"hospital-booking/internal/dto/request"
	"hospital-booking/internal/dto/response"
	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type HospitalService interface {
	RegisterHospital(ctx context.Context, req *request.RegisterHospitalRequest) (*response.HospitalResponse, error)
	ApproveHospital(ctx context.Context, hospitalID string, actor entity.Actor, req *request.ApproveHospitalRequest) (*response.HospitalResponse, error)
	RejectHospital(ctx context.Context, hospitalID string, actor entity.Actor, reason string) (*response.HospitalResponse, error)
	AddResourceType(ctx context.Context, hospitalID string, actor entity.Actor, req *request.AddResourceRequest) (*response.InventoryResponse, error)
	UpdateInventory(ctx context.Context, hospitalID, resourceType string, actor entity.Actor, req *request.ManualAdjustRequest) (*response.InventoryResponse, error)
	ResizeCapacity(ctx context.Context, hospitalID, resourceType string, actor entity.Actor, req *request.ResizeCapacityRequest) (*response.InventoryResponse, error)
	GetHospital(ctx context.Context, hospitalID string) (*response.HospitalResponse, error)
}

type hospitalService struct {
	repo       *repository.Repository
	allocation AllocationService
	log        *zap.Logger
}

func NewHospitalService(repo *repository.Repository, allocation AllocationService, log *zap.Logger) HospitalService {
	return &hospitalService{
		repo:       repo,
		allocation: allocation,
		log:        log.With(zap.String("service", "hospital")),
	}
}

func (s *hospitalService) RegisterHospital(ctx context.Context, req *request.RegisterHospitalRequest) (*response.HospitalResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	now := time.Now().UTC()
	hospital := &entity.Hospital{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:   req.Name,
		Status: entity.HospitalStatusPending,
	}

	if err := s.repo.Hospital.Create(ctx, hospital); err != nil {
		return nil, fmt.Errorf("register hospital: %w", err)
	}

	s.log.Info("Hospital registered",
		zap.String("hospital_id", hospital.ID.String()),
		zap.String("name", hospital.Name),
	)

	resp := response.HospitalToResponse(hospital, nil)
	return &resp, nil
}

func (s *hospitalService) find(ctx context.Context, hospitalID string) (*entity.Hospital, error) {
	id, err := parseID("hospital", hospitalID)
	if err != nil {
		return nil, err
	}

	hospital, err := s.repo.Hospital.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get hospital: %w", err)
	}
	if hospital == nil {
		return nil, apperror.NewNotFoundError("hospital %s not found", id)
	}
	return hospital, nil
}

// ApproveHospital opens the hospital for bookings and provisions one
// inventory row per requested capacity. Capacities that already exist are
// left untouched.
func (s *hospitalService) ApproveHospital(ctx context.Context, hospitalID string, actor entity.Actor, req *request.ApproveHospitalRequest) (*response.HospitalResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	hospital, err := s.find(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if !hospital.Status.CanMoveTo(entity.HospitalStatusApproved) {
		return nil, apperror.NewInvalidTransitionError("hospital %s is %s and cannot be approved", hospital.Name, hospital.Status)
	}

	seen := make(map[string]bool, len(req.Capacities))
	for _, c := range req.Capacities {
		if seen[c.ResourceType] {
			return nil, apperror.NewValidationError("capacity for %s given more than once", c.ResourceType)
		}
		seen[c.ResourceType] = true
	}

	if err := s.repo.Hospital.UpdateStatus(ctx, hospital.ID, hospital.Status, entity.HospitalStatusApproved); err != nil {
		return nil, err
	}

	for _, c := range req.Capacities {
		_, err := s.allocation.Provision(ctx, hospital.ID, entity.ResourceType(c.ResourceType), c.Total, actor)
		if err != nil && !apperror.IsValidation(err) {
			s.log.Error("Failed to provision inventory",
				zap.Error(err),
				zap.String("hospital_id", hospital.ID.String()),
				zap.String("resource_type", c.ResourceType),
			)
			return nil, err
		}
	}

	s.log.Info("Hospital approved",
		zap.String("hospital_id", hospital.ID.String()),
		zap.String("actor_id", actor.ID),
		zap.Int("resource_types", len(req.Capacities)),
	)

	return s.GetHospital(ctx, hospitalID)
}

// RejectHospital takes the hospital offline and zeroes its inventory in one
// transaction. It fails, changing nothing, while any resource type still has
// units held by bookings.
func (s *hospitalService) RejectHospital(ctx context.Context, hospitalID string, actor entity.Actor, reason string) (*response.HospitalResponse, error) {
	hospital, err := s.find(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if !hospital.Status.CanMoveTo(entity.HospitalStatusRejected) {
		return nil, apperror.NewInvalidTransitionError("hospital %s is %s and cannot be rejected", hospital.Name, hospital.Status)
	}

	inventories, err := s.repo.Inventory.ListByHospital(ctx, hospital.ID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	resourceTypes := make([]entity.ResourceType, 0, len(inventories))
	for _, inv := range inventories {
		resourceTypes = append(resourceTypes, inv.ResourceType)
	}

	err = s.allocation.WithinHospital(ctx, hospital.ID, resourceTypes, "reject", func(htx *HospitalTx) error {
		current, err := htx.Repo().Hospital.FindByID(ctx, hospital.ID)
		if err != nil {
			return apperror.NewInternalError("load hospital", err)
		}
		if current == nil {
			return apperror.NewNotFoundError("hospital %s not found", hospital.ID)
		}
		if !current.Status.CanMoveTo(entity.HospitalStatusRejected) {
			return apperror.NewInvalidTransitionError("hospital %s is %s and cannot be rejected", current.Name, current.Status)
		}

		live, err := htx.Repo().Inventory.ListByHospital(ctx, hospital.ID)
		if err != nil {
			return apperror.NewInternalError("list inventory", err)
		}
		for _, inv := range live {
			atx := htx.Inventory(inv.ResourceType)
			if atx == nil {
				return apperror.NewConflictError("hospital %s gained %s inventory while being rejected", current.Name, inv.ResourceType)
			}
			if _, err := atx.Decommission(ctx, actor, reason); err != nil {
				return err
			}
		}

		return htx.Repo().Hospital.UpdateStatus(ctx, hospital.ID, current.Status, entity.HospitalStatusRejected)
	})
	if err != nil {
		s.log.Warn("Hospital rejection rolled back",
			zap.Error(err),
			zap.String("hospital_id", hospital.ID.String()),
			zap.String("actor_id", actor.ID),
		)
		return nil, err
	}

	s.log.Info("Hospital rejected",
		zap.String("hospital_id", hospital.ID.String()),
		zap.String("actor_id", actor.ID),
		zap.String("reason", reason),
	)

	return s.GetHospital(ctx, hospitalID)
}

func (s *hospitalService) AddResourceType(ctx context.Context, hospitalID string, actor entity.Actor, req *request.AddResourceRequest) (*response.InventoryResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	hospital, err := s.find(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if hospital.Status != entity.HospitalStatusApproved {
		return nil, apperror.NewValidationError("hospital %s is %s; only approved hospitals hold inventory", hospital.Name, hospital.Status)
	}

	inv, err := s.allocation.Provision(ctx, hospital.ID, entity.ResourceType(req.ResourceType), req.Total, actor)
	if err != nil {
		return nil, err
	}

	resp := response.InventoryToResponse(inv)
	return &resp, nil
}

func (s *hospitalService) UpdateInventory(ctx context.Context, hospitalID, resourceType string, actor entity.Actor, req *request.ManualAdjustRequest) (*response.InventoryResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, rt, err := parseInventoryKey(hospitalID, resourceType)
	if err != nil {
		return nil, err
	}

	proposed := entity.Counts{
		Available:   req.Available,
		Occupied:    req.Occupied,
		Reserved:    req.Reserved,
		Maintenance: req.Maintenance,
	}

	inv, err := s.allocation.ManualAdjust(ctx, id, rt, proposed, req.Total, actor, req.Reason)
	if err != nil {
		return nil, err
	}

	resp := response.InventoryToResponse(inv)
	return &resp, nil
}

func (s *hospitalService) ResizeCapacity(ctx context.Context, hospitalID, resourceType string, actor entity.Actor, req *request.ResizeCapacityRequest) (*response.InventoryResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.NewValidationError("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	id, rt, err := parseInventoryKey(hospitalID, resourceType)
	if err != nil {
		return nil, err
	}

	inv, err := s.allocation.Resize(ctx, id, rt, req.Total, actor, req.Reason)
	if err != nil {
		return nil, err
	}

	resp := response.InventoryToResponse(inv)
	return &resp, nil
}

func (s *hospitalService) GetHospital(ctx context.Context, hospitalID string) (*response.HospitalResponse, error) {
	hospital, err := s.find(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	inventories, err := s.repo.Inventory.ListByHospital(ctx, hospital.ID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}

	resp := response.HospitalToResponse(hospital, inventories)
	return &resp, nil
}

func parseInventoryKey(hospitalID, resourceType string) (uuid.UUID, entity.ResourceType, error) {
	id, err := parseID("hospital", hospitalID)
	if err != nil {
		return uuid.Nil, "", err
	}
	rt := entity.ResourceType(resourceType)
	if !rt.Valid() {
		return uuid.Nil, "", apperror.NewValidationError("unknown resource type %q", resourceType)
	}
	return id, rt, nil
}
