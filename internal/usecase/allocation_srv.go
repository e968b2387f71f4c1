package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/internal/data/repository"
	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/cache"
	"hospital-booking/pkg/observability"
	"hospital-booking/pkg/retry"
	"hospital-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AllocationService is the only writer of inventory rows. Every operation
// runs in one transaction that also appends the matching audit entry.
type AllocationService interface {
	Reserve(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, units int, bookingID uuid.UUID, actor entity.Actor) (*entity.ResourceInventory, error)
	Release(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, units int, bookingID uuid.UUID, reason string, actor entity.Actor) (*entity.ResourceInventory, error)
	// ManualAdjust replaces the bucket values. proposed.Total is ignored; when
	// expectedTotal is non-nil it must equal the stored total.
	ManualAdjust(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, proposed entity.Counts, expectedTotal *int, actor entity.Actor, reason string) (*entity.ResourceInventory, error)
	Resize(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, newTotal int, actor entity.Actor, reason string) (*entity.ResourceInventory, error)
	Provision(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, total int, actor entity.Actor) (*entity.ResourceInventory, error)
	Decommission(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, actor entity.Actor, reason string) (*entity.ResourceInventory, error)

	// WithinKey serializes fn with every other writer of the inventory and
	// runs it in a transaction. fn may run more than once when a concurrent
	// writer in another process wins the version check, so it must only
	// touch storage through the AllocationTx it is given.
	WithinKey(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, op string, fn func(atx *AllocationTx) error) error

	// WithinHospital is WithinKey for several inventories of one hospital.
	// Every lock is held until the shared transaction commits.
	WithinHospital(ctx context.Context, hospitalID uuid.UUID, resourceTypes []entity.ResourceType, op string, fn func(htx *HospitalTx) error) error
}

type allocationService struct {
	repo        *repository.Repository
	cache       cache.Cache
	metrics     *observability.Metrics
	locks       *keyedLocks
	bucket      entity.Bucket
	lockTimeout time.Duration
	retry       retry.Config
	log         *zap.Logger
}

func NewAllocationService(repo *repository.Repository, c cache.Cache, metrics *observability.Metrics, config utils.AllocationConfig, log *zap.Logger) AllocationService {
	log = log.With(zap.String("service", "allocation"))

	bucket := entity.Bucket(config.Bucket)
	if bucket != entity.BucketOccupied && bucket != entity.BucketReserved {
		log.Warn("Unsupported allocation bucket, using occupied", zap.String("bucket", config.Bucket))
		bucket = entity.BucketOccupied
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = config.MaxAttempts
	if config.Backoff > 0 {
		retryCfg.InitialDelay = config.Backoff
		retryCfg.MaxDelay = 10 * config.Backoff
	}

	if c == nil {
		c = cache.Nop{}
	}

	return &allocationService{
		repo:        repo,
		cache:       c,
		metrics:     metrics,
		locks:       newKeyedLocks(),
		bucket:      bucket,
		lockTimeout: config.LockTimeout,
		retry:       retryCfg,
		log:         log,
	}
}

func inventoryLockKey(hospitalID uuid.UUID, resourceType entity.ResourceType) string {
	return "inventory:" + hospitalID.String() + ":" + string(resourceType)
}

func (s *allocationService) WithinKey(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, op string, fn func(atx *AllocationTx) error) error {
	return s.within(ctx, hospitalID, []entity.ResourceType{resourceType}, op, func(tx *repository.Repository) error {
		return fn(s.bind(tx, hospitalID, resourceType))
	})
}

func (s *allocationService) WithinHospital(ctx context.Context, hospitalID uuid.UUID, resourceTypes []entity.ResourceType, op string, fn func(htx *HospitalTx) error) error {
	return s.within(ctx, hospitalID, resourceTypes, op, func(tx *repository.Repository) error {
		htx := &HospitalTx{
			repo:        tx,
			inventories: make(map[entity.ResourceType]*AllocationTx, len(resourceTypes)),
		}
		for _, rt := range resourceTypes {
			htx.inventories[rt] = s.bind(tx, hospitalID, rt)
		}
		return fn(htx)
	})
}

func (s *allocationService) bind(tx *repository.Repository, hospitalID uuid.UUID, resourceType entity.ResourceType) *AllocationTx {
	return &AllocationTx{
		svc:          s,
		repo:         tx,
		hospitalID:   hospitalID,
		resourceType: resourceType,
	}
}

// within locks every inventory key, then runs fn in a transaction that is
// retried on version conflicts.
func (s *allocationService) within(ctx context.Context, hospitalID uuid.UUID, resourceTypes []entity.ResourceType, op string, fn func(tx *repository.Repository) error) (err error) {
	names := make([]string, 0, len(resourceTypes))
	keys := make([]string, 0, len(resourceTypes))
	for _, rt := range resourceTypes {
		names = append(names, string(rt))
		keys = append(keys, inventoryLockKey(hospitalID, rt))
	}

	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "allocation."+op,
		attribute.String("hospital.id", hospitalID.String()),
		attribute.StringSlice("resource.types", names),
	)
	defer func() {
		s.metrics.RecordAllocation(ctx, op, outcome(err), time.Since(started))
		observability.EndSpan(span, err)
	}()

	unlock, err := s.locks.acquireAll(ctx, keys, s.lockTimeout)
	if err != nil {
		s.log.Warn("Failed to acquire inventory lock",
			zap.Error(err),
			zap.String("op", op),
			zap.String("hospital_id", hospitalID.String()),
			zap.Strings("resource_types", names),
		)
		return err
	}
	defer unlock()

	err = retry.DoWithLog(ctx, s.retry, apperror.IsConflict, func() error {
		return s.repo.WithTx(ctx, fn)
	}, func(attempt int, err error, next time.Duration) {
		s.log.Warn("Inventory version conflict, retrying",
			zap.Error(err),
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", next),
		)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, hospitalID)
	return nil
}

// invalidate drops cached projections of the hospital. The query cache TTL
// bounds staleness if this fails.
func (s *allocationService) invalidate(ctx context.Context, hospitalID uuid.UUID) {
	if err := s.cache.Delete(context.WithoutCancel(ctx), availabilityCacheKey(hospitalID), utilizationCacheKey(hospitalID)); err != nil {
		s.log.Warn("Failed to invalidate query cache",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
		)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return strings.ToLower(string(apperror.TypeOf(err)))
}

func (s *allocationService) Reserve(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, units int, bookingID uuid.UUID, actor entity.Actor) (*entity.ResourceInventory, error) {
	var result *entity.ResourceInventory
	err := s.WithinKey(ctx, hospitalID, resourceType, "reserve", func(atx *AllocationTx) error {
		inv, err := atx.Reserve(ctx, units, bookingID, actor)
		result = inv
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *allocationService) Release(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, units int, bookingID uuid.UUID, reason string, actor entity.Actor) (*entity.ResourceInventory, error) {
	var result *entity.ResourceInventory
	err := s.WithinKey(ctx, hospitalID, resourceType, "release", func(atx *AllocationTx) error {
		inv, err := atx.Release(ctx, units, bookingID, reason, actor)
		result = inv
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *allocationService) ManualAdjust(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, proposed entity.Counts, expectedTotal *int, actor entity.Actor, reason string) (*entity.ResourceInventory, error) {
	var result *entity.ResourceInventory
	err := s.WithinKey(ctx, hospitalID, resourceType, "manual_adjust", func(atx *AllocationTx) error {
		current, err := atx.load(ctx)
		if err != nil {
			return err
		}

		if expectedTotal != nil && *expectedTotal != current.Total {
			return apperror.NewValidationError(
				"manual update cannot change total (%d -> %d); use a capacity resize", current.Total, *expectedTotal)
		}
		proposed.Total = current.Total
		if err := proposed.Validate(); err != nil {
			return err
		}

		result, err = atx.apply(ctx, current, current.DeltaTo(proposed), nil, auditDetails{
			changeType: entity.ChangeManualUpdate,
			actor:      actor,
			reason:     reason,
		})
		return err
	})
	if err != nil {
		s.log.Warn("Manual inventory update rejected",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
			zap.String("resource_type", string(resourceType)),
			zap.String("actor_id", actor.ID),
		)
		return nil, err
	}

	s.log.Info("Inventory manually updated",
		zap.String("hospital_id", hospitalID.String()),
		zap.String("resource_type", string(resourceType)),
		zap.String("actor_id", actor.ID),
		zap.Int64("version", result.Version),
	)
	return result, nil
}

func (s *allocationService) Resize(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, newTotal int, actor entity.Actor, reason string) (*entity.ResourceInventory, error) {
	if newTotal < 0 {
		return nil, apperror.NewValidationError("total must not be negative (got %d)", newTotal)
	}

	var result *entity.ResourceInventory
	err := s.WithinKey(ctx, hospitalID, resourceType, "resize", func(atx *AllocationTx) error {
		current, err := atx.load(ctx)
		if err != nil {
			return err
		}

		diff := newTotal - current.Total
		if current.Available+diff < 0 {
			return apperror.NewValidationError(
				"cannot shrink %s to %d: only %d units are available", resourceType, newTotal, current.Available)
		}

		total := newTotal
		result, err = atx.apply(ctx, current, entity.Delta{Available: diff}, &total, auditDetails{
			changeType: entity.ChangeCapacityResize,
			units:      diff,
			actor:      actor,
			reason:     reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Inventory capacity resized",
		zap.String("hospital_id", hospitalID.String()),
		zap.String("resource_type", string(resourceType)),
		zap.Int("total", result.Total),
	)
	return result, nil
}

func (s *allocationService) Provision(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, total int, actor entity.Actor) (*entity.ResourceInventory, error) {
	var result *entity.ResourceInventory
	err := s.WithinKey(ctx, hospitalID, resourceType, "provision", func(atx *AllocationTx) error {
		inv, err := atx.Provision(ctx, total, actor)
		result = inv
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *allocationService) Decommission(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, actor entity.Actor, reason string) (*entity.ResourceInventory, error) {
	var result *entity.ResourceInventory
	err := s.WithinKey(ctx, hospitalID, resourceType, "decommission", func(atx *AllocationTx) error {
		inv, err := atx.Decommission(ctx, actor, reason)
		result = inv
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AllocationTx is one inventory's view of an open transaction. It is only
// valid inside the WithinKey callback that created it.
type AllocationTx struct {
	svc          *allocationService
	repo         *repository.Repository
	hospitalID   uuid.UUID
	resourceType entity.ResourceType
}

// Repo returns repositories bound to the same transaction as the inventory
// write, for callers that persist related rows atomically with it.
func (t *AllocationTx) Repo() *repository.Repository {
	return t.repo
}

// HospitalTx is the view of one hospital's locked inventories inside an open
// transaction. It is only valid inside the WithinHospital callback.
type HospitalTx struct {
	repo        *repository.Repository
	inventories map[entity.ResourceType]*AllocationTx
}

func (h *HospitalTx) Repo() *repository.Repository {
	return h.repo
}

// Inventory returns the AllocationTx of a locked resource type, or nil when
// the type was not locked.
func (h *HospitalTx) Inventory(resourceType entity.ResourceType) *AllocationTx {
	return h.inventories[resourceType]
}

func (t *AllocationTx) load(ctx context.Context) (*entity.ResourceInventory, error) {
	inv, err := t.repo.Inventory.Get(ctx, t.hospitalID, t.resourceType)
	if err != nil {
		return nil, apperror.NewInternalError("load inventory", err)
	}
	if inv == nil {
		return nil, apperror.NewNotFoundError("hospital %s has no %s inventory", t.hospitalID, t.resourceType)
	}
	return inv, nil
}

type auditDetails struct {
	changeType entity.ChangeType
	units      int
	bucket     entity.Bucket
	actor      entity.Actor
	bookingID  *uuid.UUID
	reason     string
}

// apply writes delta against the version read in current and appends the
// audit entry. When total is non-nil the row's total changes as well.
func (t *AllocationTx) apply(ctx context.Context, current *entity.ResourceInventory, delta entity.Delta, total *int, details auditDetails) (*entity.ResourceInventory, error) {
	var (
		updated *entity.ResourceInventory
		err     error
	)
	if total != nil {
		updated, err = t.repo.Inventory.Resize(ctx, t.hospitalID, t.resourceType, *total, delta, current.Version)
	} else {
		updated, err = t.repo.Inventory.CompareAndApply(ctx, t.hospitalID, t.resourceType, delta, current.Version)
	}
	if err != nil {
		return nil, err
	}

	if err := t.appendAudit(ctx, current.Counts, updated.Counts, details); err != nil {
		return nil, err
	}
	return updated, nil
}

func (t *AllocationTx) appendAudit(ctx context.Context, previous, next entity.Counts, details auditDetails) error {
	entry := &entity.AuditLogEntry{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.Must(uuid.NewV7()),
			CreatedAt: time.Now().UTC(),
		},
		HospitalID:     t.hospitalID,
		ResourceType:   t.resourceType,
		ChangeType:     details.changeType,
		PreviousCounts: previous,
		NewCounts:      next,
		Units:          details.units,
		Bucket:         details.bucket,
		ActorID:        details.actor.ID,
		ActorRole:      details.actor.Role,
		BookingID:      details.bookingID,
		Reason:         details.reason,
	}

	if err := t.repo.Audit.Append(ctx, entry); err != nil {
		return apperror.NewInternalError(fmt.Sprintf("append %s audit entry", details.changeType), err)
	}
	return nil
}

// Reserve moves units from available into the configured allocation bucket
// on behalf of a booking.
func (t *AllocationTx) Reserve(ctx context.Context, units int, bookingID uuid.UUID, actor entity.Actor) (*entity.ResourceInventory, error) {
	if units < 1 {
		return nil, apperror.NewValidationError("units must be at least 1 (got %d)", units)
	}

	existing, err := t.repo.Audit.FindByBooking(ctx, bookingID, entity.ChangeBookingAllocation)
	if err != nil {
		return nil, apperror.NewInternalError("look up allocation", err)
	}
	if existing != nil {
		return nil, apperror.NewValidationError("booking %s already holds an allocation", bookingID)
	}

	current, err := t.load(ctx)
	if err != nil {
		return nil, err
	}

	if current.Available < units {
		t.svc.log.Warn("Insufficient resources",
			zap.String("hospital_id", t.hospitalID.String()),
			zap.String("resource_type", string(t.resourceType)),
			zap.Int("requested", units),
			zap.Int("available", current.Available),
		)
		return nil, apperror.NewInsufficientResourcesError(
			"requested %d %s but only %d available", units, t.resourceType, current.Available)
	}

	bucket := t.svc.bucket
	updated, err := t.apply(ctx, current, entity.Move(entity.BucketAvailable, bucket, units), nil, auditDetails{
		changeType: entity.ChangeBookingAllocation,
		units:      units,
		bucket:     bucket,
		actor:      actor,
		bookingID:  &bookingID,
	})
	if err != nil {
		return nil, err
	}

	t.svc.log.Info("Resources reserved",
		zap.String("hospital_id", t.hospitalID.String()),
		zap.String("resource_type", string(t.resourceType)),
		zap.String("booking_id", bookingID.String()),
		zap.Int("units", units),
		zap.Int("available", updated.Available),
	)
	return updated, nil
}

// Release returns a booking's units to available. A second release of the
// same booking returns the current inventory without writing anything.
func (t *AllocationTx) Release(ctx context.Context, units int, bookingID uuid.UUID, reason string, actor entity.Actor) (*entity.ResourceInventory, error) {
	allocation, err := t.repo.Audit.FindByBooking(ctx, bookingID, entity.ChangeBookingAllocation)
	if err != nil {
		return nil, apperror.NewInternalError("look up allocation", err)
	}
	if allocation == nil {
		return nil, apperror.NewValidationError("booking %s has no allocation to release", bookingID)
	}
	if allocation.HospitalID != t.hospitalID || allocation.ResourceType != t.resourceType {
		return nil, apperror.NewValidationError("booking %s was allocated %s at hospital %s",
			bookingID, allocation.ResourceType, allocation.HospitalID)
	}

	released, err := t.repo.Audit.FindByBooking(ctx, bookingID, entity.ChangeBookingRelease)
	if err != nil {
		return nil, apperror.NewInternalError("look up release", err)
	}
	if released != nil {
		t.svc.log.Debug("Release already applied",
			zap.String("booking_id", bookingID.String()),
			zap.String("release_id", released.ID.String()),
		)
		return t.load(ctx)
	}

	if units != allocation.Units {
		return nil, apperror.NewValidationError(
			"booking %s holds %d units, cannot release %d", bookingID, allocation.Units, units)
	}

	current, err := t.load(ctx)
	if err != nil {
		return nil, err
	}

	bucket := allocation.Bucket
	if bucket == "" {
		bucket = entity.BucketOccupied
	}

	updated, err := t.apply(ctx, current, entity.Move(bucket, entity.BucketAvailable, units), nil, auditDetails{
		changeType: entity.ChangeBookingRelease,
		units:      units,
		bucket:     bucket,
		actor:      actor,
		bookingID:  &bookingID,
		reason:     reason,
	})
	if err != nil {
		return nil, err
	}

	t.svc.log.Info("Resources released",
		zap.String("hospital_id", t.hospitalID.String()),
		zap.String("resource_type", string(t.resourceType)),
		zap.String("booking_id", bookingID.String()),
		zap.Int("units", units),
		zap.Int("available", updated.Available),
	)
	return updated, nil
}

// Provision creates the inventory row with every unit available.
func (t *AllocationTx) Provision(ctx context.Context, total int, actor entity.Actor) (*entity.ResourceInventory, error) {
	if total < 0 {
		return nil, apperror.NewValidationError("total must not be negative (got %d)", total)
	}

	existing, err := t.repo.Inventory.Get(ctx, t.hospitalID, t.resourceType)
	if err != nil {
		return nil, apperror.NewInternalError("load inventory", err)
	}
	if existing != nil {
		return nil, apperror.NewValidationError("hospital %s already has %s inventory", t.hospitalID, t.resourceType)
	}

	now := time.Now().UTC()
	inv := &entity.ResourceInventory{
		HospitalID:   t.hospitalID,
		ResourceType: t.resourceType,
		Counts:       entity.Counts{Total: total, Available: total},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.repo.Inventory.Create(ctx, inv); err != nil {
		return nil, err
	}

	if err := t.appendAudit(ctx, entity.Counts{}, inv.Counts, auditDetails{
		changeType: entity.ChangeApproval,
		units:      total,
		actor:      actor,
	}); err != nil {
		return nil, err
	}

	t.svc.log.Info("Inventory provisioned",
		zap.String("hospital_id", t.hospitalID.String()),
		zap.String("resource_type", string(t.resourceType)),
		zap.Int("total", total),
	)
	return inv, nil
}

// Decommission zeroes the inventory. It refuses while any booking still
// holds units.
func (t *AllocationTx) Decommission(ctx context.Context, actor entity.Actor, reason string) (*entity.ResourceInventory, error) {
	current, err := t.load(ctx)
	if err != nil {
		return nil, err
	}

	if current.Occupied > 0 || current.Reserved > 0 {
		return nil, apperror.NewValidationError(
			"cannot decommission %s: %d occupied and %d reserved units are still held",
			t.resourceType, current.Occupied, current.Reserved)
	}

	zero := 0
	delta := entity.Delta{Available: -current.Available, Maintenance: -current.Maintenance}
	updated, err := t.apply(ctx, current, delta, &zero, auditDetails{
		changeType: entity.ChangeDecline,
		units:      current.Total,
		actor:      actor,
		reason:     reason,
	})
	if err != nil {
		return nil, err
	}

	t.svc.log.Info("Inventory decommissioned",
		zap.String("hospital_id", t.hospitalID.String()),
		zap.String("resource_type", string(t.resourceType)),
	)
	return updated, nil
}
