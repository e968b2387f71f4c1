package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/internal/data/repository"
	"hospital-booking/internal/dto/request"
	"hospital-booking/internal/dto/response"
	"hospital-booking/pkg/cache"
	"hospital-booking/pkg/observability"
	"hospital-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	adminActor     = entity.Actor{ID: "admin-1", Role: entity.RoleAdmin}
	authorityActor = entity.Actor{ID: "authority-1", Role: entity.RoleHospitalAuthority}
)

type fixture struct {
	repo       *repository.Repository
	cache      *cache.Memory
	allocation AllocationService
	booking    BookingService
	hospital   HospitalService
	query      QueryService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	hooks      repository.MemoryHooks
	allocation utils.AllocationConfig
	quoter     Quoter
	cacheTTL   time.Duration
}

func withHooks(hooks repository.MemoryHooks) fixtureOption {
	return func(c *fixtureConfig) { c.hooks = hooks }
}

func withBucket(bucket entity.Bucket) fixtureOption {
	return func(c *fixtureConfig) { c.allocation.Bucket = string(bucket) }
}

func withQuoter(q Quoter) fixtureOption {
	return func(c *fixtureConfig) { c.quoter = q }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	cfg := fixtureConfig{
		allocation: utils.AllocationConfig{
			Bucket:      string(entity.BucketOccupied),
			MaxAttempts: 3,
			LockTimeout: 2 * time.Second,
			Backoff:     time.Millisecond,
		},
		quoter:   RateTable{entity.ResourceBeds: 10, entity.ResourceICU: 50},
		cacheTTL: time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics, err := observability.InitMetrics()
	require.NoError(t, err)

	log := zap.NewNop()
	repo := repository.NewMemoryRepository(log, cfg.hooks)
	c := cache.NewMemory()
	allocation := NewAllocationService(repo, c, metrics, cfg.allocation, log)

	return &fixture{
		repo:       repo,
		cache:      c,
		allocation: allocation,
		booking:    NewBookingService(repo, allocation, cfg.quoter, log),
		hospital:   NewHospitalService(repo, allocation, log),
		query:      NewQueryService(repo, c, metrics, utils.QueryConfig{CacheTTL: cfg.cacheTTL}, log),
	}
}

// seedHospital stores an approved hospital with the given inventories,
// bypassing the engine so tests can start from any state.
func (f *fixture) seedHospital(t *testing.T, inventories map[entity.ResourceType]entity.Counts) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	hospital := &entity.Hospital{
		Base:   entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:   "St. Mary",
		Status: entity.HospitalStatusApproved,
	}
	require.NoError(t, f.repo.Hospital.Create(ctx, hospital))

	for rt, counts := range inventories {
		require.NoError(t, f.repo.Inventory.Create(ctx, &entity.ResourceInventory{
			HospitalID:   hospital.ID,
			ResourceType: rt,
			Counts:       counts,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}))
	}
	return hospital.ID
}

func (f *fixture) inventory(t *testing.T, hospitalID uuid.UUID, rt entity.ResourceType) *entity.ResourceInventory {
	t.Helper()
	inv, err := f.repo.Inventory.Get(context.Background(), hospitalID, rt)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func (f *fixture) auditEntries(t *testing.T, hospitalID uuid.UUID, filter entity.AuditFilter) []*entity.AuditLogEntry {
	t.Helper()
	entries, _, err := f.repo.Audit.Query(context.Background(), hospitalID, filter, 0, 0)
	require.NoError(t, err)
	return entries
}

func userActor() entity.Actor {
	return entity.Actor{ID: uuid.NewString(), Role: entity.RoleUser}
}

func (f *fixture) createBooking(t *testing.T, hospitalID uuid.UUID, rt entity.ResourceType, units int) *response.BookingResponse {
	t.Helper()
	booking, err := f.booking.CreateBooking(context.Background(), userActor(), &request.CreateBookingRequest{
		HospitalID:        hospitalID.String(),
		ResourceType:      string(rt),
		Units:             units,
		Urgency:           string(entity.UrgencyHigh),
		ScheduledDate:     time.Now().Add(24 * time.Hour),
		EstimatedDuration: 48,
	})
	require.NoError(t, err)
	return booking
}

func (f *fixture) approvedBooking(t *testing.T, hospitalID uuid.UUID, rt entity.ResourceType, units int) *response.BookingResponse {
	t.Helper()
	booking := f.createBooking(t, hospitalID, rt, units)
	approved, err := f.booking.ApproveBooking(context.Background(), booking.ID, authorityActor)
	require.NoError(t, err)
	return approved
}

func repositoryHooksFailingAudit(fail *atomic.Bool) repository.MemoryHooks {
	return repository.MemoryHooks{
		BeforeAuditAppend: func(*entity.AuditLogEntry) error {
			if fail.Load() {
				return errors.New("audit store unavailable")
			}
			return nil
		},
	}
}
