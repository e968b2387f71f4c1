package usecase

import (
	"context"
	"sync/atomic"
	"testing"

	"hospital-booking/internal/data/entity"
	"hospital-booking/internal/dto/request"
	"hospital-booking/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAndApprove(t *testing.T, f *fixture, capacities ...request.ResourceCapacity) string {
	t.Helper()
	ctx := context.Background()

	hospital, err := f.hospital.RegisterHospital(ctx, &request.RegisterHospitalRequest{Name: "City General"})
	require.NoError(t, err)
	assert.Equal(t, entity.HospitalStatusPending, hospital.Status)

	_, err = f.hospital.ApproveHospital(ctx, hospital.ID, adminActor, &request.ApproveHospitalRequest{Capacities: capacities})
	require.NoError(t, err)
	return hospital.ID
}

func TestHospitalService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id := registerAndApprove(t, f,
		request.ResourceCapacity{ResourceType: "beds", Total: 20},
		request.ResourceCapacity{ResourceType: "icu", Total: 4},
	)

	hospital, err := f.hospital.GetHospital(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.HospitalStatusApproved, hospital.Status)
	require.Len(t, hospital.Resources, 2)
	for _, r := range hospital.Resources {
		assert.Equal(t, r.Total, r.Available)
	}

	_, err = f.hospital.ApproveHospital(ctx, id, adminActor, &request.ApproveHospitalRequest{
		Capacities: []request.ResourceCapacity{{ResourceType: "beds", Total: 1}},
	})
	assert.True(t, apperror.IsInvalidTransition(err))

	hid := uuid.MustParse(id)
	approvals := f.auditEntries(t, hid, entity.AuditFilter{ChangeType: entity.ChangeApproval})
	assert.Len(t, approvals, 2)

	rejected, err := f.hospital.RejectHospital(ctx, id, adminActor, "license revoked")
	require.NoError(t, err)
	assert.Equal(t, entity.HospitalStatusRejected, rejected.Status)
	for _, r := range rejected.Resources {
		assert.Zero(t, r.Total)
	}
	assert.Len(t, f.auditEntries(t, hid, entity.AuditFilter{ChangeType: entity.ChangeDecline}), 2)

	_, err = f.hospital.RejectHospital(ctx, id, adminActor, "")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestHospitalService_ApproveValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hospital, err := f.hospital.RegisterHospital(ctx, &request.RegisterHospitalRequest{Name: "North Clinic"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *request.ApproveHospitalRequest
	}{
		{name: "no capacities", req: &request.ApproveHospitalRequest{}},
		{name: "negative total", req: &request.ApproveHospitalRequest{
			Capacities: []request.ResourceCapacity{{ResourceType: "beds", Total: -1}},
		}},
		{name: "unknown resource type", req: &request.ApproveHospitalRequest{
			Capacities: []request.ResourceCapacity{{ResourceType: "ambulances", Total: 2}},
		}},
		{name: "duplicate resource type", req: &request.ApproveHospitalRequest{
			Capacities: []request.ResourceCapacity{{ResourceType: "beds", Total: 2}, {ResourceType: "beds", Total: 3}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.hospital.ApproveHospital(ctx, hospital.ID, adminActor, tt.req)
			assert.True(t, apperror.IsValidation(err))
		})
	}

	got, err := f.hospital.GetHospital(ctx, hospital.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.HospitalStatusPending, got.Status)
	assert.Empty(t, got.Resources)
}

func TestHospitalService_RejectWithHeldUnits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := registerAndApprove(t, f, request.ResourceCapacity{ResourceType: "beds", Total: 3})
	hid := uuid.MustParse(id)

	f.approvedBooking(t, hid, entity.ResourceBeds, 1)

	_, err := f.hospital.RejectHospital(ctx, id, adminActor, "")
	assert.True(t, apperror.IsValidation(err))

	hospital, err := f.hospital.GetHospital(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.HospitalStatusApproved, hospital.Status)
}

func TestHospitalService_RejectIsAtomic(t *testing.T) {
	ctx := context.Background()
	var failAudit atomic.Bool
	f := newFixture(t, withHooks(repositoryHooksFailingAudit(&failAudit)))

	id := registerAndApprove(t, f,
		request.ResourceCapacity{ResourceType: "beds", Total: 3},
		request.ResourceCapacity{ResourceType: "icu", Total: 2},
	)
	hid := uuid.MustParse(id)
	pending := f.createBooking(t, hid, entity.ResourceBeds, 1)

	failAudit.Store(true)
	_, err := f.hospital.RejectHospital(ctx, id, adminActor, "license revoked")
	require.Error(t, err)

	hospital, err := f.hospital.GetHospital(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.HospitalStatusApproved, hospital.Status)
	assert.Equal(t, entity.Counts{Total: 3, Available: 3}, f.inventory(t, hid, entity.ResourceBeds).Counts)
	assert.Equal(t, entity.Counts{Total: 2, Available: 2}, f.inventory(t, hid, entity.ResourceICU).Counts)
	assert.Empty(t, f.auditEntries(t, hid, entity.AuditFilter{ChangeType: entity.ChangeDecline}))

	failAudit.Store(false)
	rejected, err := f.hospital.RejectHospital(ctx, id, adminActor, "license revoked")
	require.NoError(t, err)
	assert.Equal(t, entity.HospitalStatusRejected, rejected.Status)
	assert.Len(t, f.auditEntries(t, hid, entity.AuditFilter{ChangeType: entity.ChangeDecline}), 2)

	_, err = f.booking.ApproveBooking(ctx, pending.ID, authorityActor)
	assert.True(t, apperror.IsValidation(err))

	booking, err := f.booking.GetBookingByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
	assert.Empty(t, f.auditEntries(t, hid, entity.AuditFilter{ChangeType: entity.ChangeBookingAllocation}))
}

func TestHospitalService_Inventory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := registerAndApprove(t, f, request.ResourceCapacity{ResourceType: "beds", Total: 10})

	t.Run("add resource type", func(t *testing.T) {
		inv, err := f.hospital.AddResourceType(ctx, id, adminActor, &request.AddResourceRequest{ResourceType: "operationTheatres", Total: 2})
		require.NoError(t, err)
		assert.Equal(t, 2, inv.Available)

		_, err = f.hospital.AddResourceType(ctx, id, adminActor, &request.AddResourceRequest{ResourceType: "operationTheatres", Total: 2})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("manual update", func(t *testing.T) {
		inv, err := f.hospital.UpdateInventory(ctx, id, "beds", authorityActor, &request.ManualAdjustRequest{
			Available: 7, Occupied: 2, Maintenance: 1, Reason: "ward cleaning",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, inv.Maintenance)
		assert.Equal(t, 10, inv.Total)
	})

	t.Run("manual update with negative available", func(t *testing.T) {
		before := f.inventory(t, uuid.MustParse(id), entity.ResourceBeds)
		auditBefore := len(f.auditEntries(t, uuid.MustParse(id), entity.AuditFilter{}))

		_, err := f.hospital.UpdateInventory(ctx, id, "beds", authorityActor, &request.ManualAdjustRequest{
			Available: -1, Occupied: 11,
		})
		assert.True(t, apperror.IsValidation(err))

		assert.Equal(t, before.Counts, f.inventory(t, uuid.MustParse(id), entity.ResourceBeds).Counts)
		assert.Len(t, f.auditEntries(t, uuid.MustParse(id), entity.AuditFilter{}), auditBefore)
	})

	t.Run("manual update cannot change total", func(t *testing.T) {
		total := 12
		_, err := f.hospital.UpdateInventory(ctx, id, "beds", authorityActor, &request.ManualAdjustRequest{
			Total: &total, Available: 12,
		})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("manual update with explicit zero total", func(t *testing.T) {
		before := f.inventory(t, uuid.MustParse(id), entity.ResourceBeds)
		zero := 0
		_, err := f.hospital.UpdateInventory(ctx, id, "beds", authorityActor, &request.ManualAdjustRequest{
			Total: &zero,
		})
		assert.True(t, apperror.IsValidation(err))
		assert.Equal(t, before.Counts, f.inventory(t, uuid.MustParse(id), entity.ResourceBeds).Counts)
	})

	t.Run("resize", func(t *testing.T) {
		inv, err := f.hospital.ResizeCapacity(ctx, id, "beds", adminActor, &request.ResizeCapacityRequest{Total: 12})
		require.NoError(t, err)
		assert.Equal(t, 12, inv.Total)
		assert.Equal(t, 9, inv.Available)
	})

	t.Run("unknown resource type", func(t *testing.T) {
		_, err := f.hospital.ResizeCapacity(ctx, id, "helipads", adminActor, &request.ResizeCapacityRequest{Total: 1})
		assert.True(t, apperror.IsValidation(err))
	})

	t.Run("missing hospital", func(t *testing.T) {
		_, err := f.hospital.GetHospital(ctx, uuid.NewString())
		assert.True(t, apperror.IsNotFound(err))
	})
}
