package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) (*Repository, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop(), MemoryHooks{})

	now := time.Now().UTC()
	hospital := &entity.Hospital{
		Base:   entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:   "Harbor Hospital",
		Status: entity.HospitalStatusApproved,
	}
	require.NoError(t, repo.Hospital.Create(ctx, hospital))
	require.NoError(t, repo.Inventory.Create(ctx, &entity.ResourceInventory{
		HospitalID:   hospital.ID,
		ResourceType: entity.ResourceBeds,
		Counts:       entity.Counts{Total: 10, Available: 10},
		Version:      1,
	}))
	return repo, hospital.ID
}

func TestMemoryInventory_CompareAndApply(t *testing.T) {
	ctx := context.Background()
	repo, hid := newTestRepo(t)

	updated, err := repo.Inventory.CompareAndApply(ctx, hid, entity.ResourceBeds, entity.Move(entity.BucketAvailable, entity.BucketOccupied, 4), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.Counts{Total: 10, Available: 6, Occupied: 4}, updated.Counts)
	assert.Equal(t, int64(2), updated.Version)

	t.Run("stale version", func(t *testing.T) {
		_, err := repo.Inventory.CompareAndApply(ctx, hid, entity.ResourceBeds, entity.Move(entity.BucketAvailable, entity.BucketOccupied, 1), 1)
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("invalid result", func(t *testing.T) {
		_, err := repo.Inventory.CompareAndApply(ctx, hid, entity.ResourceBeds, entity.Move(entity.BucketAvailable, entity.BucketOccupied, 7), 2)
		assert.True(t, apperror.IsValidation(err))

		inv, err := repo.Inventory.Get(ctx, hid, entity.ResourceBeds)
		require.NoError(t, err)
		assert.Equal(t, int64(2), inv.Version)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := repo.Inventory.CompareAndApply(ctx, hid, entity.ResourceICU, entity.Delta{}, 1)
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestMemoryInventory_CreateRejectsInvalidCounts(t *testing.T) {
	repo, hid := newTestRepo(t)

	err := repo.Inventory.Create(context.Background(), &entity.ResourceInventory{
		HospitalID:   hid,
		ResourceType: entity.ResourceICU,
		Counts:       entity.Counts{Total: 2, Available: 3},
	})
	assert.True(t, apperror.IsValidation(err))

	err = repo.Inventory.Create(context.Background(), &entity.ResourceInventory{
		HospitalID:   hid,
		ResourceType: entity.ResourceBeds,
		Counts:       entity.Counts{Total: 1, Available: 1},
	})
	assert.True(t, apperror.IsConflict(err))
}

func TestMemoryRepository_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo, hid := newTestRepo(t)
	bookingID := uuid.New()

	errAbort := errors.New("abort")
	err := repo.WithTx(ctx, func(tx *Repository) error {
		if _, err := tx.Inventory.CompareAndApply(ctx, hid, entity.ResourceBeds, entity.Move(entity.BucketAvailable, entity.BucketOccupied, 2), 1); err != nil {
			return err
		}
		if err := tx.Audit.Append(ctx, &entity.AuditLogEntry{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Now()},
			HospitalID: hid,
			ChangeType: entity.ChangeBookingAllocation,
			BookingID:  &bookingID,
		}); err != nil {
			return err
		}

		// Nested calls join the open transaction.
		return tx.WithTx(ctx, func(inner *Repository) error {
			entry, err := inner.Audit.FindByBooking(ctx, bookingID, entity.ChangeBookingAllocation)
			require.NoError(t, err)
			require.NotNil(t, entry)
			return errAbort
		})
	})
	assert.ErrorIs(t, err, errAbort)

	inv, err := repo.Inventory.Get(ctx, hid, entity.ResourceBeds)
	require.NoError(t, err)
	assert.Equal(t, entity.Counts{Total: 10, Available: 10}, inv.Counts)
	assert.Equal(t, int64(1), inv.Version)

	entry, err := repo.Audit.FindByBooking(ctx, bookingID, entity.ChangeBookingAllocation)
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryRepository_WithTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	repo, hid := newTestRepo(t)

	assert.Panics(t, func() {
		_ = repo.WithTx(ctx, func(tx *Repository) error {
			_, err := tx.Inventory.CompareAndApply(ctx, hid, entity.ResourceBeds, entity.Move(entity.BucketAvailable, entity.BucketMaintenance, 1), 1)
			require.NoError(t, err)
			panic("boom")
		})
	})

	inv, err := repo.Inventory.Get(ctx, hid, entity.ResourceBeds)
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Maintenance)

	// The store is usable again after the panic.
	require.NoError(t, repo.WithTx(ctx, func(tx *Repository) error { return nil }))
}

func TestMemoryRepository_WithTxHonoursCancelledContext(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.WithTx(ctx, func(*Repository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryBooking_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	repo, hid := newTestRepo(t)

	seq, err := repo.Booking.NextReferenceSequence(ctx)
	require.NoError(t, err)
	booking := &entity.Booking{
		Base:             entity.Base{ID: uuid.New(), CreatedAt: time.Now()},
		BookingReference: "HB-20260101-000001",
		UserID:           uuid.New(),
		HospitalID:       hid,
		ResourceType:     entity.ResourceBeds,
		Units:            1,
		Status:           entity.BookingStatusPending,
	}
	assert.Equal(t, int64(1), seq)
	require.NoError(t, repo.Booking.Create(ctx, booking))

	dup := *booking
	dup.ID = uuid.New()
	assert.True(t, apperror.IsConflict(repo.Booking.Create(ctx, &dup)), "references are unique")

	next := *booking
	next.Status = entity.BookingStatusDeclined
	next.StatusReason = "full"
	require.NoError(t, repo.Booking.TransitionStatus(ctx, &next, entity.BookingStatusPending))

	again := *booking
	again.Status = entity.BookingStatusApproved
	assert.True(t, apperror.IsConflict(repo.Booking.TransitionStatus(ctx, &again, entity.BookingStatusPending)))

	stored, err := repo.Booking.FindByReference(ctx, booking.BookingReference)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusDeclined, stored.Status)
	assert.Equal(t, "full", stored.StatusReason)
}

func TestMemoryBooking_Listing(t *testing.T) {
	ctx := context.Background()
	repo, hid := newTestRepo(t)
	user := uuid.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range 5 {
		status := entity.BookingStatusPending
		if i%2 == 0 {
			status = entity.BookingStatusApproved
		}
		require.NoError(t, repo.Booking.Create(ctx, &entity.Booking{
			Base:             entity.Base{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Minute)},
			BookingReference: "HB-20260101-00000" + string(rune('1'+i)),
			UserID:           user,
			HospitalID:       hid,
			Status:           status,
		}))
	}

	first, err := repo.Booking.FindByUserID(ctx, user, 2, 0)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "HB-20260101-000005", first[0].BookingReference)
	assert.Equal(t, "HB-20260101-000004", first[1].BookingReference)

	rest, err := repo.Booking.FindByUserID(ctx, user, 2, 4)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "HB-20260101-000001", rest[0].BookingReference)

	count, err := repo.Booking.CountByUserID(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	approved, total, err := repo.Booking.FindByHospital(ctx, hid, entity.BookingStatusApproved, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, approved, 3)

	beyond, err := repo.Booking.FindByUserID(ctx, user, 10, 50)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryAudit_Query(t *testing.T) {
	ctx := context.Background()
	repo, hid := newTestRepo(t)
	other := uuid.New()
	bookingID := uuid.New()
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	entries := []entity.AuditLogEntry{
		{HospitalID: hid, ResourceType: entity.ResourceBeds, ChangeType: entity.ChangeApproval},
		{HospitalID: hid, ResourceType: entity.ResourceBeds, ChangeType: entity.ChangeBookingAllocation, BookingID: &bookingID},
		{HospitalID: hid, ResourceType: entity.ResourceICU, ChangeType: entity.ChangeManualUpdate},
		{HospitalID: other, ResourceType: entity.ResourceBeds, ChangeType: entity.ChangeApproval},
		{HospitalID: hid, ResourceType: entity.ResourceBeds, ChangeType: entity.ChangeBookingRelease, BookingID: &bookingID},
	}
	for i := range entries {
		entries[i].BaseSimple = entity.BaseSimple{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, repo.Audit.Append(ctx, &entries[i]))
	}

	all, total, err := repo.Audit.Query(ctx, hid, entity.AuditFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 4)
	assert.Equal(t, entity.ChangeBookingRelease, all[0].ChangeType)
	assert.Equal(t, entity.ChangeApproval, all[3].ChangeType)

	beds, total, err := repo.Audit.Query(ctx, hid, entity.AuditFilter{ResourceType: entity.ResourceBeds}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, beds, 2)

	from := base.Add(90 * time.Minute)
	to := base.Add(3 * time.Hour)
	window, _, err := repo.Audit.Query(ctx, hid, entity.AuditFilter{From: &from, To: &to}, 0, 0)
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, entity.ChangeManualUpdate, window[0].ChangeType)

	release, err := repo.Audit.FindByBooking(ctx, bookingID, entity.ChangeBookingRelease)
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.Equal(t, entries[4].ID, release.ID)
}

func TestMemoryAudit_HookFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(zap.NewNop(), MemoryHooks{
		BeforeAuditAppend: func(*entity.AuditLogEntry) error { return errors.New("unavailable") },
	})

	err := repo.Audit.Append(ctx, &entity.AuditLogEntry{HospitalID: uuid.New()})
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, page(items, 0, 0))
	assert.Equal(t, []int{3, 4}, page(items, 2, 2))
	assert.Equal(t, []int{5}, page(items, 10, 4))
	assert.Empty(t, page(items, 2, 5))
	assert.Equal(t, []int{1}, page(items, 1, -3))
}
