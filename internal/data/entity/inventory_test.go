package entity

import (
	"testing"

	"hospital-booking/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounts_Validate(t *testing.T) {
	tests := []struct {
		name    string
		counts  Counts
		wantErr string
	}{
		{name: "empty", counts: Counts{}},
		{name: "balanced", counts: Counts{Total: 10, Available: 2, Occupied: 5, Reserved: 2, Maintenance: 1}},
		{name: "negative total", counts: Counts{Total: -1}, wantErr: "total"},
		{name: "negative available", counts: Counts{Total: 10, Available: -1, Occupied: 11}, wantErr: "available"},
		{name: "negative maintenance", counts: Counts{Total: 0, Available: 1, Maintenance: -1}, wantErr: "maintenance"},
		{name: "sum above total", counts: Counts{Total: 5, Available: 3, Occupied: 3}, wantErr: "must equal total"},
		{name: "sum below total", counts: Counts{Total: 5, Available: 1}, wantErr: "must equal total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.counts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCounts_Apply(t *testing.T) {
	start := Counts{Total: 10, Available: 2, Occupied: 8}

	next, err := start.Apply(Move(BucketAvailable, BucketOccupied, 2))
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 10, Available: 0, Occupied: 10}, next)

	unchanged, err := start.Apply(Move(BucketAvailable, BucketOccupied, 3))
	require.Error(t, err)
	assert.Equal(t, start, unchanged)

	// A delta that does not net to zero breaks conservation.
	_, err = start.Apply(Delta{Available: 1})
	assert.Error(t, err)
}

func TestCounts_Resize(t *testing.T) {
	start := Counts{Total: 10, Available: 2, Occupied: 8}

	grown, err := start.Resize(12, Delta{Available: 2})
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 12, Available: 4, Occupied: 8}, grown)

	_, err = start.Resize(7, Delta{Available: -3})
	assert.Error(t, err)
}

func TestCounts_DeltaTo(t *testing.T) {
	from := Counts{Total: 6, Available: 3, Occupied: 3}
	to := Counts{Total: 6, Available: 1, Occupied: 3, Maintenance: 2}

	next, err := from.Apply(from.DeltaTo(to))
	require.NoError(t, err)
	assert.Equal(t, to, next)
}

func TestMove(t *testing.T) {
	assert.Equal(t, Delta{Available: 1, Reserved: -1}, Move(BucketReserved, BucketAvailable, 1))
	assert.True(t, Move(BucketOccupied, BucketOccupied, 3).IsZero())
}

func TestCounts_Utilization(t *testing.T) {
	assert.Equal(t, 0.0, Counts{}.Utilization())
	assert.Equal(t, 80.0, Counts{Total: 10, Available: 2, Occupied: 8}.Utilization())
	assert.Equal(t, 33.33, Counts{Total: 3, Available: 2, Occupied: 1}.Utilization())
}

func TestResourceType_Valid(t *testing.T) {
	for _, rt := range ResourceTypes {
		assert.True(t, rt.Valid(), rt)
	}
	assert.False(t, ResourceType("ventilators").Valid())
}

func TestHospitalStatus_CanMoveTo(t *testing.T) {
	assert.True(t, HospitalStatusPending.CanMoveTo(HospitalStatusApproved))
	assert.True(t, HospitalStatusPending.CanMoveTo(HospitalStatusRejected))
	assert.True(t, HospitalStatusApproved.CanMoveTo(HospitalStatusRejected))
	assert.False(t, HospitalStatusApproved.CanMoveTo(HospitalStatusApproved))
	assert.False(t, HospitalStatusRejected.CanMoveTo(HospitalStatusApproved))
}
