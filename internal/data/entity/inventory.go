package entity

import (
	"math"
	"time"

	"hospital-booking/pkg/apperror"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceBeds              ResourceType = "beds"
	ResourceICU               ResourceType = "icu"
	ResourceOperationTheatres ResourceType = "operationTheatres"
)

var ResourceTypes = []ResourceType{ResourceBeds, ResourceICU, ResourceOperationTheatres}

func (t ResourceType) Valid() bool {
	for _, rt := range ResourceTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// Bucket names one of the mutable partitions of an inventory's total.
type Bucket string

const (
	BucketAvailable   Bucket = "available"
	BucketOccupied    Bucket = "occupied"
	BucketReserved    Bucket = "reserved"
	BucketMaintenance Bucket = "maintenance"
)

// Counts is a snapshot of one inventory row. The four buckets always sum to Total.
type Counts struct {
	Total       int `json:"total"`
	Available   int `json:"available"`
	Occupied    int `json:"occupied"`
	Reserved    int `json:"reserved"`
	Maintenance int `json:"maintenance"`
}

// Delta is a signed adjustment to the mutable buckets. Total is never part of a delta.
type Delta struct {
	Available   int
	Occupied    int
	Reserved    int
	Maintenance int
}

// Move builds a delta that moves units from one bucket to another.
func Move(from, to Bucket, units int) Delta {
	var d Delta
	d.add(from, -units)
	d.add(to, units)
	return d
}

func (d *Delta) add(b Bucket, units int) {
	switch b {
	case BucketAvailable:
		d.Available += units
	case BucketOccupied:
		d.Occupied += units
	case BucketReserved:
		d.Reserved += units
	case BucketMaintenance:
		d.Maintenance += units
	}
}

func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Get returns the count held in bucket b.
func (c Counts) Get(b Bucket) int {
	switch b {
	case BucketAvailable:
		return c.Available
	case BucketOccupied:
		return c.Occupied
	case BucketReserved:
		return c.Reserved
	case BucketMaintenance:
		return c.Maintenance
	}
	return 0
}

// Validate checks non-negativity and the conservation rule.
func (c Counts) Validate() error {
	switch {
	case c.Total < 0:
		return apperror.NewValidationError("total must not be negative (got %d)", c.Total)
	case c.Available < 0:
		return apperror.NewValidationError("available must not be negative (got %d)", c.Available)
	case c.Occupied < 0:
		return apperror.NewValidationError("occupied must not be negative (got %d)", c.Occupied)
	case c.Reserved < 0:
		return apperror.NewValidationError("reserved must not be negative (got %d)", c.Reserved)
	case c.Maintenance < 0:
		return apperror.NewValidationError("maintenance must not be negative (got %d)", c.Maintenance)
	}

	if sum := c.Available + c.Occupied + c.Reserved + c.Maintenance; sum != c.Total {
		return apperror.NewValidationError(
			"available + occupied + reserved + maintenance must equal total (%d != %d)", sum, c.Total)
	}
	return nil
}

// Apply returns the counts after d, or a validation error naming the broken rule.
func (c Counts) Apply(d Delta) (Counts, error) {
	next := Counts{
		Total:       c.Total,
		Available:   c.Available + d.Available,
		Occupied:    c.Occupied + d.Occupied,
		Reserved:    c.Reserved + d.Reserved,
		Maintenance: c.Maintenance + d.Maintenance,
	}
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// Resize returns the counts with a new total and d applied to the buckets.
func (c Counts) Resize(total int, d Delta) (Counts, error) {
	next := Counts{
		Total:       total,
		Available:   c.Available + d.Available,
		Occupied:    c.Occupied + d.Occupied,
		Reserved:    c.Reserved + d.Reserved,
		Maintenance: c.Maintenance + d.Maintenance,
	}
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

// DeltaTo returns the delta that turns c into target. Totals must match.
func (c Counts) DeltaTo(target Counts) Delta {
	return Delta{
		Available:   target.Available - c.Available,
		Occupied:    target.Occupied - c.Occupied,
		Reserved:    target.Reserved - c.Reserved,
		Maintenance: target.Maintenance - c.Maintenance,
	}
}

// Utilization is occupied/total as a percentage rounded to two decimals.
func (c Counts) Utilization() float64 {
	if c.Total == 0 {
		return 0
	}
	pct := float64(c.Occupied) * 100 / float64(c.Total)
	return math.Round(pct*100) / 100
}

// ResourceInventory is keyed by hospital and resource type. Version increases
// by one on every applied mutation and drives optimistic concurrency.
type ResourceInventory struct {
	HospitalID   uuid.UUID    `db:"hospital_id" json:"hospital_id"`
	ResourceType ResourceType `db:"resource_type" json:"resource_type"`
	Counts
	Version   int64     `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
