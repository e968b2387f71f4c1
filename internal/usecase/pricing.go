package usecase

import (
	"context"
	"math"

	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/apperror"

	"github.com/google/uuid"
)

// Quoter prices an approved booking. Quotes are informational; a failing
// quoter never blocks an approval.
type Quoter interface {
	Quote(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, units, durationHours int) (float64, error)
}

// RateTable quotes from a flat hourly rate per resource type.
type RateTable map[entity.ResourceType]float64

func NewRateTable(hourlyRates map[string]float64) RateTable {
	table := make(RateTable, len(hourlyRates))
	for rt, rate := range hourlyRates {
		if rate > 0 {
			table[entity.ResourceType(rt)] = rate
		}
	}
	return table
}

func (t RateTable) Quote(_ context.Context, _ uuid.UUID, resourceType entity.ResourceType, units, durationHours int) (float64, error) {
	rate, ok := t[resourceType]
	if !ok {
		return 0, apperror.NewNotFoundError("no rate configured for %s", resourceType)
	}
	amount := rate * float64(units) * float64(durationHours)
	return math.Round(amount*100) / 100, nil
}
