package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// InventoryRepository stores one row per (hospital, resource type). Writes
// are compare-and-set on Version; a stale expectedVersion yields a conflict
// error and nothing is written.
type InventoryRepository interface {
	Get(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType) (*entity.ResourceInventory, error)
	ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*entity.ResourceInventory, error)
	Create(ctx context.Context, inventory *entity.ResourceInventory) error
	CompareAndApply(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, delta entity.Delta, expectedVersion int64) (*entity.ResourceInventory, error)
	Resize(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, newTotal int, delta entity.Delta, expectedVersion int64) (*entity.ResourceInventory, error)
}

type inventoryRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewInventoryRepository(db database.Querier, log *zap.Logger) InventoryRepository {
	return &inventoryRepository{
		db:  db,
		log: log.With(zap.String("repository", "inventory")),
	}
}

const inventoryColumns = `hospital_id, resource_type, total, available, occupied, reserved, maintenance, version, created_at, updated_at`

func scanInventory(row pgx.Row) (*entity.ResourceInventory, error) {
	var inv entity.ResourceInventory
	err := row.Scan(
		&inv.HospitalID,
		&inv.ResourceType,
		&inv.Total,
		&inv.Available,
		&inv.Occupied,
		&inv.Reserved,
		&inv.Maintenance,
		&inv.Version,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *inventoryRepository) Get(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType) (*entity.ResourceInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM resource_inventories WHERE hospital_id = $1 AND resource_type = $2`

	inv, err := scanInventory(r.db.QueryRow(ctx, query, hospitalID, resourceType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to get inventory",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
			zap.String("resource_type", string(resourceType)),
		)
		return nil, fmt.Errorf("get inventory %s/%s: %w", hospitalID, resourceType, err)
	}

	return inv, nil
}

func (r *inventoryRepository) ListByHospital(ctx context.Context, hospitalID uuid.UUID) ([]*entity.ResourceInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM resource_inventories WHERE hospital_id = $1 ORDER BY resource_type`

	rows, err := r.db.Query(ctx, query, hospitalID)
	if err != nil {
		r.log.Error("Failed to list inventory",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
		)
		return nil, fmt.Errorf("list inventory for hospital %s: %w", hospitalID, err)
	}
	defer rows.Close()

	var inventories []*entity.ResourceInventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			r.log.Error("Failed to scan inventory row", zap.Error(err))
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		inventories = append(inventories, inv)
	}

	return inventories, rows.Err()
}

func (r *inventoryRepository) Create(ctx context.Context, inv *entity.ResourceInventory) error {
	if err := inv.Counts.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO resource_inventories (` + inventoryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		inv.HospitalID,
		inv.ResourceType,
		inv.Total,
		inv.Available,
		inv.Occupied,
		inv.Reserved,
		inv.Maintenance,
		inv.Version,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create inventory",
			zap.Error(err),
			zap.String("hospital_id", inv.HospitalID.String()),
			zap.String("resource_type", string(inv.ResourceType)),
		)
		return fmt.Errorf("create inventory %s/%s: %w", inv.HospitalID, inv.ResourceType,
			classifyPgError(err, "inventory "+string(inv.ResourceType)))
	}

	return nil
}

func (r *inventoryRepository) CompareAndApply(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, delta entity.Delta, expectedVersion int64) (*entity.ResourceInventory, error) {
	current, err := r.lockForUpdate(ctx, hospitalID, resourceType, expectedVersion)
	if err != nil {
		return nil, err
	}

	next, err := current.Counts.Apply(delta)
	if err != nil {
		return nil, err
	}

	return r.write(ctx, current, next, expectedVersion)
}

func (r *inventoryRepository) Resize(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, newTotal int, delta entity.Delta, expectedVersion int64) (*entity.ResourceInventory, error) {
	current, err := r.lockForUpdate(ctx, hospitalID, resourceType, expectedVersion)
	if err != nil {
		return nil, err
	}

	next, err := current.Counts.Resize(newTotal, delta)
	if err != nil {
		return nil, err
	}

	return r.write(ctx, current, next, expectedVersion)
}

// lockForUpdate row-locks the inventory for the rest of the transaction and
// checks the caller's version against it.
func (r *inventoryRepository) lockForUpdate(ctx context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, expectedVersion int64) (*entity.ResourceInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM resource_inventories WHERE hospital_id = $1 AND resource_type = $2 FOR UPDATE`

	current, err := scanInventory(r.db.QueryRow(ctx, query, hospitalID, resourceType))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewNotFoundError("inventory %s for hospital %s not found", resourceType, hospitalID)
	}
	if err != nil {
		r.log.Error("Failed to lock inventory",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
			zap.String("resource_type", string(resourceType)),
		)
		return nil, fmt.Errorf("lock inventory %s/%s: %w", hospitalID, resourceType, err)
	}

	if current.Version != expectedVersion {
		return nil, apperror.NewConflictError("inventory %s/%s is at version %d, expected %d",
			hospitalID, resourceType, current.Version, expectedVersion)
	}

	return current, nil
}

func (r *inventoryRepository) write(ctx context.Context, current *entity.ResourceInventory, next entity.Counts, expectedVersion int64) (*entity.ResourceInventory, error) {
	query := `
		UPDATE resource_inventories
		SET total = $3, available = $4, occupied = $5, reserved = $6, maintenance = $7,
		    version = version + 1, updated_at = $8
		WHERE hospital_id = $1 AND resource_type = $2 AND version = $9
		RETURNING ` + inventoryColumns

	updated, err := scanInventory(r.db.QueryRow(ctx, query,
		current.HospitalID,
		current.ResourceType,
		next.Total,
		next.Available,
		next.Occupied,
		next.Reserved,
		next.Maintenance,
		time.Now().UTC(),
		expectedVersion,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NewConflictError("inventory %s/%s changed concurrently", current.HospitalID, current.ResourceType)
	}
	if err != nil {
		r.log.Error("Failed to update inventory",
			zap.Error(err),
			zap.String("hospital_id", current.HospitalID.String()),
			zap.String("resource_type", string(current.ResourceType)),
			zap.Int64("expected_version", expectedVersion),
		)
		return nil, fmt.Errorf("update inventory %s/%s: %w", current.HospitalID, current.ResourceType,
			classifyPgError(err, "inventory"))
	}

	return updated, nil
}
