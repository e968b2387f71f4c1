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

type HospitalRepository interface {
	Create(ctx context.Context, hospital *entity.Hospital) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Hospital, error)
	// UpdateStatus moves the hospital from one status to another and fails
	// with a conflict if it is no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.HospitalStatus) error
}

type hospitalRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewHospitalRepository(db database.Querier, log *zap.Logger) HospitalRepository {
	return &hospitalRepository{
		db:  db,
		log: log.With(zap.String("repository", "hospital")),
	}
}

func (r *hospitalRepository) Create(ctx context.Context, hospital *entity.Hospital) error {
	query := `
		INSERT INTO hospitals (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		hospital.ID,
		hospital.Name,
		hospital.Status,
		hospital.CreatedAt,
		hospital.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create hospital",
			zap.Error(err),
			zap.String("hospital_id", hospital.ID.String()),
		)
		return fmt.Errorf("create hospital %s: %w", hospital.ID, classifyPgError(err, "hospital"))
	}

	return nil
}

func (r *hospitalRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Hospital, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM hospitals
		WHERE id = $1
	`

	var hospital entity.Hospital
	err := r.db.QueryRow(ctx, query, id).Scan(
		&hospital.ID,
		&hospital.Name,
		&hospital.Status,
		&hospital.CreatedAt,
		&hospital.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find hospital by ID",
			zap.Error(err),
			zap.String("hospital_id", id.String()),
		)
		return nil, fmt.Errorf("find hospital by ID %s: %w", id, err)
	}

	return &hospital, nil
}

func (r *hospitalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.HospitalStatus) error {
	query := `UPDATE hospitals SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		r.log.Error("Failed to update hospital status",
			zap.Error(err),
			zap.String("hospital_id", id.String()),
			zap.String("status", string(to)),
		)
		return fmt.Errorf("update hospital %s status to %s: %w", id, to, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConflictError("hospital %s is no longer %s", id, from)
	}

	return nil
}
