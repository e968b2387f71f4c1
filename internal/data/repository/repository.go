package repository

import (
	"context"
	"errors"

	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type Repository struct {
	Hospital  HospitalRepository
	Inventory InventoryRepository
	Booking   BookingRepository
	Audit     AuditRepository

	runTx func(ctx context.Context, fn func(tx *Repository) error) error
}

// WithTx runs fn against repositories bound to a single transaction. Every
// write made through tx commits together when fn returns nil and is rolled
// back otherwise. Calling WithTx on a transaction-bound Repository reuses
// the open transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.runTx(ctx, fn)
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newPostgresSet(db, log)
	repo.runTx = func(ctx context.Context, fn func(tx *Repository) error) error {
		return pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			txRepo := newPostgresSet(tx, log)
			txRepo.runTx = func(_ context.Context, fn func(tx *Repository) error) error {
				return fn(txRepo)
			}
			return fn(txRepo)
		})
	}
	return repo
}

func newPostgresSet(db database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		Hospital:  NewHospitalRepository(db, log),
		Inventory: NewInventoryRepository(db, log),
		Booking:   NewBookingRepository(db, log),
		Audit:     NewAuditRepository(db, log),
	}
}

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// classifyPgError turns constraint violations into typed errors so callers
// see a conflict or validation failure instead of a raw driver error.
func classifyPgError(err error, what string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewConflictError("%s already exists", what)
	case pgCheckViolation:
		return apperror.NewValidationError("%s violates constraint %s", what, pgErr.ConstraintName)
	}
	return err
}
