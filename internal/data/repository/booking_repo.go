package repository

import (
	"context"
	"errors"
	"fmt"

	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/apperror"
	"hospital-booking/pkg/database"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByReference(ctx context.Context, reference string) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	// FindByHospital lists bookings for a hospital, optionally filtered by
	// status, newest first, with the total matching count.
	FindByHospital(ctx context.Context, hospitalID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, int64, error)

	// TransitionStatus persists booking's status, quote and reason only if
	// the stored status is still from. Otherwise it returns a conflict error.
	TransitionStatus(ctx context.Context, booking *entity.Booking, from entity.BookingStatus) error
	NextReferenceSequence(ctx context.Context) (int64, error)
}

type bookingRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewBookingRepository(db database.Querier, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

var bookingColumns = []any{
	"id", "booking_reference", "user_id", "hospital_id", "resource_type", "units", "status",
	"urgency", "scheduled_date", "estimated_duration", "quoted_amount", "notes", "status_reason",
	"created_at", "updated_at",
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.BookingReference,
		&b.UserID,
		&b.HospitalID,
		&b.ResourceType,
		&b.Units,
		&b.Status,
		&b.Urgency,
		&b.ScheduledDate,
		&b.EstimatedDuration,
		&b.QuotedAmount,
		&b.Notes,
		&b.StatusReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, booking_reference, user_id, hospital_id, resource_type, units, status,
			urgency, scheduled_date, estimated_duration, quoted_amount, notes, status_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.BookingReference,
		booking.UserID,
		booking.HospitalID,
		booking.ResourceType,
		booking.Units,
		booking.Status,
		booking.Urgency,
		booking.ScheduledDate,
		booking.EstimatedDuration,
		booking.QuotedAmount,
		booking.Notes,
		booking.StatusReason,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_reference", booking.BookingReference),
			zap.String("user_id", booking.UserID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.BookingReference,
			classifyPgError(err, "booking "+booking.BookingReference))
	}

	return nil
}

func (r *bookingRepository) findOne(ctx context.Context, column string, value any) (*entity.Booking, error) {
	query, args, err := pgDialect.From("bookings").Prepared(true).
		Select(bookingColumns...).
		Where(goqu.Ex{column: value}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build booking lookup query: %w", err)
	}

	booking, err := scanBooking(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking",
			zap.Error(err),
			zap.String("column", column),
			zap.Any("value", value),
		)
		return nil, fmt.Errorf("find booking by %s %v: %w", column, value, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.findOne(ctx, "id", id)
}

func (r *bookingRepository) FindByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	return r.findOne(ctx, "booking_reference", reference)
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query, args, err := pgDialect.From("bookings").Prepared(true).
		Select(bookingColumns...).
		Where(goqu.Ex{"user_id": userID}).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build user bookings query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID, err)
	}

	return r.collect(rows)
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID, err)
	}

	return count, nil
}

func (r *bookingRepository) FindByHospital(ctx context.Context, hospitalID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, int64, error) {
	ds := pgDialect.From("bookings").Prepared(true).
		Where(goqu.Ex{"hospital_id": hospitalID})
	if status != "" {
		ds = ds.Where(goqu.Ex{"status": status})
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build hospital bookings count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		r.log.Error("Failed to count bookings by hospital",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
		)
		return nil, 0, fmt.Errorf("count bookings for hospital %s: %w", hospitalID, err)
	}

	listSQL, args, err := ds.Select(bookingColumns...).
		Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build hospital bookings query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		r.log.Error("Failed to find bookings by hospital",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
			zap.String("status", string(status)),
		)
		return nil, 0, fmt.Errorf("find bookings for hospital %s: %w", hospitalID, err)
	}

	bookings, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *bookingRepository) collect(rows pgx.Rows) ([]*entity.Booking, error) {
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) TransitionStatus(ctx context.Context, booking *entity.Booking, from entity.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $3, quoted_amount = $4, status_reason = $5, updated_at = $6
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.Exec(ctx, query,
		booking.ID,
		from,
		booking.Status,
		booking.QuotedAmount,
		booking.StatusReason,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("status", string(booking.Status)),
		)
		return fmt.Errorf("update booking %s status to %s: %w", booking.ID, booking.Status, err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConflictError("booking %s is no longer %s", booking.ID, from)
	}

	return nil
}

func (r *bookingRepository) NextReferenceSequence(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('booking_reference_seq')`).Scan(&seq); err != nil {
		r.log.Error("Failed to advance booking reference sequence", zap.Error(err))
		return 0, fmt.Errorf("next booking reference sequence: %w", err)
	}
	return seq, nil
}
