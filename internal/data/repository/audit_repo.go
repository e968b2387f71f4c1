package repository

import (
	"context"
	"errors"
	"fmt"

	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/database"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditLogEntry) error
	// Query returns entries newest first together with the total number of
	// entries matching filter.
	Query(ctx context.Context, hospitalID uuid.UUID, filter entity.AuditFilter, limit, offset int) ([]*entity.AuditLogEntry, int64, error)
	// FindByBooking returns the most recent entry of the given change type
	// recorded for a booking, or nil.
	FindByBooking(ctx context.Context, bookingID uuid.UUID, changeType entity.ChangeType) (*entity.AuditLogEntry, error)
}

type auditRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewAuditRepository(db database.Querier, log *zap.Logger) AuditRepository {
	return &auditRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit")),
	}
}

var pgDialect = goqu.Dialect("postgres")

var auditColumns = []any{
	"id", "hospital_id", "resource_type", "change_type", "previous_counts", "new_counts",
	"units", "bucket", "actor_id", "actor_role", "booking_id", "reason", "created_at",
}

func scanAuditEntry(row pgx.Row) (*entity.AuditLogEntry, error) {
	var e entity.AuditLogEntry
	err := row.Scan(
		&e.ID,
		&e.HospitalID,
		&e.ResourceType,
		&e.ChangeType,
		&e.PreviousCounts,
		&e.NewCounts,
		&e.Units,
		&e.Bucket,
		&e.ActorID,
		&e.ActorRole,
		&e.BookingID,
		&e.Reason,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *auditRepository) Append(ctx context.Context, entry *entity.AuditLogEntry) error {
	query := `
		INSERT INTO inventory_audit_logs
			(id, hospital_id, resource_type, change_type, previous_counts, new_counts,
			 units, bucket, actor_id, actor_role, booking_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.HospitalID,
		entry.ResourceType,
		entry.ChangeType,
		entry.PreviousCounts,
		entry.NewCounts,
		entry.Units,
		entry.Bucket,
		entry.ActorID,
		entry.ActorRole,
		entry.BookingID,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to append audit entry",
			zap.Error(err),
			zap.String("hospital_id", entry.HospitalID.String()),
			zap.String("change_type", string(entry.ChangeType)),
		)
		return fmt.Errorf("append audit entry %s: %w", entry.ChangeType, err)
	}

	return nil
}

func (r *auditRepository) Query(ctx context.Context, hospitalID uuid.UUID, filter entity.AuditFilter, limit, offset int) ([]*entity.AuditLogEntry, int64, error) {
	ds := pgDialect.From("inventory_audit_logs").Prepared(true).
		Where(goqu.Ex{"hospital_id": hospitalID})

	if filter.ResourceType != "" {
		ds = ds.Where(goqu.Ex{"resource_type": filter.ResourceType})
	}
	if filter.ChangeType != "" {
		ds = ds.Where(goqu.Ex{"change_type": filter.ChangeType})
	}
	if filter.BookingID != nil {
		ds = ds.Where(goqu.Ex{"booking_id": *filter.BookingID})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("created_at").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("created_at").Lte(*filter.To))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit count query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		r.log.Error("Failed to count audit entries",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
		)
		return nil, 0, fmt.Errorf("count audit entries for hospital %s: %w", hospitalID, err)
	}

	listDS := ds.Select(auditColumns...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc())
	if limit > 0 {
		listDS = listDS.Limit(uint(limit))
	}
	if offset > 0 {
		listDS = listDS.Offset(uint(offset))
	}

	listSQL, args, err := listDS.ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build audit list query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		r.log.Error("Failed to query audit entries",
			zap.Error(err),
			zap.String("hospital_id", hospitalID.String()),
		)
		return nil, 0, fmt.Errorf("query audit entries for hospital %s: %w", hospitalID, err)
	}
	defer rows.Close()

	var entries []*entity.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			r.log.Error("Failed to scan audit row", zap.Error(err))
			return nil, 0, fmt.Errorf("scan audit row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate audit rows: %w", err)
	}

	return entries, total, nil
}

func (r *auditRepository) FindByBooking(ctx context.Context, bookingID uuid.UUID, changeType entity.ChangeType) (*entity.AuditLogEntry, error) {
	query, args, err := pgDialect.From("inventory_audit_logs").Prepared(true).
		Select(auditColumns...).
		Where(goqu.Ex{"booking_id": bookingID, "change_type": changeType}).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build audit lookup query: %w", err)
	}

	entry, err := scanAuditEntry(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find audit entry by booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("change_type", string(changeType)),
		)
		return nil, fmt.Errorf("find %s entry for booking %s: %w", changeType, bookingID, err)
	}

	return entry, nil
}
