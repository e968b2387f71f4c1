package database

import (
	"context"
	"fmt"
)

// Migrate creates the tables the booking engine needs. Statements are
// idempotent so it is safe to run on every start.
func Migrate(ctx context.Context, db Querier) error {
	statements := []string{
		createHospitalsTable,
		createInventoriesTable,
		createBookingsTable,
		createBookingReferenceSequence,
		createAuditLogsTable,
		createAuditImmutableTrigger,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}

	return nil
}

const createHospitalsTable = `
CREATE TABLE IF NOT EXISTS hospitals (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);`

// The CHECK constraints repeat the conservation rule so a bad write fails
// in the database as well as in the engine.
const createInventoriesTable = `
CREATE TABLE IF NOT EXISTS resource_inventories (
	hospital_id    UUID NOT NULL REFERENCES hospitals(id),
	resource_type  TEXT NOT NULL CHECK (resource_type IN ('beds', 'icu', 'operationTheatres')),
	total          INTEGER NOT NULL CHECK (total >= 0),
	available      INTEGER NOT NULL CHECK (available >= 0),
	occupied       INTEGER NOT NULL CHECK (occupied >= 0),
	reserved       INTEGER NOT NULL CHECK (reserved >= 0),
	maintenance    INTEGER NOT NULL CHECK (maintenance >= 0),
	version        BIGINT NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (hospital_id, resource_type),
	CONSTRAINT inventory_conservation CHECK (available + occupied + reserved + maintenance = total)
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
	id                  UUID PRIMARY KEY,
	booking_reference   TEXT NOT NULL UNIQUE,
	user_id             UUID NOT NULL,
	hospital_id         UUID NOT NULL REFERENCES hospitals(id),
	resource_type       TEXT NOT NULL,
	units               INTEGER NOT NULL CHECK (units > 0),
	status              TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'declined', 'cancelled', 'completed')),
	urgency             TEXT NOT NULL,
	scheduled_date      TIMESTAMPTZ NOT NULL,
	estimated_duration  INTEGER NOT NULL CHECK (estimated_duration > 0),
	quoted_amount       NUMERIC(12, 2),
	notes               TEXT NOT NULL DEFAULT '',
	status_reason       TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL,
	updated_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bookings_hospital ON bookings (hospital_id, status, created_at DESC);`

const createBookingReferenceSequence = `
CREATE SEQUENCE IF NOT EXISTS booking_reference_seq START 1;`

const createAuditLogsTable = `
CREATE TABLE IF NOT EXISTS inventory_audit_logs (
	id               UUID PRIMARY KEY,
	hospital_id      UUID NOT NULL,
	resource_type    TEXT NOT NULL,
	change_type      TEXT NOT NULL,
	previous_counts  JSONB NOT NULL,
	new_counts       JSONB NOT NULL,
	units            INTEGER NOT NULL DEFAULT 0,
	bucket           TEXT NOT NULL DEFAULT '',
	actor_id         TEXT NOT NULL,
	actor_role       TEXT NOT NULL,
	booking_id       UUID,
	reason           TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_hospital ON inventory_audit_logs (hospital_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_booking ON inventory_audit_logs (booking_id, change_type);`

const createAuditImmutableTrigger = `
CREATE OR REPLACE FUNCTION reject_audit_mutation() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'inventory_audit_logs is append-only';
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS audit_logs_append_only ON inventory_audit_logs;
CREATE TRIGGER audit_logs_append_only
	BEFORE UPDATE OR DELETE ON inventory_audit_logs
	FOR EACH ROW EXECUTE FUNCTION reject_audit_mutation();`
