package postgresrepo

import (
	"context"
	"fmt"
	"log/slog"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS facilities (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		location TEXT NOT NULL DEFAULT '',
		total_floors INTEGER NOT NULL CHECK (total_floors > 0),
		spots_per_floor INTEGER NOT NULL CHECK (spots_per_floor > 0),
		total_spots INTEGER NOT NULL,
		available_spots INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (available_spots BETWEEN 0 AND total_spots)
	)`,

	`CREATE TABLE IF NOT EXISTS floors (
		id BIGSERIAL PRIMARY KEY,
		facility_id BIGINT NOT NULL REFERENCES facilities(id) ON DELETE CASCADE,
		floor_number INTEGER NOT NULL,
		total_spots INTEGER NOT NULL,
		available_spots INTEGER NOT NULL,
		UNIQUE (facility_id, floor_number),
		CHECK (available_spots BETWEEN 0 AND total_spots)
	)`,

	`CREATE TABLE IF NOT EXISTS spots (
		id BIGSERIAL PRIMARY KEY,
		facility_id BIGINT NOT NULL REFERENCES facilities(id) ON DELETE CASCADE,
		floor_id BIGINT NOT NULL REFERENCES floors(id) ON DELETE CASCADE,
		spot_number TEXT NOT NULL,
		spot_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'AVAILABLE',
		UNIQUE (facility_id, spot_number)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_spots_facility_status ON spots(facility_id, status, spot_type)`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id BIGSERIAL PRIMARY KEY,
		ticket_number TEXT NOT NULL UNIQUE,
		license_plate TEXT NOT NULL,
		vehicle_type TEXT NOT NULL,
		entry_time TIMESTAMP WITH TIME ZONE NOT NULL,
		exit_time TIMESTAMP WITH TIME ZONE,
		amount_paid NUMERIC(12, 2),
		payment_status TEXT NOT NULL,
		status TEXT NOT NULL,
		facility_id BIGINT NOT NULL REFERENCES facilities(id),
		spot_id BIGINT NOT NULL REFERENCES spots(id),
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS uidx_tickets_active_plate ON tickets(license_plate) WHERE status = 'ACTIVE'`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_facility_entry ON tickets(facility_id, entry_time)`,
}

// Migrate creates the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db DB, logger *slog.Logger) error {
	const op = "postgresrepo.Migrate"

	for i, m := range migrations {
		if _, err := db.Exec(ctx, m); err != nil {
			return fmt.Errorf("%s: migration %d: %w", op, i, err)
		}
	}

	logger.Info("migrations completed", "count", len(migrations))

	return nil
}
