package postgresrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/shopspring/decimal"
)

const ticketSelect = `SELECT t.id, t.ticket_number, t.license_plate, t.vehicle_type, t.entry_time,
		t.exit_time, t.amount_paid, t.payment_status, t.status, t.facility_id, t.spot_id,
		t.created_at, t.updated_at, f.name, s.spot_number, fl.floor_number
	FROM tickets t
	JOIN facilities f ON f.id = t.facility_id
	JOIN spots s ON s.id = t.spot_id
	JOIN floors fl ON fl.id = s.floor_id`

type TicketRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *TicketRepo) With(db DB) *TicketRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *TicketRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t                        domain.Ticket
		vehicle, payment, status string
	)
	err := row.Scan(
		&t.ID, &t.Number, &t.LicensePlate, &vehicle, &t.EntryTime,
		&t.ExitTime, &t.AmountPaid, &payment, &status, &t.FacilityID, &t.SpotID,
		&t.CreatedAt, &t.UpdatedAt, &t.FacilityName, &t.SpotNumber, &t.FloorNumber,
	)
	if err != nil {
		return nil, err
	}
	t.VehicleType = domain.VehicleType(vehicle)
	t.PaymentStatus = domain.PaymentStatus(payment)
	t.Status = domain.TicketStatus(status)
	return &t, nil
}

// Create inserts t and fills in ID and timestamps.
//
// Returns:
//   - error: repository.ErrDuplicateTicketNumber if the number is taken.
//   - error: repository.ErrConflict if the plate already has an active ticket.
func (r *TicketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	const op = "postgresrepo.TicketRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO tickets(ticket_number, license_plate, vehicle_type, entry_time, exit_time,
			amount_paid, payment_status, status, facility_id, spot_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		t.Number, t.LicensePlate, string(t.VehicleType), t.EntryTime, t.ExitTime,
		t.AmountPaid, string(t.PaymentStatus), string(t.Status), t.FacilityID, t.SpotID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *TicketRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	const op = "postgresrepo.TicketRepo.NumberExists"

	var exists bool
	if err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tickets WHERE ticket_number = $1)`,
		number,
	).Scan(&exists); err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

// GetByNumber retrieves a ticket by its number.
//
// Returns:
//   - error: repository.ErrNotFound if there is no such ticket.
func (r *TicketRepo) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.GetByNumber"

	t, err := scanTicket(r.handle().QueryRow(ctx, ticketSelect+` WHERE t.ticket_number = $1`, number))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return t, nil
}

func (r *TicketRepo) ListByFacility(ctx context.Context, facilityID int64) ([]domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.ListByFacility"
	return r.list(ctx, op, ` WHERE t.facility_id = $1`, facilityID)
}

func (r *TicketRepo) ListActiveByPlate(ctx context.Context, plate string) ([]domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.ListActiveByPlate"
	return r.list(ctx, op, ` WHERE t.license_plate = $1 AND t.status = 'ACTIVE'`, plate)
}

func (r *TicketRepo) ListOverdue(ctx context.Context, facilityID int64, before time.Time) ([]domain.Ticket, error) {
	const op = "postgresrepo.TicketRepo.ListOverdue"
	return r.list(ctx, op,
		` WHERE t.facility_id = $1 AND t.status = 'ACTIVE' AND t.entry_time < $2`,
		facilityID, before,
	)
}

func (r *TicketRepo) list(ctx context.Context, op, where string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.handle().Query(ctx, ticketSelect+where+` ORDER BY t.entry_time, t.id`, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func (r *TicketRepo) Complete(ctx context.Context, id int64, exit time.Time, amount decimal.Decimal) error {
	const op = "postgresrepo.TicketRepo.Complete"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets
		 SET exit_time = $2, amount_paid = $3, payment_status = 'PAID', status = 'COMPLETED', updated_at = now()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		id, exit, amount,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrStaleState)
	}

	return nil
}

func (r *TicketRepo) RecordPayment(ctx context.Context, id int64, amount decimal.Decimal) error {
	const op = "postgresrepo.TicketRepo.RecordPayment"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets SET amount_paid = $2, payment_status = 'PAID', updated_at = now() WHERE id = $1`,
		id, amount,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *TicketRepo) Cancel(ctx context.Context, id int64, exit time.Time) error {
	const op = "postgresrepo.TicketRepo.Cancel"

	tag, err := r.handle().Exec(ctx,
		`UPDATE tickets SET exit_time = $2, status = 'CANCELLED', updated_at = now()
		 WHERE id = $1 AND status = 'ACTIVE'`,
		id, exit,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrStaleState)
	}

	return nil
}
