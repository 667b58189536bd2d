package postgresrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
)

// Spot numbers are ordered bytewise so the order does not depend on the
// database locale.
const spotSelect = `SELECT s.id, s.facility_id, s.floor_id, fl.floor_number, s.spot_number, s.spot_type, s.status
	FROM spots s
	JOIN floors fl ON fl.id = s.floor_id`

const spotOrder = ` ORDER BY fl.floor_number, s.spot_number COLLATE "C"`

type SpotRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *SpotRepo) With(db DB) *SpotRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *SpotRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanSpot(row pgx.Row) (*domain.Spot, error) {
	var (
		s          domain.Spot
		typ, state string
	)
	if err := row.Scan(&s.ID, &s.FacilityID, &s.FloorID, &s.FloorNumber, &s.Number, &typ, &state); err != nil {
		return nil, err
	}
	s.Type = domain.SpotType(typ)
	s.Status = domain.SpotStatus(state)
	return &s, nil
}

func (r *SpotRepo) BatchCreate(ctx context.Context, spots []domain.Spot) error {
	const op = "postgresrepo.SpotRepo.BatchCreate"

	batch := &pgx.Batch{}
	for _, s := range spots {
		batch.Queue(
			`INSERT INTO spots(facility_id, floor_id, spot_number, spot_type, status)
			 VALUES ($1, $2, $3, $4, $5)`,
			s.FacilityID, s.FloorID, s.Number, string(s.Type), string(s.Status),
		)
	}
	if err := r.handle().SendBatch(ctx, batch).Close(); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// FirstAvailable returns the first admissible available spot and locks its row.
//
// Returns:
//   - error: repository.ErrNoSpot if no spot of types is available.
func (r *SpotRepo) FirstAvailable(
	ctx context.Context,
	facilityID int64,
	types []domain.SpotType,
) (*domain.Spot, error) {
	const op = "postgresrepo.SpotRepo.FirstAvailable"

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	s, err := scanSpot(r.handle().QueryRow(ctx,
		spotSelect+`
		 WHERE s.facility_id = $1 AND s.status = 'AVAILABLE' AND s.spot_type = ANY($2)`+
			spotOrder+`
		 LIMIT 1
		 FOR UPDATE OF s`,
		facilityID, names,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, repository.ErrNoSpot)
	}
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

func (r *SpotRepo) Get(ctx context.Context, id int64) (*domain.Spot, error) {
	const op = "postgresrepo.SpotRepo.Get"

	s, err := scanSpot(r.handle().QueryRow(ctx, spotSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

func (r *SpotRepo) Occupy(ctx context.Context, id int64) error {
	const op = "postgresrepo.SpotRepo.Occupy"
	return r.transition(ctx, op, id, domain.SpotAvailable, domain.SpotOccupied, -1)
}

func (r *SpotRepo) Release(ctx context.Context, id int64) error {
	const op = "postgresrepo.SpotRepo.Release"
	return r.transition(ctx, op, id, domain.SpotOccupied, domain.SpotAvailable, +1)
}

func (r *SpotRepo) transition(
	ctx context.Context,
	op string,
	id int64,
	from, to domain.SpotStatus,
	floorDelta int,
) error {
	db := r.handle()

	var floorID int64
	err := db.QueryRow(ctx,
		`UPDATE spots SET status = $3
		 WHERE id = $1 AND status = $2
		 RETURNING floor_id`,
		id, string(from), string(to),
	).Scan(&floorID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: spot %d is not %s: %w", op, id, from, repository.ErrStaleState)
	}
	if err != nil {
		return wrapDBErr(op, err)
	}

	if _, err := db.Exec(ctx,
		`UPDATE floors SET available_spots = available_spots + $2 WHERE id = $1`,
		floorID, floorDelta,
	); err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *SpotRepo) List(ctx context.Context, facilityID int64, onlyAvailable bool) ([]domain.Spot, error) {
	const op = "postgresrepo.SpotRepo.List"

	query := spotSelect + ` WHERE s.facility_id = $1`
	if onlyAvailable {
		query += ` AND s.status = 'AVAILABLE'`
	}

	rows, err := r.handle().Query(ctx, query+spotOrder, facilityID)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Spot
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
