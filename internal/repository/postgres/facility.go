package postgresrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
)

const facilityColumns = `id, name, location, total_floors, spots_per_floor,
	total_spots, available_spots, active, created_at, updated_at`

type FacilityRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *FacilityRepo) With(db DB) *FacilityRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *FacilityRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanFacility(row pgx.Row) (*domain.Facility, error) {
	var f domain.Facility
	err := row.Scan(
		&f.ID, &f.Name, &f.Location, &f.TotalFloors, &f.SpotsPerFloor,
		&f.TotalSpots, &f.AvailableSpots, &f.Active, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts f and fills in ID and timestamps.
//
// Returns:
//   - error: repository.ErrConflict if the name is taken.
func (r *FacilityRepo) Create(ctx context.Context, f *domain.Facility) error {
	const op = "postgresrepo.FacilityRepo.Create"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO facilities(name, location, total_floors, spots_per_floor, total_spots, available_spots, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		f.Name, f.Location, f.TotalFloors, f.SpotsPerFloor, f.TotalSpots, f.AvailableSpots, f.Active,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *FacilityRepo) CreateFloor(ctx context.Context, fl *domain.Floor) error {
	const op = "postgresrepo.FacilityRepo.CreateFloor"

	err := r.handle().QueryRow(ctx,
		`INSERT INTO floors(facility_id, floor_number, total_spots, available_spots)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		fl.FacilityID, fl.Number, fl.TotalSpots, fl.AvailableSpots,
	).Scan(&fl.ID)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *FacilityRepo) ListFloors(ctx context.Context, facilityID int64) ([]domain.Floor, error) {
	const op = "postgresrepo.FacilityRepo.ListFloors"

	rows, err := r.handle().Query(ctx,
		`SELECT id, facility_id, floor_number, total_spots, available_spots
		 FROM floors
		 WHERE facility_id = $1
		 ORDER BY floor_number`,
		facilityID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Floor
	for rows.Next() {
		var fl domain.Floor
		if err := rows.Scan(&fl.ID, &fl.FacilityID, &fl.Number, &fl.TotalSpots, &fl.AvailableSpots); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, fl)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

// Get retrieves a facility by its ID.
//
// Returns:
//   - error: repository.ErrNotFound if the facility does not exist.
func (r *FacilityRepo) Get(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "postgresrepo.FacilityRepo.Get"

	f, err := scanFacility(r.handle().QueryRow(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return f, nil
}

// GetForUpdate is Get with a row lock held until the transaction ends.
func (r *FacilityRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Facility, error) {
	const op = "postgresrepo.FacilityRepo.GetForUpdate"

	f, err := scanFacility(r.handle().QueryRow(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return f, nil
}

func (r *FacilityRepo) List(ctx context.Context, filter domain.FacilityFilter) ([]domain.Facility, error) {
	const op = "postgresrepo.FacilityRepo.List"

	where, args := facilityWhere(filter)

	rows, err := r.handle().Query(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE `+where+` ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Facility
	for rows.Next() {
		f, err := scanFacility(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func facilityWhere(filter domain.FacilityFilter) (string, []any) {
	conds := []string{"TRUE"}
	var args []any

	if filter.ActiveOnly {
		conds = append(conds, "active")
	}
	if filter.WithAvailability {
		conds = append(conds, "available_spots > 0")
	}
	if loc := strings.TrimSpace(filter.Location); loc != "" {
		args = append(args, "%"+likeEscaper.Replace(loc)+"%")
		conds = append(conds, fmt.Sprintf("location ILIKE $%d", len(args)))
	}
	if filter.MinAvailable > 0 {
		args = append(args, filter.MinAvailable)
		conds = append(conds, fmt.Sprintf("available_spots >= $%d", len(args)))
	}

	return strings.Join(conds, " AND "), args
}

func (r *FacilityRepo) Update(ctx context.Context, id int64, name, location string) error {
	const op = "postgresrepo.FacilityRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE facilities SET name = $2, location = $3, updated_at = now() WHERE id = $1`,
		id, name, location,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *FacilityRepo) SetActive(ctx context.Context, id int64, active bool) error {
	const op = "postgresrepo.FacilityRepo.SetActive"

	tag, err := r.handle().Exec(ctx,
		`UPDATE facilities SET active = $2, updated_at = now() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *FacilityRepo) Reserve(ctx context.Context, id int64) error {
	const op = "postgresrepo.FacilityRepo.Reserve"

	tag, err := r.handle().Exec(ctx,
		`UPDATE facilities
		 SET available_spots = available_spots - 1, updated_at = now()
		 WHERE id = $1 AND available_spots > 0`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	return nil
}

func (r *FacilityRepo) Release(ctx context.Context, id int64) error {
	const op = "postgresrepo.FacilityRepo.Release"

	tag, err := r.handle().Exec(ctx,
		`UPDATE facilities
		 SET available_spots = available_spots + 1, updated_at = now()
		 WHERE id = $1 AND available_spots < total_spots`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrConflict)
	}

	return nil
}
