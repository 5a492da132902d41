package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"textile-backend/internal/models"
)

type DispatchRepository struct {
	DB *pgxpool.Pool
}

var _ DispatchStore = (*DispatchRepository)(nil)

func NewDispatchRepository(db *pgxpool.Pool) *DispatchRepository {
	return &DispatchRepository{DB: db}
}

const dispatchColumns = `id, party, lot_number, quality, shade, process, status, quality_challan_number,
	karigar_name, kg, meter, roll, dispatch_date, created_at, modified_at`

func (r *DispatchRepository) CreateDispatch(ctx context.Context, d *models.Dispatch) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO dispatches(`+dispatchColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.Party, d.LotNumber, d.Quality, d.Shade, d.Process, d.Status, d.QualityChallanNumber,
		d.KarigarName, nullDecimal(d.Kg), nullDecimal(d.Meter), d.Roll, d.DispatchDate, d.CreatedAt, d.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dispatch: %w", err)
	}
	return nil
}

func (r *DispatchRepository) GetDispatch(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	d, err := scanDispatch(r.DB.QueryRow(ctx, `SELECT `+dispatchColumns+` FROM dispatches WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "dispatch", id)
	}
	return d, nil
}

// ListDispatches returns records newest dispatch date first, optionally
// narrowed by a party / lot number / challan search
func (r *DispatchRepository) ListDispatches(ctx context.Context, query string) ([]*models.Dispatch, error) {
	sql := `SELECT ` + dispatchColumns + ` FROM dispatches`
	var args []any
	if strings.TrimSpace(query) != "" {
		args = append(args, likePattern(query))
		sql += ` WHERE party ILIKE $1 OR lot_number ILIKE $1 OR quality_challan_number ILIKE $1`
	}
	sql += ` ORDER BY dispatch_date DESC, modified_at DESC`

	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatches: %w", err)
	}
	defer rows.Close()

	var out []*models.Dispatch
	for rows.Next() {
		d, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DispatchRepository) UpdateDispatch(ctx context.Context, d *models.Dispatch) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE dispatches
		 SET party = $2, lot_number = $3, quality = $4, shade = $5, process = $6, status = $7,
		     quality_challan_number = $8, karigar_name = $9, kg = $10, meter = $11, roll = $12,
		     dispatch_date = $13, modified_at = $14
		 WHERE id = $1`,
		d.ID, d.Party, d.LotNumber, d.Quality, d.Shade, d.Process, d.Status, d.QualityChallanNumber,
		d.KarigarName, nullDecimal(d.Kg), nullDecimal(d.Meter), d.Roll, d.DispatchDate, d.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispatch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "dispatch", ID: d.ID.String()}
	}
	return nil
}

func (r *DispatchRepository) DeleteDispatch(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM dispatches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dispatch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "dispatch", ID: id.String()}
	}
	return nil
}

func scanDispatch(row pgx.Row) (*models.Dispatch, error) {
	var (
		d         models.Dispatch
		kg, meter decimal.NullDecimal
	)
	err := row.Scan(&d.ID, &d.Party, &d.LotNumber, &d.Quality, &d.Shade, &d.Process, &d.Status,
		&d.QualityChallanNumber, &d.KarigarName, &kg, &meter, &d.Roll, &d.DispatchDate,
		&d.CreatedAt, &d.ModifiedAt)
	if err != nil {
		return nil, err
	}
	d.Kg, d.Meter = decimalPtr(kg), decimalPtr(meter)
	return &d, nil
}
