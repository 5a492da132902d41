package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"textile-backend/internal/models"
)

type LotRepository struct {
	DB *pgxpool.Pool
}

var _ LotStore = (*LotRepository)(nil)

func NewLotRepository(db *pgxpool.Pool) *LotRepository {
	return &LotRepository{DB: db}
}

const lotColumns = `id, lot_number, party_name, quality, shade, process_type, quality_challan_number,
	status, created_at, submitted_at, heat_set_at, finished_at, modified_at`

const entryColumns = `id, lot_id, position, challan_number, kg, meter, roll, created_at, updated_at`

func (r *LotRepository) CreateLot(ctx context.Context, lot *models.Lot) error {
	_, err := r.DB.Exec(ctx,
		`INSERT INTO lots(`+lotColumns+`)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		lot.ID, lot.LotNumber, lot.PartyName, lot.Quality, lot.Shade, lot.ProcessType,
		lot.QualityChallanNumber, string(lot.Status), lot.CreatedAt,
		lot.SubmittedAt, lot.HeatSetAt, lot.FinishedAt, lot.ModifiedAt,
	)
	if isUniqueViolation(err, lotIdentityIndex) {
		return models.DuplicateLotError(lot)
	}
	if err != nil {
		return fmt.Errorf("failed to create lot: %w", err)
	}
	return nil
}

func (r *LotRepository) GetLot(ctx context.Context, id uuid.UUID) (*models.Lot, error) {
	lot, err := scanLot(r.DB.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "lot", id)
	}
	if err := r.attachEntries(ctx, r.DB, []*models.Lot{lot}); err != nil {
		return nil, err
	}
	return lot, nil
}

// ListLots returns lots matching filter, most recently modified first
func (r *LotRepository) ListLots(ctx context.Context, f models.LotFilter) ([]*models.Lot, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CompletedStage != "" {
		args = append(args, stagesAfter(f.CompletedStage))
		where = append(where, fmt.Sprintf("status = ANY($%d::text[])", len(args)))
	}
	if strings.TrimSpace(f.Query) != "" {
		args = append(args, likePattern(f.Query))
		n := len(args)
		where = append(where, fmt.Sprintf(`(party_name ILIKE $%[1]d OR lot_number ILIKE $%[1]d
			OR quality_challan_number ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM lot_entries e WHERE e.lot_id = lots.id AND e.challan_number ILIKE $%[1]d))`, n))
	}

	query := `SELECT ` + lotColumns + ` FROM lots`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY modified_at DESC, created_at DESC"

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lots: %w", err)
	}
	defer rows.Close()

	var lots []*models.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachEntries(ctx, r.DB, lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (r *LotRepository) UpdateLot(ctx context.Context, id uuid.UUID, fn func(lot *models.Lot) error) (*models.Lot, error) {
	var out *models.Lot
	err := r.withLockedLot(ctx, id, func(tx pgx.Tx, lot *models.Lot) error {
		if err := fn(lot); err != nil {
			return err
		}
		out = lot
		return saveLot(ctx, tx, lot)
	})
	return out, err
}

// DeleteLot removes the lot; its entries go with it through ON DELETE CASCADE
func (r *LotRepository) DeleteLot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM lots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "lot", ID: id.String()}
	}
	return nil
}

func (r *LotRepository) AppendEntry(ctx context.Context, lotID uuid.UUID, fn func(lot *models.Lot) (*models.Entry, error)) (*models.Lot, *models.Entry, error) {
	var (
		out   *models.Lot
		entry *models.Entry
	)
	err := r.withLockedLot(ctx, lotID, func(tx pgx.Tx, lot *models.Lot) error {
		e, err := fn(lot)
		if err != nil {
			return err
		}
		e.LotID = lot.ID
		e.Position = NextPosition(lot)

		_, err = tx.Exec(ctx,
			`INSERT INTO lot_entries(`+entryColumns+`)
			 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			e.ID, e.LotID, e.Position, e.ChallanNumber,
			nullDecimal(e.Kg), nullDecimal(e.Meter), e.Roll, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		lot.Entries = append(lot.Entries, e)
		out, entry = lot, e
		return saveLot(ctx, tx, lot)
	})
	return out, entry, err
}

func (r *LotRepository) UpdateEntry(ctx context.Context, entryID uuid.UUID, fn func(lot *models.Lot, e *models.Entry) error) (*models.Lot, *models.Entry, error) {
	lotID, err := r.entryLotID(ctx, entryID)
	if err != nil {
		return nil, nil, err
	}

	var (
		out   *models.Lot
		entry *models.Entry
	)
	err = r.withLockedLot(ctx, lotID, func(tx pgx.Tx, lot *models.Lot) error {
		i := EntryIndex(lot, entryID)
		if i < 0 {
			return &models.NotFoundError{Resource: "entry", ID: entryID.String()}
		}
		e := lot.Entries[i]
		if err := fn(lot, e); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`UPDATE lot_entries
			 SET challan_number = $2, kg = $3, meter = $4, roll = $5, updated_at = $6
			 WHERE id = $1`,
			e.ID, e.ChallanNumber, nullDecimal(e.Kg), nullDecimal(e.Meter), e.Roll, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}
		out, entry = lot, e
		return saveLot(ctx, tx, lot)
	})
	return out, entry, err
}

func (r *LotRepository) DeleteEntry(ctx context.Context, entryID uuid.UUID, fn func(lot *models.Lot, e *models.Entry) error) (*models.Lot, error) {
	lotID, err := r.entryLotID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	var out *models.Lot
	err = r.withLockedLot(ctx, lotID, func(tx pgx.Tx, lot *models.Lot) error {
		i := EntryIndex(lot, entryID)
		if i < 0 {
			return &models.NotFoundError{Resource: "entry", ID: entryID.String()}
		}
		if err := fn(lot, lot.Entries[i]); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM lot_entries WHERE id = $1`, entryID); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		lot.Entries = append(lot.Entries[:i], lot.Entries[i+1:]...)
		out = lot
		return saveLot(ctx, tx, lot)
	})
	return out, err
}

// withLockedLot loads the lot under SELECT ... FOR UPDATE so concurrent
// mutations of one lot run one after another
func (r *LotRepository) withLockedLot(ctx context.Context, id uuid.UUID, fn func(tx pgx.Tx, lot *models.Lot) error) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	lot, err := scanLot(tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM lots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return notFound(err, "lot", id)
	}
	if err := r.attachEntries(ctx, tx, []*models.Lot{lot}); err != nil {
		return err
	}

	if err := fn(tx, lot); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *LotRepository) entryLotID(ctx context.Context, entryID uuid.UUID) (uuid.UUID, error) {
	var lotID uuid.UUID
	err := r.DB.QueryRow(ctx, `SELECT lot_id FROM lot_entries WHERE id = $1`, entryID).Scan(&lotID)
	if err != nil {
		return uuid.Nil, notFound(err, "entry", entryID)
	}
	return lotID, nil
}

// attachEntries loads the entries of all lots in one query, in insertion order
func (r *LotRepository) attachEntries(ctx context.Context, q querier, lots []*models.Lot) error {
	if len(lots) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Lot, len(lots))
	ids := make([]string, 0, len(lots))
	for _, l := range lots {
		l.Entries = []*models.Entry{}
		byID[l.ID] = l
		ids = append(ids, l.ID.String())
	}

	rows, err := q.Query(ctx,
		`SELECT `+entryColumns+` FROM lot_entries
		 WHERE lot_id = ANY($1::uuid[])
		 ORDER BY lot_id, position`, ids)
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e         models.Entry
			kg, meter decimal.NullDecimal
		)
		if err := rows.Scan(&e.ID, &e.LotID, &e.Position, &e.ChallanNumber, &kg, &meter, &e.Roll, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return err
		}
		e.Kg, e.Meter = decimalPtr(kg), decimalPtr(meter)
		if l, ok := byID[e.LotID]; ok {
			l.Entries = append(l.Entries, &e)
		}
	}
	return rows.Err()
}

func saveLot(ctx context.Context, q querier, lot *models.Lot) error {
	_, err := q.Exec(ctx,
		`UPDATE lots
		 SET lot_number = $2, party_name = $3, quality = $4, shade = $5, process_type = $6,
		     quality_challan_number = $7, status = $8, submitted_at = $9, heat_set_at = $10,
		     finished_at = $11, modified_at = $12
		 WHERE id = $1`,
		lot.ID, lot.LotNumber, lot.PartyName, lot.Quality, lot.Shade, lot.ProcessType,
		lot.QualityChallanNumber, string(lot.Status), lot.SubmittedAt, lot.HeatSetAt,
		lot.FinishedAt, lot.ModifiedAt,
	)
	if isUniqueViolation(err, lotIdentityIndex) {
		return models.DuplicateLotError(lot)
	}
	if err != nil {
		return fmt.Errorf("failed to save lot: %w", err)
	}
	return nil
}

func scanLot(row pgx.Row) (*models.Lot, error) {
	var (
		lot    models.Lot
		status string
	)
	err := row.Scan(&lot.ID, &lot.LotNumber, &lot.PartyName, &lot.Quality, &lot.Shade, &lot.ProcessType,
		&lot.QualityChallanNumber, &status, &lot.CreatedAt, &lot.SubmittedAt, &lot.HeatSetAt,
		&lot.FinishedAt, &lot.ModifiedAt)
	if err != nil {
		return nil, err
	}
	lot.Status = models.Stage(status)
	return &lot, nil
}

func stagesAfter(s models.Stage) []string {
	out := []string{}
	for _, st := range models.Stages {
		if st.After(s) {
			out = append(out, string(st))
		}
	}
	return out
}

func notFound(err error, resource string, id uuid.UUID) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Resource: resource, ID: id.String()}
	}
	return fmt.Errorf("failed to load %s: %w", resource, err)
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
