package repositories

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"textile-backend/internal/models"
)

// LotStore persists lots and their entries. Every mutating call runs its
// callback against the current, locked state of the lot and persists the
// result atomically; a callback error aborts the mutation.
type LotStore interface {
	CreateLot(ctx context.Context, lot *models.Lot) error
	GetLot(ctx context.Context, id uuid.UUID) (*models.Lot, error)
	ListLots(ctx context.Context, filter models.LotFilter) ([]*models.Lot, error)
	UpdateLot(ctx context.Context, id uuid.UUID, fn func(lot *models.Lot) error) (*models.Lot, error)
	DeleteLot(ctx context.Context, id uuid.UUID) error

	// AppendEntry stores the entry built by fn at the end of the lot
	AppendEntry(ctx context.Context, lotID uuid.UUID, fn func(lot *models.Lot) (*models.Entry, error)) (*models.Lot, *models.Entry, error)
	UpdateEntry(ctx context.Context, entryID uuid.UUID, fn func(lot *models.Lot, e *models.Entry) error) (*models.Lot, *models.Entry, error)
	DeleteEntry(ctx context.Context, entryID uuid.UUID, fn func(lot *models.Lot, e *models.Entry) error) (*models.Lot, error)
}

// DispatchStore persists dispatch records
type DispatchStore interface {
	CreateDispatch(ctx context.Context, d *models.Dispatch) error
	GetDispatch(ctx context.Context, id uuid.UUID) (*models.Dispatch, error)
	ListDispatches(ctx context.Context, query string) ([]*models.Dispatch, error)
	UpdateDispatch(ctx context.Context, d *models.Dispatch) error
	DeleteDispatch(ctx context.Context, id uuid.UUID) error
}

// NextPosition is the position given to an entry appended to lot
func NextPosition(lot *models.Lot) int {
	if len(lot.Entries) == 0 {
		return 0
	}
	return lot.Entries[len(lot.Entries)-1].Position + 1
}

// EntryIndex finds an entry of lot by id, -1 if absent
func EntryIndex(lot *models.Lot, id uuid.UUID) int {
	for i, e := range lot.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// lotIdentityIndex is the unique index over lot number, party, quality,
// shade and process (migrations/003_lot_identity.sql)
const lotIdentityIndex = "lots_identity_key"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

// likePattern builds a substring ILIKE pattern with wildcards in q escaped
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(q)) + "%"
}
