// Package pgstore is the PostgreSQL backend for persist, built on sqlx and
// lib/pq.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"

	"github.com/Abraxas-365/rxintake/persist"
	"github.com/Abraxas-365/rxintake/prescription"
	"github.com/Abraxas-365/rxintake/storex"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const (
	selectSymptoms = `SELECT symptoms FROM profiles WHERE user_id = $1`

	// a missing row counts as "", so only the empty prev may create it
	upsertSymptoms = `INSERT INTO profiles (user_id, symptoms, updated_at) VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE SET symptoms = EXCLUDED.symptoms, updated_at = now()
WHERE profiles.symptoms = ''`

	updateSymptoms = `UPDATE profiles SET symptoms = $2, updated_at = now()
WHERE user_id = $1 AND symptoms = $3`

	insertMedicine = `INSERT INTO medicines (user_id, name, dosage, duration, idmed)
VALUES ($1, $2, $3, $4, $5) RETURNING id::text, created_at`

	countMedicines = `SELECT count(*) FROM medicines WHERE user_id = $1`

	listMedicines = `SELECT id::text AS id, user_id, name, dosage, duration, idmed, created_at
FROM medicines WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
)

// Store implements persist.Store
type Store struct {
	db *sqlx.DB
	tx storex.TxManager
}

var _ persist.Store = (*Store)(nil)

// New wraps an open connection
func New(db *sqlx.DB) *Store {
	return &Store{db: db, tx: storex.NewSQLTxManager(db)}
}

// Open connects to dsn and pings the server
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, storex.ErrorRegistry.New(storex.ErrConnectionFailed).
			WithCause(err).
			WithDetail("driver", "postgres")
	}
	return New(db), nil
}

// Migrate creates the tables if they do not exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return storex.ErrorRegistry.New(storex.ErrMigrationFailed).WithCause(err)
	}
	return nil
}

// Migrate applies the schema on the store's connection
func (s *Store) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.db)
}

func (s *Store) ReadSymptoms(ctx context.Context, userID string) (string, error) {
	var symptoms string
	err := storex.ExecutorFrom(ctx, s.db).GetContext(ctx, &symptoms, selectSymptoms, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", queryFailed(err, "profiles")
	}
	return symptoms, nil
}

func (s *Store) SwapSymptoms(ctx context.Context, userID, prev, next string) (bool, error) {
	exec := storex.ExecutorFrom(ctx, s.db)

	var (
		res sql.Result
		err error
	)
	if prev == "" {
		res, err = exec.ExecContext(ctx, upsertSymptoms, userID, next)
	} else {
		res, err = exec.ExecContext(ctx, updateSymptoms, userID, next, prev)
	}
	if err != nil {
		return false, storex.ErrorRegistry.New(storex.ErrUpdateFailed).
			WithCause(err).
			WithDetail("table", "profiles")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, queryFailed(err, "profiles")
	}
	return n == 1, nil
}

func (s *Store) InsertMedicine(ctx context.Context, userID string, m prescription.Medicine) (persist.MedicineRecord, error) {
	return insert(ctx, storex.ExecutorFrom(ctx, s.db), userID, m)
}

func (s *Store) InsertMedicines(ctx context.Context, userID string, ms []prescription.Medicine) ([]persist.MedicineRecord, error) {
	out := make([]persist.MedicineRecord, 0, len(ms))
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		exec := storex.ExecutorFrom(txCtx, s.db)
		for _, m := range ms {
			rec, err := insert(txCtx, exec, userID, m)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insert(ctx context.Context, exec storex.Executor, userID string, m prescription.Medicine) (persist.MedicineRecord, error) {
	rec := persist.MedicineRecord{UserID: userID, Medicine: m}
	err := exec.QueryRowxContext(ctx, insertMedicine, userID, m.Name, m.Dosage, m.Duration, m.IDMed).
		Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return persist.MedicineRecord{}, storex.ErrorRegistry.New(storex.ErrCreateFailed).
			WithCause(err).
			WithDetail("table", "medicines")
	}
	return rec, nil
}

func (s *Store) ListMedicines(ctx context.Context, userID string, page storex.PageRequest) (storex.Paginated[persist.MedicineRecord], error) {
	page = page.Normalize()
	exec := storex.ExecutorFrom(ctx, s.db)

	var total int
	if err := exec.GetContext(ctx, &total, countMedicines, userID); err != nil {
		return storex.Paginated[persist.MedicineRecord]{}, queryFailed(err, "medicines")
	}

	var rows []persist.MedicineRecord
	if err := exec.SelectContext(ctx, &rows, listMedicines, userID, page.PageSize, page.Offset()); err != nil {
		return storex.Paginated[persist.MedicineRecord]{}, queryFailed(err, "medicines")
	}
	return storex.NewPaginated(rows, page.Page, page.PageSize, total), nil
}

func (s *Store) Close(context.Context) error {
	return s.db.Close()
}

func queryFailed(err error, table string) error {
	return storex.ErrorRegistry.New(storex.ErrQueryFailed).
		WithCause(err).
		WithDetail("table", table)
}
