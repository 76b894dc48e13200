package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-userforms/pkg/model"
)

const createRecordsTable = `CREATE TABLE IF NOT EXISTS records (
	id       TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL
)`

// SQLStore persists records in a SQLite database. Field values are stored as
// one JSON object per row so any schema fits without migrations.
type SQLStore struct {
	db    *sql.DB
	newID func() string
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens dsn with the pure Go SQLite driver and prepares the
// records table. An empty dsn opens a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps an in-memory
	// database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	s, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the records table.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("store: database is required")
	}
	if _, err := db.ExecContext(ctx, createRecordsTable); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &SQLStore{db: db, newID: uuid.NewString}, nil
}

// Close releases the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Seed inserts records that do not exist yet, keeping their ids.
func (s *SQLStore) Seed(ctx context.Context, records ...model.Record) error {
	for _, rec := range records {
		data, err := json.Marshal(withoutID(rec.Values))
		if err != nil {
			return fmt.Errorf("store: seed: encode: %w", err)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO records (id, position, data)
			 SELECT ?, COALESCE(MAX(position), 0) + 1, ? FROM records`,
			rec.ID, string(data))
		if err != nil {
			return fmt.Errorf("store: seed %q: %w", rec.ID, err)
		}
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("store: list: scan: %w", err)
		}
		values, err := decodeValues(data)
		if err != nil {
			return nil, fmt.Errorf("store: list: record %q: %w", id, err)
		}
		out = append(out, model.Record{ID: id, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Create(ctx context.Context, payload map[string]string) (model.Record, error) {
	rec := model.Record{ID: s.newID(), Values: withoutID(payload)}
	data, err := json.Marshal(rec.Values)
	if err != nil {
		return model.Record{}, fmt.Errorf("store: create: encode: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, position, data)
		 SELECT ?, COALESCE(MAX(position), 0) + 1, ? FROM records`,
		rec.ID, string(data))
	if err != nil {
		return model.Record{}, fmt.Errorf("store: create: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, payload map[string]string) (model.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Record{}, fmt.Errorf("store: update: begin: %w", err)
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRowContext(ctx, `SELECT data FROM records WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, notFound(id)
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("store: update: load: %w", err)
	}
	values, err := decodeValues(data)
	if err != nil {
		return model.Record{}, fmt.Errorf("store: update: record %q: %w", id, err)
	}
	for key, value := range withoutID(payload) {
		values[key] = value
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return model.Record{}, fmt.Errorf("store: update: encode: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE records SET data = ? WHERE id = ?`, string(encoded), id); err != nil {
		return model.Record{}, fmt.Errorf("store: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Record{}, fmt.Errorf("store: update: commit: %w", err)
	}
	return model.Record{ID: id, Values: values}, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func decodeValues(data string) (map[string]string, error) {
	values := map[string]string{}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return values, nil
}
