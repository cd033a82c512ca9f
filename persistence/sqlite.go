package persistence

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	_ "modernc.org/sqlite"
)

type migration struct {
	sql     string
	version int
}

//nolint:gochecknoglobals // schema history
var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE recordings (
				id TEXT PRIMARY KEY,
				recorded_at INTEGER NOT NULL
			);

			CREATE TABLE calls (
				recording_id TEXT NOT NULL,
				seq INTEGER NOT NULL,
				sample_id TEXT NOT NULL,
				method TEXT NOT NULL,
				args TEXT NOT NULL,
				results TEXT NOT NULL,
				error TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (recording_id, seq)
			);

			CREATE INDEX idx_calls_sample ON calls(recording_id, sample_id);
		`,
	},
}

// SQLiteStore keeps recordings of many tests in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dsn and migrates it.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	store := &SQLiteStore{db: db}

	if err := store.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// DB exposes the underlying database.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// Source returns the source of recording id.
func (s *SQLiteStore) Source(id string) *SQLiteSource {
	return &SQLiteSource{store: s, id: id}
}

// IDs lists the stored recording ids, sorted.
func (s *SQLiteStore) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM recordings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan recording id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}

	return ids, nil
}

func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	var currentVersion int

	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current database version: %w", err)
	}

	for _, migration := range migrations {
		if migration.version <= currentVersion {
			continue
		}

		if err := s.executeMigration(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStore) executeMigration(ctx context.Context, migration migration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, migration.sql); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to execute migration %d: %w", migration.version, err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", migration.version)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to update database version to %d: %w", migration.version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.version, err)
	}

	return nil
}

// SQLiteSource is one recording inside a SQLiteStore.
type SQLiteSource struct {
	store *SQLiteStore
	id    string
}

// Save replaces the stored recording. The model's own ID is ignored in favour of the source id.
func (s *SQLiteSource) Save(ctx context.Context, model Model) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := s.save(ctx, tx, model); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recording %s: %w", s.id, err)
	}

	return nil
}

func (s *SQLiteSource) save(ctx context.Context, tx *sql.Tx, model Model) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM calls WHERE recording_id = ?", s.id); err != nil {
		return fmt.Errorf("failed to clear calls of %s: %w", s.id, err)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO recordings (id, recorded_at) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET recorded_at = excluded.recorded_at`,
		s.id, model.RecordedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store recording %s: %w", s.id, err)
	}

	for seq, row := range callRows(model) {
		args, err := json.Marshal(nonNil(row.call.Args))
		if err != nil {
			return fmt.Errorf("failed to encode arguments of %s: %w", row.sampleID, err)
		}

		results, err := json.Marshal(nonNil(row.call.Values))
		if err != nil {
			return fmt.Errorf("failed to encode results of %s: %w", row.sampleID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO calls (recording_id, seq, sample_id, method, args, results, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.id, seq, row.sampleID, row.method, string(args), string(results), row.call.Error)
		if err != nil {
			return fmt.Errorf("failed to store call %d of %s: %w", seq, s.id, err)
		}
	}

	return nil
}

type callRow struct {
	sampleID string
	method   string
	call     CallModel
}

// callRows flattens the model into run order. The row index becomes the stored seq.
func callRows(model Model) []callRow {
	rows := make([]callRow, 0, model.CallCount())

	for _, method := range model.Methods {
		for _, call := range method.Calls {
			rows = append(rows, callRow{sampleID: method.SampleID, method: method.Method, call: call})
		}
	}

	slices.SortStableFunc(rows, func(a, b callRow) int { return cmp.Compare(a.call.Seq, b.call.Seq) })

	return rows
}

// Load reads the stored recording. An unknown id is ErrSourceNotFound.
func (s *SQLiteSource) Load(ctx context.Context) (Model, error) {
	var recordedAt int64

	err := s.store.db.QueryRowContext(ctx, "SELECT recorded_at FROM recordings WHERE id = ?", s.id).Scan(&recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Model{}, fmt.Errorf("%w: sqlite recording %s", ErrSourceNotFound, s.id)
	}

	if err != nil {
		return Model{}, fmt.Errorf("failed to read recording %s: %w", s.id, err)
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT seq, sample_id, method, args, results, error FROM calls WHERE recording_id = ? ORDER BY seq", s.id)
	if err != nil {
		return Model{}, fmt.Errorf("failed to read calls of %s: %w", s.id, err)
	}
	defer func() { _ = rows.Close() }()

	model := Model{ID: s.id, RecordedAt: time.Unix(0, recordedAt).UTC()}
	index := make(map[string]int)

	for rows.Next() {
		var seq int

		var sampleID, method, args, results, callErr string
		if err := rows.Scan(&seq, &sampleID, &method, &args, &results, &callErr); err != nil {
			return Model{}, fmt.Errorf("failed to scan call of %s: %w", s.id, err)
		}

		call := CallModel{Seq: seq, Error: callErr}
		if err := json.Unmarshal([]byte(args), &call.Args); err != nil {
			return Model{}, fmt.Errorf("%w: arguments of %s: %w", ErrMalformedModel, sampleID, err)
		}

		if err := json.Unmarshal([]byte(results), &call.Values); err != nil {
			return Model{}, fmt.Errorf("%w: results of %s: %w", ErrMalformedModel, sampleID, err)
		}

		i, ok := index[sampleID]
		if !ok {
			i = len(model.Methods)
			index[sampleID] = i
			model.Methods = append(model.Methods, MethodModel{SampleID: sampleID, Method: method})
		}

		model.Methods[i].Calls = append(model.Methods[i].Calls, call)
	}

	if err := rows.Err(); err != nil {
		return Model{}, fmt.Errorf("failed to read calls of %s: %w", s.id, err)
	}

	return model, nil
}

func (s *SQLiteSource) String() string {
	return "sqlite:" + s.id
}

func nonNil(values []Raw) []Raw {
	if values == nil {
		return []Raw{}
	}

	return values
}
