package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"slate/internal/config"
)

// Publish is one recorded publish event: an output that was released to the
// pipeline, keyed by its identity path.
type Publish struct {
	ID         int64
	Job        string
	Profile    string
	EntityType string
	Entity     string
	Task       string
	Tag        string
	OutputName string
	Type       string
	Ver        int
	Path       string
	Extn       string
	Owner      string
	Notes      string
	CreatedAt  time.Time
}

// Filter narrows List queries. Zero fields match everything.
type Filter struct {
	Job    string
	Entity string
	Task   string
	Type   string
}

// Store records publishes in SQLite. A nil Store is valid and ignores every
// call, so callers need no enabled check.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS publishes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job TEXT NOT NULL,
    profile TEXT NOT NULL,
    entity_type TEXT NOT NULL,
    entity TEXT NOT NULL,
    task TEXT NOT NULL,
    tag TEXT,
    output_name TEXT,
    type TEXT NOT NULL,
    ver INTEGER NOT NULL,
    path TEXT NOT NULL UNIQUE,
    extn TEXT,
    owner TEXT,
    notes TEXT,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_publishes_entity ON publishes (job, entity);
CREATE INDEX IF NOT EXISTS idx_publishes_created ON publishes (created_at);
`

// Open initializes or connects to the publish registry. Returns nil when
// the registry is disabled. Schema setup is serialized across processes
// with a file lock so concurrent first runs on shared storage stay safe.
func Open(cfg *config.Config) (*Store, error) {
	if !cfg.Registry.Enabled {
		return nil, nil
	}
	dbPath := cfg.RegistryPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure registry dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("lock registry for migration: %w", err)
	}
	if !locked {
		return errors.New("registry migration lock unavailable")
	}
	defer func() {
		_ = lock.Unlock()
	}()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply registry schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record inserts a publish event. Recording the same path again updates the
// existing row rather than duplicating it.
func (s *Store) Record(ctx context.Context, pub Publish) (int64, error) {
	if s == nil {
		return 0, nil
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO publishes (
            job, profile, entity_type, entity, task, tag, output_name,
            type, ver, path, extn, owner, notes, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET
            owner = excluded.owner, notes = excluded.notes,
            created_at = excluded.created_at`,
		pub.Job,
		pub.Profile,
		pub.EntityType,
		pub.Entity,
		pub.Task,
		nullableString(pub.Tag),
		nullableString(pub.OutputName),
		pub.Type,
		pub.Ver,
		pub.Path,
		nullableString(pub.Extn),
		nullableString(pub.Owner),
		nullableString(pub.Notes),
		timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("record publish: %w", err)
	}
	return res.LastInsertId()
}

// List returns publishes matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Publish, error) {
	if s == nil {
		return nil, nil
	}
	query := `SELECT ` + publishColumns + ` FROM publishes`
	var clauses []string
	var args []any
	if filter.Job != "" {
		clauses = append(clauses, "job = ?")
		args = append(args, filter.Job)
	}
	if filter.Entity != "" {
		clauses = append(clauses, "entity = ?")
		args = append(args, filter.Entity)
	}
	if filter.Task != "" {
		clauses = append(clauses, "task = ?")
		args = append(args, filter.Task)
	}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, filter.Type)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list publishes: %w", err)
	}
	defer rows.Close()

	var publishes []*Publish
	for rows.Next() {
		pub, err := scanPublish(rows)
		if err != nil {
			return nil, err
		}
		publishes = append(publishes, pub)
	}
	return publishes, rows.Err()
}

// GetByPath fetches the publish recorded for an identity path, or nil.
func (s *Store) GetByPath(ctx context.Context, path string) (*Publish, error) {
	if s == nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+publishColumns+` FROM publishes WHERE path = ?`, path)
	pub, err := scanPublish(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get publish: %w", err)
	}
	return pub, nil
}

// Stats returns publish counts grouped by type.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT type, COUNT(1) FROM publishes GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("registry stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		stats[typ] = count
	}
	return stats, rows.Err()
}

const publishColumns = "id, job, profile, entity_type, entity, task, tag, output_name, type, ver, path, extn, owner, notes, created_at"

func scanPublish(scanner interface{ Scan(dest ...any) error }) (*Publish, error) {
	var (
		pub        Publish
		tag        sql.NullString
		outputName sql.NullString
		extn       sql.NullString
		owner      sql.NullString
		notes      sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&pub.ID,
		&pub.Job,
		&pub.Profile,
		&pub.EntityType,
		&pub.Entity,
		&pub.Task,
		&tag,
		&outputName,
		&pub.Type,
		&pub.Ver,
		&pub.Path,
		&extn,
		&owner,
		&notes,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	pub.Tag = tag.String
	pub.OutputName = outputName.String
	pub.Extn = extn.String
	pub.Owner = owner.String
	pub.Notes = notes.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		pub.CreatedAt = created
	}
	return &pub, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
