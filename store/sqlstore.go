package store

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MemoryPath opens a private in-memory database, used by tests.
const MemoryPath = ":memory:"

// SQLStore is the sqlite implementation of Store.
//
// The pool is limited to a single connection so every read-then-write
// sequence issued through Save runs serialized against the database file.
type SQLStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLStore)(nil)

// Open opens (creating if needed) the sqlite database at path and applies
// connection pragmas. Call Migrate before using the store.
func Open(path string) (*SQLStore, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "failed to apply pragma %q", pragma)
		}
	}

	return &SQLStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.path
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate applies every embedded migration that has not been recorded in
// schema_migrations yet and returns the versions it applied.
func (s *SQLStore) Migrate(ctx context.Context) ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migrations directory")
	}

	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema_migrations table")
	}

	var applied []string
	for _, migration := range migrations {
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE version = ?", migration).Scan(&count)
		if err != nil {
			return applied, errors.Wrapf(err, "failed to check migration status for %s", migration)
		}
		if count > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + migration)
		if err != nil {
			return applied, errors.Wrapf(err, "failed to read migration %s", migration)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return applied, errors.Wrapf(err, "failed to begin transaction for %s", migration)
		}

		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return applied, errors.Wrapf(err, "failed to execute migration %s", migration)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", migration); err != nil {
			_ = tx.Rollback()
			return applied, errors.Wrapf(err, "failed to record migration %s", migration)
		}

		if err := tx.Commit(); err != nil {
			return applied, errors.Wrapf(err, "failed to commit migration %s", migration)
		}
		applied = append(applied, migration)
	}

	return applied, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (*IdMapping, error) {
	var m IdMapping
	var kind int
	if err := row.Scan(&m.SourceID, &kind, &m.TargetID, &m.Credential); err != nil {
		return nil, err
	}
	m.Kind = Kind(kind)
	return &m, nil
}

const mappingColumns = "source_id, kind, target_id, credential"

// GetMapping returns the mapping for (sourceID, kind), or nil when none exists.
func (s *SQLStore) GetMapping(ctx context.Context, sourceID string, kind Kind) (*IdMapping, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mappingColumns+" FROM mappings WHERE source_id = ? AND kind = ?", sourceID, int(kind))
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s mapping for %s", kind, sourceID)
	}
	return m, nil
}

// Save inserts or updates the mapping keyed by (SourceID, Kind). A row whose
// target id is already set can only be re-saved with the same target id; any
// other value yields a *ConflictError and leaves the row untouched.
func (s *SQLStore) Save(ctx context.Context, mapping IdMapping) error {
	if mapping.SourceID == "" {
		return errors.New("mapping source id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin save transaction")
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx,
		"SELECT "+mappingColumns+" FROM mappings WHERE source_id = ? AND kind = ?", mapping.SourceID, int(mapping.Kind))
	existing, err := scanMapping(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			"INSERT INTO mappings ("+mappingColumns+") VALUES (?, ?, ?, ?)",
			mapping.SourceID, int(mapping.Kind), mapping.TargetID, mapping.Credential)
		if err != nil {
			return errors.Wrapf(err, "failed to insert %s mapping for %s", mapping.Kind, mapping.SourceID)
		}
	case err != nil:
		return errors.Wrapf(err, "failed to read %s mapping for %s", mapping.Kind, mapping.SourceID)
	default:
		if existing.TargetID != "" && mapping.TargetID != existing.TargetID {
			return &ConflictError{
				SourceID:       mapping.SourceID,
				Kind:           mapping.Kind,
				ExistingTarget: existing.TargetID,
				NewTarget:      mapping.TargetID,
			}
		}
		credential := mapping.Credential
		if credential == "" {
			credential = existing.Credential
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE mappings SET target_id = ?, credential = ? WHERE source_id = ? AND kind = ?",
			mapping.TargetID, credential, mapping.SourceID, int(mapping.Kind))
		if err != nil {
			return errors.Wrapf(err, "failed to update %s mapping for %s", mapping.Kind, mapping.SourceID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit mapping")
}

// GetByTargetID resolves a Matrix id back to the mapping that produced it.
func (s *SQLStore) GetByTargetID(ctx context.Context, targetID string) (*IdMapping, error) {
	if targetID == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mappingColumns+" FROM mappings WHERE target_id = ? LIMIT 1", targetID)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get mapping for target %s", targetID)
	}
	return m, nil
}

// GetUserByName finds the user mapping whose Matrix localpart matches the
// given Rocket.Chat username, ignoring case.
func (s *SQLStore) GetUserByName(ctx context.Context, name string) (*IdMapping, error) {
	if name == "" {
		return nil, nil
	}
	pattern := "@" + escapeLike(FoldName(name)) + ":%"
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mappingColumns+" FROM mappings WHERE kind = ? AND lower(target_id) LIKE ? ESCAPE '\\' LIMIT 1",
		int(KindUser), pattern)
	m, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get user mapping for name %s", name)
	}
	return m, nil
}

// ListByKind returns every mapping of the given kind in insertion order.
func (s *SQLStore) ListByKind(ctx context.Context, kind Kind) ([]IdMapping, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+mappingColumns+" FROM mappings WHERE kind = ? ORDER BY rowid", int(kind))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s mappings", kind)
	}
	defer rows.Close()

	var mappings []IdMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s mapping", kind)
		}
		mappings = append(mappings, *m)
	}
	return mappings, errors.Wrap(rows.Err(), "failed to iterate mappings")
}

// CreateMembership records that the user belongs to the room. Recording the
// same pair again is a no-op.
func (s *SQLStore) CreateMembership(ctx context.Context, sourceRoomID, sourceUserID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO memberships (source_room_id, source_user_id) VALUES (?, ?)",
		sourceRoomID, sourceUserID)
	if err != nil {
		return errors.Wrapf(err, "failed to create membership of %s in %s", sourceUserID, sourceRoomID)
	}
	return nil
}

// ListMembers returns the source user ids recorded for a room, in the order
// they were first recorded.
func (s *SQLStore) ListMembers(ctx context.Context, sourceRoomID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_user_id FROM memberships WHERE source_room_id = ? ORDER BY seq", sourceRoomID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list members of %s", sourceRoomID)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, errors.Wrap(err, "failed to scan membership")
		}
		members = append(members, userID)
	}
	return members, errors.Wrap(rows.Err(), "failed to iterate memberships")
}

// FoldName normalizes a username for case-insensitive comparison.
func FoldName(name string) string {
	return cases.Fold().String(name)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
