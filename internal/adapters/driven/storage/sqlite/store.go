package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/adwatch/adwatch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/adwatch/adwatch/internal/core/domain"
	"github.com/adwatch/adwatch/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// listing store, exclusion store and run log through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.adwatch/data/adwatch.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".adwatch", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "adwatch.db")

	// WAL keeps the exclusion CLI usable while a run is persisting.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ListingStore returns a ListingStore interface backed by this store.
func (s *Store) ListingStore() driven.ListingStore {
	return &listingStore{store: s}
}

// ExclusionStore returns an ExclusionStore interface backed by this store.
func (s *Store) ExclusionStore() driven.ExclusionStore {
	return &exclusionStore{store: s}
}

// RunLog returns a RunLog interface backed by this store.
func (s *Store) RunLog() driven.RunLog {
	return &runLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// ==================== Listing Store ====================

// listingStore implements driven.ListingStore.
type listingStore struct {
	store *Store
}

var _ driven.ListingStore = (*listingStore)(nil)

// Has reports whether a listing id is already stored.
func (s *listingStore) Has(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM listings WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking listing: %w", err)
	}
	return count > 0, nil
}

// Get retrieves a stored listing by id.
func (s *listingStore) Get(ctx context.Context, id string) (*domain.Listing, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, title, price, url, city, neighborhood, street, house_number,
		       floor, rooms, square_meters, agency, attributes,
		       fetched_at, last_seen_at, removed_at
		FROM listings WHERE id = ?
	`, id)
	return scanListing(row.Scan)
}

// PutAll inserts listings whose ids are not already present, in a single
// transaction. INSERT OR IGNORE keeps existing rows untouched
// (first-seen-wins); the transaction makes the batch all-or-nothing.
func (s *listingStore) PutAll(ctx context.Context, listings []domain.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO listings
			(id, title, price, url, city, neighborhood, street, house_number,
			 floor, rooms, square_meters, agency, attributes,
			 fetched_at, last_seen_at, removed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range listings {
		l := &listings[i]
		attrs, err := marshalAttributes(l.Attributes)
		if err != nil {
			return fmt.Errorf("marshalling attributes for %s: %w", l.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.Title, l.Price, l.URL, l.City, l.Neighborhood, l.Street,
			l.HouseNumber, l.Floor, l.Rooms, l.SquareMeters, l.Agency, attrs,
			l.FetchedAt.UTC(), l.LastSeenAt.UTC()); err != nil {
			return fmt.Errorf("inserting listing %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// MarkSeen bumps last_seen_at and clears removal marks, atomically.
func (s *listingStore) MarkSeen(ctx context.Context, ids []string, at time.Time) error {
	return s.updateBatch(ctx, ids,
		"UPDATE listings SET last_seen_at = ?, removed_at = NULL WHERE id = ?", at)
}

// MarkRemoved records that the ids vanished from the source feed. The
// first removal timestamp is kept.
func (s *listingStore) MarkRemoved(ctx context.Context, ids []string, at time.Time) error {
	return s.updateBatch(ctx, ids,
		"UPDATE listings SET removed_at = ? WHERE id = ? AND removed_at IS NULL", at)
}

func (s *listingStore) updateBatch(ctx context.Context, ids []string, query string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing update: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, at.UTC(), id); err != nil {
			return fmt.Errorf("updating listing %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// All returns a snapshot of every stored listing, newest first.
func (s *listingStore) All(ctx context.Context) ([]domain.Listing, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, title, price, url, city, neighborhood, street, house_number,
		       floor, rooms, square_meters, agency, attributes,
		       fetched_at, last_seen_at, removed_at
		FROM listings ORDER BY fetched_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	var result []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *listing)
	}
	return result, rows.Err()
}

// Count returns the number of stored listings.
func (s *listingStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return count, nil
}

// ==================== Exclusion Store ====================

// exclusionStore implements driven.ExclusionStore.
type exclusionStore struct {
	store *Store
}

var _ driven.ExclusionStore = (*exclusionStore)(nil)

// Add creates an exclusion. The UNIQUE constraint on listing_id plus
// INSERT OR IGNORE makes re-adding an excluded id a no-op.
func (s *exclusionStore) Add(ctx context.Context, exclusion *domain.Exclusion) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO exclusions (id, listing_id, reason, created_at)
		VALUES (?, ?, ?, ?)
	`, exclusion.ID, exclusion.ListingID, exclusion.Reason, exclusion.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("adding exclusion: %w", err)
	}
	return nil
}

// Remove deletes the exclusion for a listing id. No-op when absent.
func (s *exclusionStore) Remove(ctx context.Context, listingID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM exclusions WHERE listing_id = ?", listingID)
	if err != nil {
		return fmt.Errorf("removing exclusion: %w", err)
	}
	return nil
}

// IsExcluded checks whether a listing id is excluded.
func (s *exclusionStore) IsExcluded(ctx context.Context, listingID string) (bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM exclusions WHERE listing_id = ?", listingID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking exclusion: %w", err)
	}
	return count > 0, nil
}

// List returns all exclusions, oldest first.
func (s *exclusionStore) List(ctx context.Context) ([]domain.Exclusion, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, listing_id, reason, created_at
		FROM exclusions ORDER BY created_at, listing_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying exclusions: %w", err)
	}
	defer rows.Close()

	var result []domain.Exclusion
	for rows.Next() {
		var e domain.Exclusion
		if err := rows.Scan(&e.ID, &e.ListingID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning exclusion: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ==================== Run Log ====================

// runLog implements driven.RunLog. Records are insert-only; there is no
// update path.
type runLog struct {
	store *Store
}

var _ driven.RunLog = (*runLog)(nil)

// Append persists a finalized run record.
func (l *runLog) Append(ctx context.Context, record *domain.RunRecord) error {
	failures, err := json.Marshal(record.NotifyFailures)
	if err != nil {
		return fmt.Errorf("marshalling notify failures: %w", err)
	}

	_, err = l.store.db.ExecContext(ctx, `
		INSERT INTO run_records
			(id, started_at, finished_at, state, fetched_count, new_count,
			 known_count, excluded_count, removed_count, notify_failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, record.ID, record.StartedAt.UTC(), record.FinishedAt.UTC(), string(record.State),
		record.FetchedCount, record.NewCount, record.KnownCount,
		record.ExcludedCount, record.RemovedCount, string(failures), record.Error)
	if err != nil {
		return fmt.Errorf("appending run record: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first, up to limit.
func (l *runLog) Recent(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, state, fetched_count, new_count,
		       known_count, excluded_count, removed_count, notify_failures, error
		FROM run_records ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run records: %w", err)
	}
	defer rows.Close()

	var result []domain.RunRecord
	for rows.Next() {
		var r domain.RunRecord
		var state, failures string
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &state,
			&r.FetchedCount, &r.NewCount, &r.KnownCount, &r.ExcludedCount,
			&r.RemovedCount, &failures, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		r.State = domain.RunState(state)
		if err := json.Unmarshal([]byte(failures), &r.NotifyFailures); err != nil {
			return nil, fmt.Errorf("unmarshaling notify failures: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// ==================== Helper Functions ====================

// scanListing scans one listing row via the given Scan function.
func scanListing(scan func(...any) error) (*domain.Listing, error) {
	var l domain.Listing
	var attrs string
	var removedAt sql.NullTime

	err := scan(&l.ID, &l.Title, &l.Price, &l.URL, &l.City, &l.Neighborhood,
		&l.Street, &l.HouseNumber, &l.Floor, &l.Rooms, &l.SquareMeters,
		&l.Agency, &attrs, &l.FetchedAt, &l.LastSeenAt, &removedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning listing: %w", err)
	}

	if removedAt.Valid {
		t := removedAt.Time
		l.RemovedAt = &t
	}
	if attrs != "" && attrs != "{}" {
		if err := json.Unmarshal([]byte(attrs), &l.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshaling attributes: %w", err)
		}
	}
	return &l, nil
}

func marshalAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
