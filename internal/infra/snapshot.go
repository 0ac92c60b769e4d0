package infra

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/codingiran/applicationskit/internal/domain"
)

// Ensure sqlcipher driver is registered.
var _ sqlcipher.SQLiteDriver

const snapshotDBName = "snapshots.db"

// SQLSnapshotStore persists inventory snapshots in a SQLCipher
// encrypted SQLite database so audit history is not readable or
// tamperable by other local users.
type SQLSnapshotStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLSnapshotStore opens (or creates) the encrypted snapshot
// database. The key is applied as the SQLCipher passphrase via
// PRAGMA key in the DSN.
func NewSQLSnapshotStore(dataDir string, key []byte) (*SQLSnapshotStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, snapshotDBName)
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096",
		dbPath, hex.EncodeToString(key))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to snapshot database: %w", err)
	}

	store := &SQLSnapshotStore{db: db, dbPath: dbPath}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot tables: %w", err)
	}
	return store, nil
}

func (s *SQLSnapshotStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		created_at INTEGER NOT NULL,
		app_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS snapshot_apps (
		snapshot_id INTEGER NOT NULL REFERENCES snapshots(id),
		path TEXT NOT NULL,
		bundle_id TEXT NOT NULL,
		name TEXT NOT NULL,
		version TEXT NOT NULL DEFAULT '',
		arch TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (snapshot_id, path, bundle_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save persists one discovery pass under a snapshot name.
func (s *SQLSnapshotStore) Save(name string, apps []domain.Application) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO snapshots (name, created_at, app_count) VALUES (?, ?, ?)`,
		name, time.Now().Unix(), len(apps),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %q: %w", name, err)
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO snapshot_apps (snapshot_id, path, bundle_id, name, version, arch, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, app := range apps {
		if _, err := stmt.Exec(snapshotID, app.Path, app.BundleIdentifier,
			app.Name, app.Version, string(app.Arch), app.BundleSize); err != nil {
			return fmt.Errorf("saving app %s: %w", app.Path, err)
		}
	}
	return tx.Commit()
}

// List returns all snapshots, oldest first.
func (s *SQLSnapshotStore) List() ([]domain.SnapshotInfo, error) {
	rows, err := s.db.Query(`SELECT name, created_at, app_count FROM snapshots ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []domain.SnapshotInfo
	for rows.Next() {
		var info domain.SnapshotInfo
		var created int64
		if err := rows.Scan(&info.Name, &created, &info.AppCount); err != nil {
			return nil, err
		}
		info.CreatedAt = time.Unix(created, 0)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Diff compares two snapshots by (path, bundle identifier) key.
func (s *SQLSnapshotStore) Diff(older, newer string) (*domain.SnapshotDiff, error) {
	before, err := s.loadApps(older)
	if err != nil {
		return nil, err
	}
	after, err := s.loadApps(newer)
	if err != nil {
		return nil, err
	}

	diff := &domain.SnapshotDiff{}
	for key, app := range after {
		old, existed := before[key]
		if !existed {
			diff.Added = append(diff.Added, app)
			continue
		}
		if old.Version != app.Version {
			diff.Changed = append(diff.Changed, domain.AppChange{
				Path:             app.Path,
				BundleIdentifier: app.BundleIdentifier,
				Name:             app.Name,
				OldVersion:       old.Version,
				NewVersion:       app.Version,
			})
		}
	}
	for key, app := range before {
		if _, exists := after[key]; !exists {
			diff.Removed = append(diff.Removed, app)
		}
	}
	return diff, nil
}

func (s *SQLSnapshotStore) loadApps(name string) (map[string]domain.SnapshotApp, error) {
	var snapshotID int64
	err := s.db.QueryRow(`SELECT id FROM snapshots WHERE name = ?`, name).Scan(&snapshotID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT path, bundle_id, name, version, arch, size FROM snapshot_apps WHERE snapshot_id = ?`,
		snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make(map[string]domain.SnapshotApp)
	for rows.Next() {
		var app domain.SnapshotApp
		var arch string
		if err := rows.Scan(&app.Path, &app.BundleIdentifier, &app.Name,
			&app.Version, &arch, &app.BundleSize); err != nil {
			return nil, err
		}
		app.Arch = domain.Arch(arch)
		apps[app.Path+"|"+app.BundleIdentifier] = app
	}
	return apps, rows.Err()
}

// Close closes the underlying database.
func (s *SQLSnapshotStore) Close() error {
	return s.db.Close()
}

var _ domain.SnapshotStore = (*SQLSnapshotStore)(nil)
