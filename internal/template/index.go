package template

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteIndex is a derived, rebuildable {id, version, path} index over the
// registry's filesystem layout. The filesystem (template.json files under
// root) remains the source of truth; this index only spares ListTemplates
// and latestVersion a full directory walk on every call, the way a
// read-path cache sits in front of a canonical store elsewhere in this
// module (internal/dsa.DeltaCache in front of Dgraph). A registry opened
// without an index path falls back to the directory walk unconditionally.
type sqliteIndex struct {
	db *sql.DB
}

func openIndex(path string) (*sqliteIndex, error) {
	if err := ensureParentDir(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("template: open index: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS templates (
		id TEXT NOT NULL,
		version TEXT NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (id, version)
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("template: create index schema: %w", err)
	}
	return &sqliteIndex{db: db}, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (idx *sqliteIndex) close() error {
	return idx.db.Close()
}

func (idx *sqliteIndex) upsert(id, version, path string) error {
	_, err := idx.db.Exec(
		`INSERT INTO templates (id, version, path) VALUES (?, ?, ?)
		 ON CONFLICT(id, version) DO UPDATE SET path = excluded.path`,
		id, version, path,
	)
	if err != nil {
		return fmt.Errorf("template: index upsert: %w", err)
	}
	return nil
}

func (idx *sqliteIndex) remove(id, version string) error {
	_, err := idx.db.Exec(`DELETE FROM templates WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("template: index remove: %w", err)
	}
	return nil
}

func (idx *sqliteIndex) list() ([]TemplateInfo, error) {
	rows, err := idx.db.Query(`SELECT id, version FROM templates ORDER BY id, version`)
	if err != nil {
		return nil, fmt.Errorf("template: index list: %w", err)
	}
	defer rows.Close()

	var infos []TemplateInfo
	for rows.Next() {
		var info TemplateInfo
		if err := rows.Scan(&info.ID, &info.Version); err != nil {
			return nil, fmt.Errorf("template: index scan: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (idx *sqliteIndex) isEmpty() (bool, error) {
	var count int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM templates`).Scan(&count); err != nil {
		return false, fmt.Errorf("template: index count: %w", err)
	}
	return count == 0, nil
}

// rebuild repopulates the index from infos, discovered by a one-time
// directory walk (used when the index is freshly created or found empty).
func (idx *sqliteIndex) rebuild(infos []TemplateInfo, pathFor func(id, version string) string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("template: index rebuild: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM templates`); err != nil {
		tx.Rollback()
		return fmt.Errorf("template: index rebuild: %w", err)
	}
	for _, info := range infos {
		if _, err := tx.Exec(
			`INSERT INTO templates (id, version, path) VALUES (?, ?, ?)
			 ON CONFLICT(id, version) DO UPDATE SET path = excluded.path`,
			info.ID, info.Version, pathFor(info.ID, info.Version),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("template: index rebuild: %w", err)
		}
	}
	return tx.Commit()
}
