package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createScansTable(tx); err != nil {
			return err
		}
		if err := createFilesTable(tx); err != nil {
			return err
		}
		if err := createFingerprintsTable(tx); err != nil {
			return err
		}
		if err := createParseErrorsTable(tx); err != nil {
			return err
		}
		if err := createAffinityCacheTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Add migration functions here as schema evolves

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createScansTable creates the scans table. One row per workspace scan;
// results hang off the scan id and are removed with it.
func createScansTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS scans (
			id TEXT PRIMARY KEY,
			root TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('running', 'completed', 'failed', 'cancelled')),
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total_files INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create scans table: %w", err)
	}

	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_scans_started_at ON scans(started_at)")
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// createFilesTable creates the files table holding per-file scan records.
func createFilesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			scan_id TEXT NOT NULL,
			filepath TEXT NOT NULL,
			directory TEXT NOT NULL,
			size INTEGER NOT NULL,
			content_hash TEXT NOT NULL,
			function_count INTEGER NOT NULL,
			class_count INTEGER NOT NULL,
			lines INTEGER NOT NULL,
			mod_time TEXT NOT NULL,

			PRIMARY KEY (scan_id, filepath),
			FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create files table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_files_content_hash ON files(scan_id, content_hash)",
		"CREATE INDEX IF NOT EXISTS idx_files_directory ON files(scan_id, directory)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// createFingerprintsTable creates the fingerprints table. Signatures are
// stored as JSON, one row per file per scan.
func createFingerprintsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS fingerprints (
			scan_id TEXT NOT NULL,
			filepath TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			content_sig TEXT NOT NULL,
			structure TEXT NOT NULL,
			dna TEXT NOT NULL,

			PRIMARY KEY (scan_id, filepath),
			FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create fingerprints table: %w", err)
	}
	return nil
}

// createParseErrorsTable creates the parse_errors table recording files
// whose structure extraction degraded during a scan.
func createParseErrorsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS parse_errors (
			scan_id TEXT NOT NULL,
			filepath TEXT NOT NULL,
			message TEXT NOT NULL,

			PRIMARY KEY (scan_id, filepath),
			FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create parse_errors table: %w", err)
	}
	return nil
}

// createAffinityCacheTable creates the affinity_cache table. Pairs are
// stored with file_a < file_b so each unordered pair has one row.
func createAffinityCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS affinity_cache (
			scan_id TEXT NOT NULL,
			file_a TEXT NOT NULL,
			file_b TEXT NOT NULL,
			content REAL NOT NULL CHECK(content >= 0.0 AND content <= 1.0),
			structure REAL NOT NULL CHECK(structure >= 0.0 AND structure <= 1.0),
			dna REAL NOT NULL CHECK(dna >= 0.0 AND dna <= 1.0),
			overall REAL NOT NULL CHECK(overall >= 0.0 AND overall <= 1.0),
			level TEXT NOT NULL,
			hash_match INTEGER NOT NULL DEFAULT 0,

			PRIMARY KEY (scan_id, file_a, file_b),
			FOREIGN KEY (scan_id) REFERENCES scans(id) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create affinity_cache table: %w", err)
	}
	return nil
}
