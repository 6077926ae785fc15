package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"hypermatrix/internal/fingerprint"
)

// Scan lifecycle status values stored in the scans table.
const (
	ScanRunning   = "running"
	ScanCompleted = "completed"
	ScanFailed    = "failed"
	ScanCancelled = "cancelled"
)

// ScanRecord is one row of the scans table.
type ScanRecord struct {
	ID         string     `json:"id"`
	Root       string     `json:"root"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	TotalFiles int        `json:"totalFiles"`
	Error      string     `json:"error,omitempty"`
}

// ParseErrorRecord is a non-fatal parse failure recorded during a scan.
type ParseErrorRecord struct {
	Filepath string `json:"filepath"`
	Message  string `json:"message"`
}

// InsertScan records a scan in the running state.
func (db *DB) InsertScan(scan *ScanRecord) error {
	_, err := db.Exec(`
		INSERT INTO scans (id, root, status, started_at, total_files, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, scan.ID, scan.Root, scan.Status, scan.StartedAt.Format(time.RFC3339Nano), scan.TotalFiles, scan.Error)
	if err != nil {
		return fmt.Errorf("failed to insert scan %s: %w", scan.ID, err)
	}
	return nil
}

// UpdateScan writes the scan's terminal state.
func (db *DB) UpdateScan(scan *ScanRecord) error {
	var finished interface{}
	if scan.FinishedAt != nil {
		finished = scan.FinishedAt.Format(time.RFC3339Nano)
	}
	_, err := db.Exec(`
		UPDATE scans SET status = ?, finished_at = ?, total_files = ?, error = ?
		WHERE id = ?
	`, scan.Status, finished, scan.TotalFiles, scan.Error, scan.ID)
	if err != nil {
		return fmt.Errorf("failed to update scan %s: %w", scan.ID, err)
	}
	return nil
}

// GetScan loads one scan row, or nil when the id is unknown.
func (db *DB) GetScan(id string) (*ScanRecord, error) {
	row := db.QueryRow(`
		SELECT id, root, status, started_at, finished_at, total_files, error
		FROM scans WHERE id = ?
	`, id)

	scan, err := scanScanRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load scan %s: %w", id, err)
	}
	return scan, nil
}

// ListScans returns all scans, most recent first.
func (db *DB) ListScans() ([]*ScanRecord, error) {
	rows, err := db.Query(`
		SELECT id, root, status, started_at, finished_at, total_files, error
		FROM scans ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var scans []*ScanRecord
	for rows.Next() {
		scan, err := scanScanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

// DeleteScan removes a scan and, via foreign keys, everything under it.
func (db *DB) DeleteScan(id string) error {
	_, err := db.Exec("DELETE FROM scans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete scan %s: %w", id, err)
	}
	return nil
}

func scanScanRow(scanFn func(dest ...interface{}) error) (*ScanRecord, error) {
	var (
		rec        ScanRecord
		startedAt  string
		finishedAt sql.NullString
	)
	if err := scanFn(&rec.ID, &rec.Root, &rec.Status, &startedAt, &finishedAt, &rec.TotalFiles, &rec.Error); err != nil {
		return nil, err
	}

	t, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	rec.StartedAt = t

	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid finished_at %q: %w", finishedAt.String, err)
		}
		rec.FinishedAt = &t
	}
	return &rec, nil
}

// SaveScanResults persists the file records, fingerprints and parse
// errors of a completed scan in a single transaction.
func (db *DB) SaveScanResults(scanID string, records []*fingerprint.FileRecord, fps map[string]*fingerprint.Fingerprint, parseErrors []ParseErrorRecord) error {
	return db.WithTx(func(tx *sql.Tx) error {
		fileStmt, err := tx.Prepare(`
			INSERT INTO files (scan_id, filepath, directory, size, content_hash, function_count, class_count, lines, mod_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer fileStmt.Close()

		fpStmt, err := tx.Prepare(`
			INSERT INTO fingerprints (scan_id, filepath, content_hash, content_sig, structure, dna)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer fpStmt.Close()

		for _, rec := range records {
			_, err := fileStmt.Exec(scanID, rec.Filepath, rec.Directory, rec.Size, rec.ContentHash,
				rec.FunctionCount, rec.ClassCount, rec.Lines, rec.ModTime.Format(time.RFC3339Nano))
			if err != nil {
				return fmt.Errorf("failed to insert file %s: %w", rec.Filepath, err)
			}

			fp, ok := fps[rec.Filepath]
			if !ok {
				continue
			}
			contentSig, err := json.Marshal(fp.ContentSig)
			if err != nil {
				return err
			}
			structure, err := json.Marshal(fp.Structure)
			if err != nil {
				return err
			}
			dna, err := json.Marshal(fp.DNA)
			if err != nil {
				return err
			}
			if _, err := fpStmt.Exec(scanID, rec.Filepath, fp.ContentHash, contentSig, structure, dna); err != nil {
				return fmt.Errorf("failed to insert fingerprint %s: %w", rec.Filepath, err)
			}
		}

		for _, pe := range parseErrors {
			_, err := tx.Exec(`
				INSERT INTO parse_errors (scan_id, filepath, message) VALUES (?, ?, ?)
			`, scanID, pe.Filepath, pe.Message)
			if err != nil {
				return fmt.Errorf("failed to insert parse error %s: %w", pe.Filepath, err)
			}
		}

		return nil
	})
}

// FilesForScan loads every file record of a scan.
func (db *DB) FilesForScan(scanID string) ([]*fingerprint.FileRecord, error) {
	rows, err := db.Query(`
		SELECT filepath, directory, size, content_hash, function_count, class_count, lines, mod_time
		FROM files WHERE scan_id = ? ORDER BY filepath
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load files for scan %s: %w", scanID, err)
	}
	defer rows.Close()

	var records []*fingerprint.FileRecord
	for rows.Next() {
		var (
			rec     fingerprint.FileRecord
			modTime string
		)
		if err := rows.Scan(&rec.Filepath, &rec.Directory, &rec.Size, &rec.ContentHash,
			&rec.FunctionCount, &rec.ClassCount, &rec.Lines, &modTime); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339Nano, modTime)
		if err != nil {
			return nil, fmt.Errorf("invalid mod_time %q: %w", modTime, err)
		}
		rec.ModTime = t
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// FingerprintsForScan loads every fingerprint of a scan keyed by filepath.
func (db *DB) FingerprintsForScan(scanID string) (map[string]*fingerprint.Fingerprint, error) {
	rows, err := db.Query(`
		SELECT filepath, content_hash, content_sig, structure, dna
		FROM fingerprints WHERE scan_id = ?
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints for scan %s: %w", scanID, err)
	}
	defer rows.Close()

	fps := make(map[string]*fingerprint.Fingerprint)
	for rows.Next() {
		var (
			path       string
			fp         fingerprint.Fingerprint
			contentSig []byte
			structure  []byte
			dna        []byte
		)
		if err := rows.Scan(&path, &fp.ContentHash, &contentSig, &structure, &dna); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(contentSig, &fp.ContentSig); err != nil {
			return nil, fmt.Errorf("invalid content_sig for %s: %w", path, err)
		}
		if err := json.Unmarshal(structure, &fp.Structure); err != nil {
			return nil, fmt.Errorf("invalid structure for %s: %w", path, err)
		}
		if err := json.Unmarshal(dna, &fp.DNA); err != nil {
			return nil, fmt.Errorf("invalid dna for %s: %w", path, err)
		}
		fps[path] = &fp
	}
	return fps, rows.Err()
}

// ParseErrorsForScan loads the non-fatal parse failures of a scan.
func (db *DB) ParseErrorsForScan(scanID string) ([]ParseErrorRecord, error) {
	rows, err := db.Query(`
		SELECT filepath, message FROM parse_errors WHERE scan_id = ? ORDER BY filepath
	`, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parse errors for scan %s: %w", scanID, err)
	}
	defer rows.Close()

	var errorsOut []ParseErrorRecord
	for rows.Next() {
		var pe ParseErrorRecord
		if err := rows.Scan(&pe.Filepath, &pe.Message); err != nil {
			return nil, err
		}
		errorsOut = append(errorsOut, pe)
	}
	return errorsOut, rows.Err()
}
