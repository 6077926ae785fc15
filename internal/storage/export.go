package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"hypermatrix/internal/fingerprint"
)

// ScanExport is the self-contained snapshot of one scan.
type ScanExport struct {
	Scan         *ScanRecord                         `json:"scan"`
	Files        []*fingerprint.FileRecord           `json:"files"`
	Fingerprints map[string]*fingerprint.Fingerprint `json:"fingerprints"`
	ParseErrors  []ParseErrorRecord                  `json:"parseErrors,omitempty"`
}

// ExportScan writes a scan and everything under it as zstd-compressed
// JSON. The snapshot can be archived or loaded elsewhere via ImportScan.
func (db *DB) ExportScan(w io.Writer, scanID string) error {
	scan, err := db.GetScan(scanID)
	if err != nil {
		return err
	}
	if scan == nil {
		return fmt.Errorf("scan %s not found", scanID)
	}

	files, err := db.FilesForScan(scanID)
	if err != nil {
		return err
	}
	fps, err := db.FingerprintsForScan(scanID)
	if err != nil {
		return err
	}
	parseErrors, err := db.ParseErrorsForScan(scanID)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}

	export := ScanExport{Scan: scan, Files: files, Fingerprints: fps, ParseErrors: parseErrors}
	if err := json.NewEncoder(enc).Encode(&export); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return enc.Close()
}

// ImportScan reads a snapshot produced by ExportScan and inserts it. The
// scan id must not already exist.
func (db *DB) ImportScan(r io.Reader) (*ScanRecord, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer dec.Close()

	var export ScanExport
	if err := json.NewDecoder(dec).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	if export.Scan == nil {
		return nil, fmt.Errorf("export carries no scan record")
	}

	existing, err := db.GetScan(export.Scan.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("scan %s already exists", export.Scan.ID)
	}

	if err := db.InsertScan(export.Scan); err != nil {
		return nil, err
	}
	if err := db.UpdateScan(export.Scan); err != nil {
		return nil, err
	}
	if err := db.SaveScanResults(export.Scan.ID, export.Files, export.Fingerprints, export.ParseErrors); err != nil {
		return nil, err
	}
	return export.Scan, nil
}
