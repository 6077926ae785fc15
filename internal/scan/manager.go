package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hypermatrix/internal/config"
	"hypermatrix/internal/errors"
	"hypermatrix/internal/fingerprint"
	"hypermatrix/internal/logging"
	"hypermatrix/internal/storage"
)

// Manager owns the scan lifecycle: it starts scans, tracks the running
// ones so they can be cancelled, and persists results through storage.
type Manager struct {
	db     *storage.DB
	cfg    *config.Config
	logger *logging.Logger

	mu     sync.Mutex
	active map[string]*activeScan
}

type activeScan struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a scan manager over the given database.
func NewManager(db *storage.DB, cfg *config.Config, logger *logging.Logger) *Manager {
	return &Manager{
		db:     db,
		cfg:    cfg,
		logger: logger.WithComponent("scan"),
		active: make(map[string]*activeScan),
	}
}

// Start launches an asynchronous scan of the given root and returns its
// record immediately in the running state.
func (m *Manager) Start(root string) (*storage.ScanRecord, error) {
	scan := &storage.ScanRecord{
		ID:        uuid.New().String(),
		Root:      root,
		Status:    storage.ScanRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := m.db.InsertScan(scan); err != nil {
		return nil, errors.Wrap(errors.InternalError, "recording scan", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	as := &activeScan{cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.active[scan.ID] = as
	m.mu.Unlock()

	go func() {
		defer close(as.done)
		defer cancel()
		m.run(ctx, scan)

		m.mu.Lock()
		delete(m.active, scan.ID)
		m.mu.Unlock()
	}()

	return scan, nil
}

// Run performs a scan synchronously and returns its terminal record.
func (m *Manager) Run(ctx context.Context, root string) (*storage.ScanRecord, error) {
	scan := &storage.ScanRecord{
		ID:        uuid.New().String(),
		Root:      root,
		Status:    storage.ScanRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := m.db.InsertScan(scan); err != nil {
		return nil, errors.Wrap(errors.InternalError, "recording scan", err)
	}

	m.run(ctx, scan)
	if scan.Status == storage.ScanFailed {
		return scan, errors.New(errors.InternalError, scan.Error)
	}
	if scan.Status == storage.ScanCancelled {
		return scan, errors.New(errors.Cancelled, "scan cancelled")
	}
	return scan, nil
}

// run walks, fingerprints and persists; it always leaves the scan in a
// terminal state.
func (m *Manager) run(ctx context.Context, scan *storage.ScanRecord) {
	start := time.Now()
	m.logger.Info("scan started", map[string]interface{}{
		"scan_id": scan.ID, "root": scan.Root,
	})

	walker := NewWalker(scan.Root, m.cfg.Scan.MaxFileSizeBytes, m.cfg.Scan.IgnorePatterns, m.cfg.Scan.FollowSymlinks, m.logger)
	inputs, err := walker.Walk(ctx)
	if err != nil {
		m.finish(scan, err)
		return
	}

	results, err := fingerprint.ComputeAll(ctx, inputs, m.cfg.Scan.Workers)
	if err != nil {
		m.finish(scan, err)
		return
	}

	records := make([]*fingerprint.FileRecord, 0, len(results))
	fps := make(map[string]*fingerprint.Fingerprint, len(results))
	var parseErrors []storage.ParseErrorRecord

	for _, res := range results {
		if res.Record == nil {
			continue
		}
		records = append(records, res.Record)
		if res.Fingerprint != nil {
			fps[res.Record.Filepath] = res.Fingerprint
		}
		if res.Err != nil && errors.Is(res.Err, errors.ParseError) {
			parseErrors = append(parseErrors, storage.ParseErrorRecord{
				Filepath: res.Record.Filepath,
				Message:  res.Err.Error(),
			})
		}
	}

	if err := m.db.InvalidateAffinity(scan.ID); err != nil {
		m.finish(scan, err)
		return
	}
	if err := m.db.SaveScanResults(scan.ID, records, fps, parseErrors); err != nil {
		m.finish(scan, err)
		return
	}

	scan.TotalFiles = len(records)
	m.finish(scan, nil)

	m.logger.Info("scan finished", map[string]interface{}{
		"scan_id":      scan.ID,
		"status":       scan.Status,
		"files":        len(records),
		"parse_errors": len(parseErrors),
		"duration_ms":  time.Since(start).Milliseconds(),
	})
}

func (m *Manager) finish(scan *storage.ScanRecord, err error) {
	now := time.Now().UTC()
	scan.FinishedAt = &now

	switch {
	case err == nil:
		scan.Status = storage.ScanCompleted
	case errors.Is(err, errors.Cancelled):
		scan.Status = storage.ScanCancelled
		scan.Error = err.Error()
	default:
		scan.Status = storage.ScanFailed
		scan.Error = err.Error()
		m.logger.Error("scan failed", map[string]interface{}{
			"scan_id": scan.ID, "error": err.Error(),
		})
	}

	if dbErr := m.db.UpdateScan(scan); dbErr != nil {
		m.logger.Error("failed to persist scan state", map[string]interface{}{
			"scan_id": scan.ID, "error": dbErr.Error(),
		})
	}
}

// Cancel stops a running scan. Cancelling a finished scan is an error.
func (m *Manager) Cancel(scanID string) error {
	m.mu.Lock()
	as, ok := m.active[scanID]
	m.mu.Unlock()

	if !ok {
		scan, err := m.Get(scanID)
		if err != nil {
			return err
		}
		return errors.Newf(errors.ScopeInvalid, "scan %s already %s", scanID, scan.Status)
	}

	as.cancel()
	<-as.done
	return nil
}

// Wait blocks until the scan's goroutine has finished. Idle scans return
// immediately.
func (m *Manager) Wait(scanID string) {
	m.mu.Lock()
	as, ok := m.active[scanID]
	m.mu.Unlock()
	if ok {
		<-as.done
	}
}

// Get loads a scan record by id.
func (m *Manager) Get(scanID string) (*storage.ScanRecord, error) {
	scan, err := m.db.GetScan(scanID)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "loading scan", err)
	}
	if scan == nil {
		return nil, errors.Newf(errors.ScanNotFound, "no scan with id %s", scanID)
	}
	return scan, nil
}

// List returns all scans, most recent first.
func (m *Manager) List() ([]*storage.ScanRecord, error) {
	scans, err := m.db.ListScans()
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "listing scans", err)
	}
	return scans, nil
}

// Delete removes a finished scan and its results.
func (m *Manager) Delete(scanID string) error {
	m.mu.Lock()
	_, running := m.active[scanID]
	m.mu.Unlock()
	if running {
		return errors.Newf(errors.ScopeInvalid, "scan %s is still running", scanID)
	}

	if _, err := m.Get(scanID); err != nil {
		return err
	}
	if err := m.db.DeleteScan(scanID); err != nil {
		return errors.Wrap(errors.InternalError, fmt.Sprintf("deleting scan %s", scanID), err)
	}
	return nil
}
