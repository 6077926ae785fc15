package storage

import (
	"database/sql"
	"fmt"

	"hypermatrix/internal/affinity"
)

// PutAffinity caches a pair score under a scan. Pairs are normalized so
// the lexically smaller path is file_a; storing (a,b) and (b,a) hits the
// same row.
func (db *DB) PutAffinity(scanID, fileA, fileB string, score affinity.Score) error {
	fileA, fileB = orderPair(fileA, fileB)
	_, err := db.Exec(`
		INSERT INTO affinity_cache (scan_id, file_a, file_b, content, structure, dna, overall, level, hash_match)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scan_id, file_a, file_b) DO UPDATE SET
			content = excluded.content,
			structure = excluded.structure,
			dna = excluded.dna,
			overall = excluded.overall,
			level = excluded.level,
			hash_match = excluded.hash_match
	`, scanID, fileA, fileB, score.Content, score.Structure, score.DNA, score.Overall, string(score.Level), score.HashMatch)
	if err != nil {
		return fmt.Errorf("failed to cache affinity %s/%s: %w", fileA, fileB, err)
	}
	return nil
}

// GetAffinity returns the cached score for a pair, or nil on a miss.
func (db *DB) GetAffinity(scanID, fileA, fileB string) (*affinity.Score, error) {
	fileA, fileB = orderPair(fileA, fileB)
	var (
		score affinity.Score
		level string
	)
	err := db.QueryRow(`
		SELECT content, structure, dna, overall, level, hash_match
		FROM affinity_cache WHERE scan_id = ? AND file_a = ? AND file_b = ?
	`, scanID, fileA, fileB).Scan(&score.Content, &score.Structure, &score.DNA, &score.Overall, &level, &score.HashMatch)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cached affinity %s/%s: %w", fileA, fileB, err)
	}
	score.Level = affinity.Level(level)
	return &score, nil
}

// InvalidateAffinity drops every cached score of a scan. Called when a
// workspace is rescanned so stale pair scores never outlive their inputs.
func (db *DB) InvalidateAffinity(scanID string) error {
	_, err := db.Exec("DELETE FROM affinity_cache WHERE scan_id = ?", scanID)
	if err != nil {
		return fmt.Errorf("failed to invalidate affinity cache for scan %s: %w", scanID, err)
	}
	return nil
}

func orderPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
