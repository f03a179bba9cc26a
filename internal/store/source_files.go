package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// SourceFile is an archived copy of an imported spreadsheet.
type SourceFile struct {
	ID          int64
	ImportRunID sql.NullInt64
	ImportedAt  time.Time
	LocationID  string
	FileName    string
	Compressed  []byte
	Hash        string
	SizeBytes   int64
}

// HashContent returns the hex SHA-256 used to deduplicate archived files.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// StoreSourceFile archives a gzip-compressed copy of content. duplicate is
// true when the same bytes were archived before, in which case nothing is
// written.
func (s *Store) StoreSourceFile(runID int64, locationID, name string, content []byte) (duplicate bool, err error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(content); err != nil {
		return false, fmt.Errorf("compress source file: %w", err)
	}
	if err := gz.Close(); err != nil {
		return false, fmt.Errorf("close gzip: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO source_files
		(import_run_id, imported_at, location_id, file_name, content_compressed, content_hash, size_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`, sql.NullInt64{Int64: runID, Valid: runID != 0}, time.Now().UTC(), locationID, name,
		buf.Bytes(), HashContent(content), len(content))
	if err != nil {
		return false, fmt.Errorf("insert source file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// GetSourceFile returns the decompressed content of an archived file.
func (s *Store) GetSourceFile(hash string) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT content_compressed FROM source_files WHERE content_hash = ?`, hash).
		Scan(&compressed)
	if err != nil {
		return nil, err
	}

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

// GetSourceFileByHash returns the archive entry for hash, or nil.
func (s *Store) GetSourceFileByHash(hash string) (*SourceFile, error) {
	row := s.db.QueryRow(`
		SELECT id, import_run_id, imported_at, location_id, file_name,
		       content_compressed, content_hash, size_bytes
		FROM source_files WHERE content_hash = ?
	`, hash)

	var f SourceFile
	err := row.Scan(&f.ID, &f.ImportRunID, &f.ImportedAt, &f.LocationID, &f.FileName,
		&f.Compressed, &f.Hash, &f.SizeBytes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CleanupOldSourceFiles deletes archived files older than retentionDays.
// Returns the number of deleted records.
func (s *Store) CleanupOldSourceFiles(retentionDays int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM source_files
		WHERE imported_at < DATE('now', '-' || ? || ' days')
	`, retentionDays)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
