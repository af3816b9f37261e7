package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"semindex/pkg/types"
)

// VecIndexThreshold is the record count above which the SQL-side distance
// path is used when the sqlite-vec extension is compiled in. Below it a
// flat in-process scan is cheaper than the round trip. Either path returns
// the same top-k set.
const VecIndexThreshold = 256

// SQLiteStore implements VectorStore on a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open creates a SQLite-backed store at dbPath, applying any pending
// schema migrations.
func Open(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// validateRecords checks every record and that all vectors share one
// dimensionality, returning it.
func validateRecords(records []types.EmbeddingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	dimension := len(records[0].Vector)
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("record %s: %w", records[i].SymbolID, err)
		}
		if len(records[i].Vector) != dimension {
			return 0, fmt.Errorf("%w: record %s has %d dims, expected %d",
				ErrDimensionMismatch, records[i].SymbolID, len(records[i].Vector), dimension)
		}
	}
	return dimension, nil
}

// ReplaceTable atomically swaps the table's contents inside one
// transaction: the old rows and the new rows never coexist for readers
// after commit, and a failure leaves the previous contents intact.
func (s *SQLiteStore) ReplaceTable(ctx context.Context, name string, records []types.EmbeddingRecord) error {
	if name == "" {
		return ErrEmptyTableName
	}

	dimension, err := validateRecords(records)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vector_tables (name, dimension, record_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET dimension = ?, record_count = ?, updated_at = ?
	`, name, dimension, len(records), now, now, dimension, len(records), now)
	if err != nil {
		return fmt.Errorf("update table row: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM vector_records WHERE table_name = ?", name); err != nil {
		return fmt.Errorf("clear table %s: %w", name, err)
	}

	if err := insertRecords(ctx, tx, name, records); err != nil {
		return err
	}

	return tx.Commit()
}

// Upsert adds or overwrites records by symbol id. The table's recorded
// dimensionality is set on first write and enforced afterwards.
func (s *SQLiteStore) Upsert(ctx context.Context, name string, records []types.EmbeddingRecord) error {
	if name == "" {
		return ErrEmptyTableName
	}
	if len(records) == 0 {
		return nil
	}

	dimension, err := validateRecords(records)
	if err != nil {
		return err
	}

	existing, err := s.TableDimension(ctx, name)
	if err != nil && err != ErrNotFound {
		return err
	}
	if err == nil && existing > 0 && existing != dimension {
		return fmt.Errorf("%w: table %s holds %d dims, got %d", ErrDimensionMismatch, name, existing, dimension)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vector_tables (name, dimension, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET dimension = ?, updated_at = ?
	`, name, dimension, now, now, dimension, now)
	if err != nil {
		return fmt.Errorf("update table row: %w", err)
	}

	if err := insertRecords(ctx, tx, name, records); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE vector_tables
		SET record_count = (SELECT COUNT(*) FROM vector_records WHERE table_name = ?)
		WHERE name = ?
	`, name, name)
	if err != nil {
		return fmt.Errorf("refresh record count: %w", err)
	}

	return tx.Commit()
}

func insertRecords(ctx context.Context, tx *sql.Tx, name string, records []types.EmbeddingRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vector_records
			(table_name, symbol_id, vector, dimension, source_text, file_path, kind, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(table_name, symbol_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			source_text = excluded.source_text,
			file_path = excluded.file_path,
			kind = excluded.kind,
			start_line = excluded.start_line,
			end_line = excluded.end_line
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range records {
		r := &records[i]
		_, err := stmt.ExecContext(ctx, name, r.SymbolID, serializeVector(r.Vector), len(r.Vector),
			r.SourceText, r.Metadata.FilePath, r.Metadata.Kind, r.Metadata.StartLine, r.Metadata.EndLine)
		if err != nil {
			return fmt.Errorf("insert record %s: %w", r.SymbolID, err)
		}
	}
	return nil
}

// Query ranks records against vector under metric. Scores descend, ties
// break by ascending symbol id, topK > count returns everything.
func (s *SQLiteStore) Query(ctx context.Context, name string, vector []float32, topK int, metric Metric) ([]QueryResult, error) {
	if name == "" {
		return nil, ErrEmptyTableName
	}
	if metric == "" {
		metric = MetricCosine
	}

	dimension, err := s.TableDimension(ctx, name)
	if err != nil {
		return nil, err
	}

	count, err := s.Count(ctx, name)
	if err != nil {
		return nil, err
	}
	if count == 0 || topK <= 0 {
		return []QueryResult{}, nil
	}
	if dimension > 0 && len(vector) != dimension {
		return nil, fmt.Errorf("%w: table %s holds %d dims, query has %d", ErrDimensionMismatch, name, dimension, len(vector))
	}
	if topK > count {
		topK = count
	}

	if VectorExtensionAvailable && metric == MetricCosine && count >= VecIndexThreshold {
		return s.queryOptimized(ctx, name, vector, topK)
	}
	return s.queryFallback(ctx, name, vector, topK, metric)
}

// queryOptimized ranks at the database layer via sqlite-vec. Only reached
// in sqlite_vec builds; the distance function call compiles fine either
// way since it is plain SQL text.
func (s *SQLiteStore) queryOptimized(ctx context.Context, name string, vector []float32, topK int) ([]QueryResult, error) {
	queryBlob := serializeVector(vector)

	// vec_distance_cosine returns distance; convert to similarity.
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol_id, vector, source_text, file_path, kind, start_line, end_line,
		       1.0 - vec_distance_cosine(vector, ?) AS similarity
		FROM vector_records
		WHERE table_name = ?
		ORDER BY similarity DESC, symbol_id ASC
		LIMIT ?
	`, queryBlob, name, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]QueryResult, 0, topK)
	for rows.Next() {
		result, err := scanResult(rows, true)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// queryFallback loads the table's records and scores them in Go.
func (s *SQLiteStore) queryFallback(ctx context.Context, name string, vector []float32, topK int, metric Metric) ([]QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol_id, vector, source_text, file_path, kind, start_line, end_line
		FROM vector_records
		WHERE table_name = ?
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []QueryResult
	for rows.Next() {
		result, err := scanResult(rows, false)
		if err != nil {
			return nil, err
		}
		result.Score = scoreVectors(metric, vector, result.Record.Vector)
		candidates = append(candidates, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortResults(candidates)
	if topK > len(candidates) {
		topK = len(candidates)
	}
	return candidates[:topK], nil
}

// scanResult reads one result row; withScore expects a trailing similarity
// column.
func scanResult(rows *sql.Rows, withScore bool) (QueryResult, error) {
	var result QueryResult
	var blob []byte

	dest := []interface{}{
		&result.Record.SymbolID, &blob, &result.Record.SourceText,
		&result.Record.Metadata.FilePath, &result.Record.Metadata.Kind,
		&result.Record.Metadata.StartLine, &result.Record.Metadata.EndLine,
	}
	if withScore {
		dest = append(dest, &result.Score)
	}
	if err := rows.Scan(dest...); err != nil {
		return QueryResult{}, fmt.Errorf("failed to scan result: %w", err)
	}

	result.Record.Vector = deserializeVector(blob)
	return result, nil
}

// Count returns the record count of the named table.
func (s *SQLiteStore) Count(ctx context.Context, name string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vector_records WHERE table_name = ?", name).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// TableDimension returns the recorded dimensionality of the named table,
// or ErrNotFound if it was never written.
func (s *SQLiteStore) TableDimension(ctx context.Context, name string) (int, error) {
	var dimension int
	err := s.db.QueryRowContext(ctx,
		"SELECT dimension FROM vector_tables WHERE name = ?", name).Scan(&dimension)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return dimension, nil
}

// Tables lists the logical table names in creation order.
func (s *SQLiteStore) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM vector_tables ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
