package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GenerationRow is a record in the generations table. One row per completed
// orchestration, whether it succeeded, came from the cache, or fell back.
type GenerationRow struct {
	ID             int64     // Auto-incremented primary key
	CorrelationID  string    // Identifier tying logs and history together
	Prompt         string    // Raw user prompt
	EnhancedPrompt string    // Sanitized prompt sent to backends
	URL            string    // Accepted image reference
	Source         string    // Adapter name, "cache", or "fallback"
	Success        bool      // Whether a real adapter produced the URL
	DurationMS     int       // Total orchestration time in milliseconds
	CreatedAt      time.Time // Timestamp when the record was created
}

// asyncInsertOp is the payload queued on the AsyncWriter.
type asyncInsertOp struct {
	query string
	args  []interface{}
}

// Repository provides typed access to the generations table. Writes go
// through the optional AsyncWriter when one is configured and started;
// otherwise they are synchronous.
type Repository struct {
	db          *Database
	asyncWriter *AsyncWriter
}

// NewRepository creates a Repository. asyncWriter may be nil, in which case
// all writes are synchronous.
func NewRepository(db *Database, asyncWriter *AsyncWriter) *Repository {
	return &Repository{db: db, asyncWriter: asyncWriter}
}

// HandleAsyncOp executes a queued insert. Wire this as the AsyncWriter's
// handler.
func (r *Repository) HandleAsyncOp(op WriteOperation) error {
	insert, ok := op.Data.(asyncInsertOp)
	if !ok {
		return fmt.Errorf("history: unexpected async payload %T", op.Data)
	}
	_, err := r.db.Exec(insert.query, insert.args...)
	return err
}

// InsertGeneration records one completed generation.
// Returns the inserted row ID, or 0 when the write was queued asynchronously.
func (r *Repository) InsertGeneration(ctx context.Context, row GenerationRow) (int64, error) {
	if r.db == nil {
		return 0, fmt.Errorf("history: database connection is nil")
	}

	query := `
		INSERT INTO generations (
			correlation_id, prompt, enhanced_prompt, url, source,
			success, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	args := []interface{}{
		row.CorrelationID,
		row.Prompt,
		row.EnhancedPrompt,
		row.URL,
		row.Source,
		row.Success,
		row.DurationMS,
	}

	if r.asyncWriter != nil && r.asyncWriter.IsStarted() {
		if r.asyncWriter.Write(asyncInsertOp{query: query, args: args}) {
			return 0, nil
		}
		// Buffer full; fall through to a synchronous write
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("history: failed to insert generation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: failed to get last insert id: %w", err)
	}
	return id, nil
}

// QueryRecent retrieves the most recent generations, newest first.
func (r *Repository) QueryRecent(ctx context.Context, limit int) ([]GenerationRow, error) {
	if r.db == nil {
		return nil, fmt.Errorf("history: database connection is nil")
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, correlation_id, COALESCE(prompt, ''),
			   COALESCE(enhanced_prompt, ''), COALESCE(url, ''),
			   source, success, COALESCE(duration_ms, 0), created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: failed to query generations: %w", err)
	}
	defer rows.Close()

	return scanGenerations(rows)
}

// QueryByCorrelationID retrieves the generations for one correlation ID.
func (r *Repository) QueryByCorrelationID(ctx context.Context, correlationID string) ([]GenerationRow, error) {
	if r.db == nil {
		return nil, fmt.Errorf("history: database connection is nil")
	}

	query := `
		SELECT id, correlation_id, COALESCE(prompt, ''),
			   COALESCE(enhanced_prompt, ''), COALESCE(url, ''),
			   source, success, COALESCE(duration_ms, 0), created_at
		FROM generations
		WHERE correlation_id = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("history: failed to query generations: %w", err)
	}
	defer rows.Close()

	return scanGenerations(rows)
}

// CountBySource returns the number of generations per source tag.
func (r *Repository) CountBySource(ctx context.Context) (map[string]int, error) {
	if r.db == nil {
		return nil, fmt.Errorf("history: database connection is nil")
	}

	rows, err := r.db.Query(`SELECT source, COUNT(*) FROM generations GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("history: failed to count generations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("history: failed to scan count row: %w", err)
		}
		counts[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: error iterating count rows: %w", err)
	}
	return counts, nil
}

// scanGenerations reads GenerationRow values from a query over the standard
// column set.
func scanGenerations(rows *sql.Rows) ([]GenerationRow, error) {
	var records []GenerationRow
	for rows.Next() {
		var rec GenerationRow
		var createdAt string

		err := rows.Scan(
			&rec.ID,
			&rec.CorrelationID,
			&rec.Prompt,
			&rec.EnhancedPrompt,
			&rec.URL,
			&rec.Source,
			&rec.Success,
			&rec.DurationMS,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("history: failed to scan generation row: %w", err)
		}

		// SQLite stores CURRENT_TIMESTAMP as "2006-01-02 15:04:05"
		rec.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: error iterating generation rows: %w", err)
	}
	return records, nil
}
