package history

import (
	"context"

	"imageservice/imagegen"
	"imageservice/logging"
)

// Recorder persists orchestrator results to the history database. It is the
// glue between the generation engine and this package: the orchestrator
// hands over a record, the recorder queues it on the async writer, and the
// background goroutine lands it in SQLite.
//
// Record never blocks and never fails the generation; when the write buffer
// is full the repository falls back to a synchronous insert, and insert
// errors are only logged.
type Recorder struct {
	repo   *Repository
	writer *AsyncWriter
	db     *Database
	logger *logging.Logger
}

// NewRecorder opens the history database at path, runs migrations, and
// starts the async write processor.
func NewRecorder(path, migrationsPath string, logger *logging.Logger) (*Recorder, error) {
	db, err := NewDatabaseWithConfig(DatabaseConfig{
		Path:           path,
		MigrationsPath: migrationsPath,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	var repo *Repository
	writer := NewAsyncWriter(func(op WriteOperation) error {
		if err := repo.HandleAsyncOp(op); err != nil {
			logger.Warnw("history write failed", "error", err)
		}
		return nil
	})
	repo = NewRepository(db, writer)
	writer.Start()

	return &Recorder{
		repo:   repo,
		writer: writer,
		db:     db,
		logger: logger.Named("history"),
	}, nil
}

// Record implements imagegen.Recorder.
func (r *Recorder) Record(rec imagegen.GenerationRecord) {
	row := GenerationRow{
		CorrelationID:  rec.CorrelationID,
		Prompt:         rec.Prompt,
		EnhancedPrompt: rec.EnhancedPrompt,
		URL:            rec.URL,
		Source:         rec.Source,
		Success:        rec.Success,
		DurationMS:     int(rec.Duration.Milliseconds()),
	}
	if _, err := r.repo.InsertGeneration(context.Background(), row); err != nil {
		r.logger.Warnw("failed to record generation", "error", err)
	}
}

// Repository exposes the underlying repository for queries.
func (r *Recorder) Repository() *Repository {
	return r.repo
}

// Close drains pending writes and closes the database.
func (r *Recorder) Close() error {
	if !r.writer.StopWithTimeout(DefaultDrainTimeout) {
		r.logger.Warn("history writer did not drain before timeout")
	}
	return r.db.Close()
}

// Ensure Recorder satisfies the orchestrator's interface at compile time.
var _ imagegen.Recorder = (*Recorder)(nil)
