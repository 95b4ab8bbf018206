// Copyright 2025 RenoScope
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"renoscope/platform/shared/logger"
)

// AuditEntry is one audited pipeline stage: which photo, which stage, how it
// went, and what the LLM layer spent doing it.
type AuditEntry struct {
	ID           string                 `json:"id"`
	RequestID    string                 `json:"request_id"`
	Timestamp    time.Time              `json:"timestamp"`
	PhotoRef     string                 `json:"photo_ref"`
	Grade        string                 `json:"grade"`
	Stage        string                 `json:"stage"`
	Status       string                 `json:"status"`
	DurationMS   int64                  `json:"duration_ms"`
	Provider     string                 `json:"provider,omitempty"`
	Model        string                 `json:"model,omitempty"`
	TokensUsed   int                    `json:"tokens_used,omitempty"`
	Cost         float64                `json:"cost,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Detail       map[string]interface{} `json:"detail,omitempty"`
}

// AuditLogger persists stage audit entries to Postgres asynchronously.
// Entries flow through a buffered queue into a batch writer so the analysis
// path never blocks on the database. When no database is configured the
// logger degrades to a no-op.
type AuditLogger struct {
	db           *sql.DB
	batchWriter  *batchWriter
	auditQueue   chan *AuditEntry
	wg           sync.WaitGroup
	shutdownChan chan struct{}
	log          *logger.Logger
}

// NewAuditLogger opens the audit database and starts the background writer.
// An empty databaseURL or a failed open yields a no-op logger.
func NewAuditLogger(databaseURL string) *AuditLogger {
	al := &AuditLogger{
		auditQueue:   make(chan *AuditEntry, 10000),
		shutdownChan: make(chan struct{}),
		log:          logger.New("orchestrator"),
	}

	if databaseURL == "" {
		return al
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		al.log.Error("", "audit database unavailable, auditing disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return al
	}

	if err := createAuditTables(db); err != nil {
		al.log.Error("", "failed to create audit tables", map[string]interface{}{
			"error": err.Error(),
		})
	}

	al.db = db
	al.batchWriter = newBatchWriter(db, 100)

	al.wg.Add(1)
	go al.processQueue()

	return al
}

// LogStage records one finished pipeline stage. A no-op logger discards the
// entry immediately so the queue never fills.
func (l *AuditLogger) LogStage(requestID, photoRef, grade string, stage StageResult, detail map[string]interface{}) {
	if l.db == nil {
		return
	}
	entry := &AuditEntry{
		ID:           fmt.Sprintf("audit_%s", uuid.New().String()),
		RequestID:    requestID,
		Timestamp:    time.Now().UTC(),
		PhotoRef:     photoRef,
		Grade:        grade,
		Stage:        stage.Name,
		Status:       stage.Status,
		DurationMS:   stage.DurationMS,
		ErrorMessage: stage.Error,
		Detail:       detail,
	}
	if detail != nil {
		if provider, ok := detail["provider"].(string); ok {
			entry.Provider = provider
		}
		if model, ok := detail["model"].(string); ok {
			entry.Model = model
		}
		if tokens, ok := detail["tokens_used"].(int); ok {
			entry.TokensUsed = tokens
		}
		if cost, ok := detail["cost"].(float64); ok {
			entry.Cost = cost
		}
	}
	l.enqueue(entry)
}

func (l *AuditLogger) enqueue(entry *AuditEntry) {
	select {
	case l.auditQueue <- entry:
	default:
		// Queue full; write synchronously rather than drop the entry.
		if l.batchWriter != nil {
			_ = l.batchWriter.write([]*AuditEntry{entry})
		}
	}
}

func (l *AuditLogger) processQueue() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry := <-l.auditQueue:
			l.batchWriter.add(entry)
		case <-ticker.C:
			l.batchWriter.Flush()
		case <-l.shutdownChan:
			l.drain()
			l.batchWriter.Flush()
			return
		}
	}
}

func (l *AuditLogger) drain() {
	for {
		select {
		case entry := <-l.auditQueue:
			l.batchWriter.add(entry)
		default:
			return
		}
	}
}

// RecentEntries returns the latest audit rows for a request, newest first.
func (l *AuditLogger) RecentEntries(ctx context.Context, requestID string, limit int) ([]*AuditEntry, error) {
	if l.db == nil {
		return []*AuditEntry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, request_id, timestamp, photo_ref, grade, stage, status,
			   duration_ms, provider, model, tokens_used, cost, error_message, detail
		FROM analysis_audit
		WHERE request_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`, requestID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var detailJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.Timestamp,
			&entry.PhotoRef,
			&entry.Grade,
			&entry.Stage,
			&entry.Status,
			&entry.DurationMS,
			&entry.Provider,
			&entry.Model,
			&entry.TokensUsed,
			&entry.Cost,
			&entry.ErrorMessage,
			&detailJSON,
		)
		if err != nil {
			return nil, err
		}
		_ = json.Unmarshal(detailJSON, &entry.Detail)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// IsHealthy reports whether the audit database is reachable. A no-op logger
// is always healthy.
func (l *AuditLogger) IsHealthy() bool {
	if l.db == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return l.db.PingContext(ctx) == nil
}

// Shutdown flushes pending entries and stops the background writer.
func (l *AuditLogger) Shutdown() {
	close(l.shutdownChan)
	if l.db == nil {
		return
	}
	l.wg.Wait()
	l.batchWriter.stop()
	_ = l.db.Close()
}

// batchWriter accumulates entries and writes them in a single transaction
// once the batch fills or the flush ticker fires.
type batchWriter struct {
	db          *sql.DB
	batchSize   int
	flushTicker *time.Ticker
	entries     []*AuditEntry
	mu          sync.Mutex
}

func newBatchWriter(db *sql.DB, batchSize int) *batchWriter {
	w := &batchWriter{
		db:          db,
		batchSize:   batchSize,
		entries:     make([]*AuditEntry, 0, batchSize),
		flushTicker: time.NewTicker(10 * time.Second),
	}
	go w.periodicFlush()
	return w
}

func (w *batchWriter) add(entry *AuditEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.entries = append(w.entries, entry)
	if len(w.entries) >= w.batchSize {
		w.flushLocked()
	}
}

func (w *batchWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *batchWriter) flushLocked() {
	if len(w.entries) == 0 {
		return
	}
	_ = w.write(w.entries)
	w.entries = w.entries[:0]
}

func (w *batchWriter) write(entries []*AuditEntry) error {
	if w.db == nil {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO analysis_audit (
			id, request_id, timestamp, photo_ref, grade, stage, status,
			duration_ms, provider, model, tokens_used, cost, error_message, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, entry := range entries {
		detailJSON, _ := json.Marshal(entry.Detail)
		if _, err := stmt.Exec(
			entry.ID,
			entry.RequestID,
			entry.Timestamp,
			entry.PhotoRef,
			entry.Grade,
			entry.Stage,
			entry.Status,
			entry.DurationMS,
			entry.Provider,
			entry.Model,
			entry.TokensUsed,
			entry.Cost,
			entry.ErrorMessage,
			detailJSON,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (w *batchWriter) periodicFlush() {
	for range w.flushTicker.C {
		w.Flush()
	}
}

func (w *batchWriter) stop() {
	w.flushTicker.Stop()
}

func createAuditTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS analysis_audit (
		id VARCHAR(255) PRIMARY KEY,
		request_id VARCHAR(255) NOT NULL,
		timestamp TIMESTAMP NOT NULL,
		photo_ref VARCHAR(1024),
		grade VARCHAR(20),
		stage VARCHAR(50) NOT NULL,
		status VARCHAR(20) NOT NULL,
		duration_ms BIGINT,
		provider VARCHAR(50),
		model VARCHAR(100),
		tokens_used INTEGER,
		cost DECIMAL(10, 6),
		error_message TEXT,
		detail JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_analysis_audit_request_id ON analysis_audit(request_id);
	CREATE INDEX IF NOT EXISTS idx_analysis_audit_timestamp ON analysis_audit(timestamp);
	CREATE INDEX IF NOT EXISTS idx_analysis_audit_stage ON analysis_audit(stage);
	`
	_, err := db.Exec(query)
	return err
}
