package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lid-inspector/internal/domain/entity"
	"lid-inspector/internal/domain/port"
)

const (
	journalSchemaVersion = 1

	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// фиксированная ширина, чтобы строки сортировались по времени
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrJournalSchemaMismatch версия схемы журнала не совпадает с ожидаемой.
var ErrJournalSchemaMismatch = errors.New("journal schema version mismatch")

const journalSchemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS verdicts (
	id          TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	epoch       INTEGER NOT NULL,
	file        TEXT NOT NULL,
	state       TEXT NOT NULL,
	verdict     TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	confidence  INTEGER NOT NULL DEFAULT 0,
	attempts    INTEGER NOT NULL DEFAULT 0,
	strictness  INTEGER NOT NULL,
	no_brand    INTEGER NOT NULL DEFAULT 0,
	decided_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verdicts_decided_at ON verdicts(decided_at);
`

const journalColumns = "id, run_id, epoch, file, state, verdict, reason, confidence, attempts, strictness, no_brand, decided_at"

// Journal журнал вердиктов в SQLite. Конвейер его только пополняет.
type Journal struct {
	db   *sql.DB
	path string
}

// OpenJournal открывает или создаёт базу журнала в каталоге stateDir.
func OpenJournal(ctx context.Context, stateDir string) (*Journal, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure state dir: %w", err)
	}

	path := filepath.Join(stateDir, "journal.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path путь к файлу базы.
func (j *Journal) Path() string {
	return j.path
}

// Close закрывает соединение.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) initSchema(ctx context.Context) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, journalSchemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", journalSchemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version != journalSchemaVersion:
		return fmt.Errorf("%w: database has version %d, expected %d", ErrJournalSchemaMismatch, version, journalSchemaVersion)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Append сохраняет запись журнала.
func (j *Journal) Append(ctx context.Context, e entity.JournalEntry) error {
	noBrand := 0
	if e.NoBrand {
		noBrand = 1
	}
	query := "INSERT INTO verdicts (" + journalColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	err := retryOnBusy(ctx, func() error {
		_, err := j.db.ExecContext(ctx, query,
			e.ID,
			e.RunID,
			int64(e.Epoch),
			e.File,
			string(e.State),
			string(e.Verdict),
			e.Reason,
			e.Confidence,
			e.Attempts,
			e.Strictness,
			noBrand,
			e.DecidedAt.UTC().Format(timeLayout),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("append journal entry %s: %w", e.File, err)
	}
	return nil
}

// Recent возвращает до limit последних записей, новые первыми.
func (j *Journal) Recent(ctx context.Context, limit int) ([]entity.JournalEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT "+journalColumns+" FROM verdicts ORDER BY decided_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []entity.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (entity.JournalEntry, error) {
	var (
		e          entity.JournalEntry
		epoch      int64
		state      string
		verdict    string
		noBrand    int
		decidedRaw string
	)
	if err := scanner.Scan(
		&e.ID,
		&e.RunID,
		&epoch,
		&e.File,
		&state,
		&verdict,
		&e.Reason,
		&e.Confidence,
		&e.Attempts,
		&e.Strictness,
		&noBrand,
		&decidedRaw,
	); err != nil {
		return entity.JournalEntry{}, fmt.Errorf("scan journal entry: %w", err)
	}
	e.Epoch = uint64(epoch)
	e.State = entity.RecordState(state)
	e.Verdict = entity.Verdict(verdict)
	e.NoBrand = noBrand != 0
	if t, err := time.Parse(timeLayout, decidedRaw); err == nil {
		e.DecidedAt = t
	}
	return e, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

var _ port.Journal = (*Journal)(nil)
