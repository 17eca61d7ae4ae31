package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"printkeeper/internal/domain"
)

// defaultListLimit caps list queries that pass no limit
const defaultListLimit = 100

// Repository implements repository.History using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection: sqlite has a single writer and :memory: is per connection
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		pass_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		uri TEXT NOT NULL,
		old_uri TEXT,
		mac TEXT,
		identityless INTEGER NOT NULL DEFAULT 0,
		applied INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dispatches (
		id TEXT PRIMARY KEY,
		queue TEXT NOT NULL,
		title TEXT,
		bytes INTEGER NOT NULL DEFAULT 0,
		attempts INTEGER NOT NULL DEFAULT 0,
		job_id TEXT,
		error TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_actions_pass ON actions(pass_id);
	CREATE INDEX IF NOT EXISTS idx_actions_created ON actions(created_at);
	CREATE INDEX IF NOT EXISTS idx_dispatches_queue ON dispatches(queue);
	CREATE INDEX IF NOT EXISTS idx_dispatches_created ON dispatches(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// RecordActions journals every action of one reconciliation pass in a
// single transaction
func (r *Repository) RecordActions(ctx context.Context, passID string, actions []domain.Action) error {
	if len(actions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO actions (id, pass_id, seq, kind, name, uri, old_uri, mac, identityless, applied, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare action insert: %w", err)
	}
	defer stmt.Close()

	now := r.now().UTC()
	for i, a := range actions {
		_, err := stmt.ExecContext(ctx,
			uuid.NewString(),
			passID,
			i,
			string(a.Kind),
			a.Name,
			a.URI,
			stringToNull(a.OldURI),
			stringToNull(string(a.MAC)),
			boolToInt(a.Identityless),
			boolToInt(a.Applied),
			stringToNull(a.Error),
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert action %s: %w", a, err)
		}
	}

	return tx.Commit()
}

// RecordDispatch journals one job submission. Empty ID and CreatedAt are
// filled in.
func (r *Repository) RecordDispatch(ctx context.Context, entry *domain.DispatchEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dispatches (id, queue, title, bytes, attempts, job_id, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.Queue,
		stringToNull(entry.Title),
		entry.Bytes,
		entry.Attempts,
		stringToNull(entry.JobID),
		stringToNull(entry.Error),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch: %w", err)
	}
	return nil
}

// ListActions returns the most recent actions across passes
func (r *Repository) ListActions(ctx context.Context, limit int) ([]domain.ActionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pass_id, kind, name, uri, old_uri, mac, identityless, applied, error, created_at
		FROM actions
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	return scanActions(rows)
}

// ListPassActions returns the actions of one pass in the order they ran
func (r *Repository) ListPassActions(ctx context.Context, passID string) ([]domain.ActionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pass_id, kind, name, uri, old_uri, mac, identityless, applied, error, created_at
		FROM actions
		WHERE pass_id = ?
		ORDER BY seq ASC
	`, passID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pass actions: %w", err)
	}
	defer rows.Close()

	return scanActions(rows)
}

// ListDispatches returns the most recent dispatches, optionally for one queue
func (r *Repository) ListDispatches(ctx context.Context, queue string, limit int) ([]domain.DispatchEntry, error) {
	query := `
		SELECT id, queue, title, bytes, attempts, job_id, error, created_at
		FROM dispatches
	`
	args := []interface{}{}
	if queue != "" {
		query += ` WHERE queue = ?`
		args = append(args, queue)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatches: %w", err)
	}
	defer rows.Close()

	var entries []domain.DispatchEntry
	for rows.Next() {
		var (
			e                    domain.DispatchEntry
			title, jobID, errMsg sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Queue, &title, &e.Bytes, &e.Attempts, &jobID, &errMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		e.Title = nullToString(title)
		e.JobID = nullToString(jobID)
		e.Error = nullToString(errMsg)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func scanActions(rows *sql.Rows) ([]domain.ActionEntry, error) {
	var entries []domain.ActionEntry
	for rows.Next() {
		var (
			e                     domain.ActionEntry
			kind                  string
			oldURI, mac, errMsg   sql.NullString
			identityless, applied sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.PassID, &kind, &e.Action.Name, &e.Action.URI,
			&oldURI, &mac, &identityless, &applied, &errMsg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		e.Action.Kind = domain.ActionKind(kind)
		e.Action.OldURI = nullToString(oldURI)
		e.Action.MAC = domain.HardwareAddress(nullToString(mac))
		e.Action.Identityless = nullToBool(identityless)
		e.Action.Applied = nullToBool(applied)
		e.Action.Error = nullToString(errMsg)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
