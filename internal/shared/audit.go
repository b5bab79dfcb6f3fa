package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAuditUnavailable is returned when the audit table has not been migrated.
var ErrAuditUnavailable = errors.New("audit trail unavailable")

const pgUndefinedTable = "42P01"

// AuditEntry is one operator action recorded by the console.
type AuditEntry struct {
	ActorID    string
	ActorEmail string
	Action     string
	Entity     string
	EntityIDs  []string
	Meta       map[string]any
	Succeeded  bool
	At         time.Time
}

// AuditLogger writes operator actions into console_audit_logs. A logger
// without a pool discards entries.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Enabled reports whether entries are persisted.
func (l *AuditLogger) Enabled() bool {
	return l != nil && l.pool != nil
}

// Record persists the entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if !l.Enabled() {
		return nil
	}
	if entry.Action == "" || entry.Entity == "" {
		return errors.New("audit entry requires action and entity")
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	idsJSON, err := json.Marshal(entry.EntityIDs)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO console_audit_logs (actor_id, actor_email, action, entity, entity_ids, meta, succeeded, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ActorID, entry.ActorEmail, entry.Action, entry.Entity, idsJSON, metaJSON, entry.Succeeded, entry.At)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
			return fmt.Errorf("%w: %s", ErrAuditUnavailable, pgErr.Message)
		}
		return err
	}
	return nil
}
