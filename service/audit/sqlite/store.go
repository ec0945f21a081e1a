package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/service/audit/sqlite/migrations"
	"github.com/viant/reconciler/service/dao"
	_ "modernc.org/sqlite"
)

// Store persists audit entries in SQLite. UPDATE and DELETE are rejected by
// triggers.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append inserts one entry.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry == nil {
		return dao.ErrNilEntity
	}
	if entry.Seq == 0 || entry.ID == "" {
		return dao.ErrInvalidID
	}
	var payload []byte
	if entry.Payload != nil {
		var err error
		if payload, err = json.Marshal(entry.Payload); err != nil {
			return fmt.Errorf("marshal audit payload: %w", err)
		}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO audit_entries (
	seq,
	id,
	recorded_at,
	actor,
	action,
	invoice_id,
	batch_id,
	payload
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		int64(entry.Seq),
		entry.ID,
		entry.Timestamp.UTC().UnixNano(),
		entry.Actor,
		entry.Action,
		entry.InvoiceID,
		entry.BatchID,
		nullableText(payload),
	)
	if err != nil {
		return fmt.Errorf("append audit entry %d: %w", entry.Seq, err)
	}
	return nil
}

// List returns matching entries ordered by sequence number.
func (s *Store) List(ctx context.Context, parameters ...*dao.Parameter) ([]*audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, args := listQuery(parameters)
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		var (
			seq        int64
			recordedAt int64
			payload    sql.NullString
			entry      = &audit.Entry{}
		)
		if err := rows.Scan(&seq, &entry.ID, &recordedAt, &entry.Actor, &entry.Action, &entry.InvoiceID, &entry.BatchID, &payload); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Seq = uint64(seq)
		entry.Timestamp = time.Unix(0, recordedAt).UTC()
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal audit payload %d: %w", seq, err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest persisted sequence number.
func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	var last sql.NullInt64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT MAX(seq) FROM audit_entries`).Scan(&last); err != nil {
		return 0, fmt.Errorf("query last audit seq: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}

func listQuery(parameters []*dao.Parameter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	for _, column := range []struct{ param, name string }{
		{audit.ParamInvoiceID, "invoice_id"},
		{audit.ParamBatchID, "batch_id"},
		{audit.ParamActor, "actor"},
	} {
		parameter := dao.Lookup(column.param, parameters)
		if parameter == nil {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			where = append(where, column.name+" = ?")
			args = append(args, actual)
		case []string:
			if len(actual) == 0 {
				continue
			}
			where = append(where, column.name+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(actual)), ",")+")")
			for _, value := range actual {
				args = append(args, value)
			}
		}
	}
	if from, ok := audit.TimeParameter(audit.ParamFrom, parameters); ok {
		where = append(where, "recorded_at >= ?")
		args = append(args, from.UTC().UnixNano())
	}
	if to, ok := audit.TimeParameter(audit.ParamTo, parameters); ok {
		where = append(where, "recorded_at < ?")
		args = append(args, to.UTC().UnixNano())
	}
	query := `SELECT seq, id, recorded_at, actor, action, invoice_id, batch_id, payload FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY seq ASC", args
}

func nullableText(data []byte) interface{} {
	if data == nil {
		return nil
	}
	return string(data)
}

var _ audit.Store = (*Store)(nil)
var _ audit.Sequencer = (*Store)(nil)
