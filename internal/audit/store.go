package audit

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type Store interface {
	Insert(ctx context.Context, m *AuditLog) error
	List(ctx context.Context, q ListQuery, limit, offset int) ([]AuditLog, int64, error)
}

type mysqlStore struct{ db *sql.DB }

func NewStore(db *sql.DB) Store { return &mysqlStore{db: db} }

func (s *mysqlStore) Insert(ctx context.Context, m *AuditLog) error {
	const q = `
	INSERT INTO audit_log
	  (audit_ulid, user_id, action, entity_type, entity_id,
	   old_values, new_values, source_address, client_agent, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		m.AuditULID,
		m.UserID,
		string(m.Action),
		m.EntityType,
		m.EntityID,
		rawOrNil(m.OldValues),
		rawOrNil(m.NewValues),
		strOrNil(m.SourceAddress),
		strOrNil(m.ClientAgent),
		m.CreatedAt,
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		m.ID = uint64(id)
	}
	return nil
}

// List: 条件に応じて動的WHERE + created_at降順 + LIMIT/OFFSET
func (s *mysqlStore) List(ctx context.Context, q ListQuery, limit, offset int) ([]AuditLog, int64, error) {
	where, args := buildListWhere(q)

	var buf bytes.Buffer
	buf.WriteString(`
	SELECT id, audit_ulid, user_id, action, entity_type, entity_id,
	       old_values, new_values, source_address, client_agent, created_at
	FROM audit_log`)
	buf.WriteString(where)
	buf.WriteString(" ORDER BY created_at DESC, id DESC")
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	rows, err := s.db.QueryContext(ctx, buf.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []AuditLog
	for rows.Next() {
		var r auditRow
		if err := rows.Scan(
			&r.ID, &r.AuditULID, &r.UserID, &r.Action, &r.EntityType, &r.EntityID,
			&r.OldValues, &r.NewValues, &r.SourceAddress, &r.ClientAgent, &r.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, r.toModel())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func buildListWhere(q ListQuery) (string, []any) {
	var (
		wheres []string
		args   []any
	)
	if q.UserID != nil {
		wheres = append(wheres, "user_id = ?")
		args = append(args, *q.UserID)
	}
	if q.EntityType != nil && *q.EntityType != "" {
		wheres = append(wheres, "entity_type = ?")
		args = append(args, *q.EntityType)
	}
	if q.Action != nil && *q.Action != "" {
		wheres = append(wheres, "action = ?")
		args = append(args, *q.Action)
	}
	if q.From != nil && *q.From != "" {
		wheres = append(wheres, "created_at >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil && *q.To != "" {
		// toの当日を含める（日付のみ指定のため翌日0時未満）
		wheres = append(wheres, "created_at < DATE_ADD(?, INTERVAL 1 DAY)")
		args = append(args, *q.To)
	}
	if len(wheres) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wheres, " AND "), args
}

func rawOrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func strOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
