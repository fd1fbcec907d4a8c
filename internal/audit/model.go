package audit

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Action: 監査対象の操作種別
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionLogin  Action = "LOGIN"
	ActionLogout Action = "LOGOUT"
)

func IsValidAction(a Action) bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout:
		return true
	default:
		return false
	}
}

// DB行に対応（スキャン用）
type auditRow struct {
	ID            uint64
	AuditULID     string
	UserID        uint64
	Action        string
	EntityType    string
	EntityID      uint64
	OldValues     sql.NullString
	NewValues     sql.NullString
	SourceAddress sql.NullString
	ClientAgent   sql.NullString
	CreatedAt     time.Time
}

// AuditLog: 追記専用の監査エントリ。書き込み後は不変。
type AuditLog struct {
	ID            uint64
	AuditULID     string
	UserID        uint64
	Action        Action
	EntityType    string
	EntityID      uint64
	OldValues     json.RawMessage // 変更前スナップショット（CREATE時はnil）
	NewValues     json.RawMessage // 変更後スナップショット（DELETE時はnil）
	SourceAddress *string
	ClientAgent   *string
	CreatedAt     time.Time
}

func (r auditRow) toModel() AuditLog {
	m := AuditLog{
		ID:         r.ID,
		AuditULID:  r.AuditULID,
		UserID:     r.UserID,
		Action:     Action(r.Action),
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if r.OldValues.Valid {
		m.OldValues = json.RawMessage(r.OldValues.String)
	}
	if r.NewValues.Valid {
		m.NewValues = json.RawMessage(r.NewValues.String)
	}
	if r.SourceAddress.Valid {
		v := r.SourceAddress.String
		m.SourceAddress = &v
	}
	if r.ClientAgent.Valid {
		v := r.ClientAgent.String
		m.ClientAgent = &v
	}
	return m
}

func (m AuditLog) toDTO() AuditLogResponse {
	return AuditLogResponse{
		AuditID:       m.ID,
		AuditULID:     m.AuditULID,
		UserID:        m.UserID,
		Action:        m.Action,
		EntityType:    m.EntityType,
		EntityID:      m.EntityID,
		OldValues:     m.OldValues,
		NewValues:     m.NewValues,
		SourceAddress: m.SourceAddress,
		ClientAgent:   m.ClientAgent,
		CreatedAt:     m.CreatedAt,
	}
}
