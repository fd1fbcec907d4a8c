package audit

import (
	"encoding/json"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	DateLayout      = "2006-01-02"
)

type ListQuery struct {
	UserID     *uint64
	EntityType *string
	Action     *string
	From       *string // YYYY-MM-DD
	To         *string // YYYY-MM-DD
	Page       int
	PageSize   int
}

type AuditLogResponse struct {
	AuditID       uint64          `json:"audit_id"`
	AuditULID     string          `json:"audit_ulid"`
	UserID        uint64          `json:"user_id"`
	Action        Action          `json:"action"`
	EntityType    string          `json:"entity_type"`
	EntityID      uint64          `json:"entity_id"`
	OldValues     json.RawMessage `json:"old_values,omitempty"`
	NewValues     json.RawMessage `json:"new_values,omitempty"`
	SourceAddress *string         `json:"source_address,omitempty"`
	ClientAgent   *string         `json:"client_agent,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalRecords int64 `json:"totalRecords"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type ListResponse struct {
	Records    []AuditLogResponse `json:"records"`
	Pagination Pagination         `json:"pagination"`
}
