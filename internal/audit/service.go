package audit

import (
	"context"
	"math"
	"time"
)

// Service: 監査ログの参照系。追記は Recorder 経由のみで、
// 更新・削除は提供しない。
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// GET /audit-logs
func (s *Service) List(ctx context.Context, q ListQuery) (ListResponse, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Action != nil && *q.Action != "" && !IsValidAction(Action(*q.Action)) {
		return ListResponse{}, ErrInvalid("action must be one of CREATE, UPDATE, DELETE, LOGIN, LOGOUT")
	}
	if err := validateDate(q.From); err != nil {
		return ListResponse{}, err
	}
	if err := validateDate(q.To); err != nil {
		return ListResponse{}, err
	}

	offset := (q.Page - 1) * q.PageSize
	rows, total, err := s.store.List(ctx, q, q.PageSize, offset)
	if err != nil {
		return ListResponse{}, ErrInternal("failed to list audit logs")
	}

	records := make([]AuditLogResponse, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toDTO())
	}
	return ListResponse{
		Records:    records,
		Pagination: newPagination(q.Page, q.PageSize, total),
	}, nil
}

func newPagination(page, pageSize int, total int64) Pagination {
	return Pagination{
		CurrentPage:  page,
		TotalPages:   int(math.Ceil(float64(total) / float64(pageSize))),
		TotalRecords: total,
		HasNext:      int64(page)*int64(pageSize) < total,
		HasPrev:      page > 1,
	}
}

func validateDate(s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	if _, err := time.ParseInLocation(DateLayout, *s, time.UTC); err != nil {
		return ErrInvalid("date must be YYYY-MM-DD")
	}
	return nil
}
