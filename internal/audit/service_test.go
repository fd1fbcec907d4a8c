package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func listCode(t *testing.T, err error) Code {
	t.Helper()
	var api *APIError
	if !errors.As(err, &api) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	return api.Code
}

func TestService_List_Pagination(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.total = 45
	for i := 0; i < 45; i++ {
		store.rows = append(store.rows, AuditLog{
			ID:         uint64(i + 1),
			AuditULID:  "01JABCDEFGHJKMNPQRSTVWXYZ0",
			Action:     ActionCreate,
			EntityType: "attendance",
			EntityID:   uint64(i + 1),
			CreatedAt:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		})
	}
	svc := NewService(store)

	res, err := svc.List(context.Background(), ListQuery{Page: 3, PageSize: 20})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(res.Records) != 5 {
		t.Fatalf("expected 5 records on last page, got %d", len(res.Records))
	}
	p := res.Pagination
	if p.CurrentPage != 3 || p.TotalPages != 3 || p.TotalRecords != 45 {
		t.Fatalf("unexpected pagination: %+v", p)
	}
	if p.HasNext || !p.HasPrev {
		t.Fatalf("expected hasNext=false hasPrev=true, got %+v", p)
	}
}

func TestService_List_Defaults(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := NewService(store)

	res, err := svc.List(context.Background(), ListQuery{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if res.Records == nil {
		t.Fatalf("expected empty slice, got nil records")
	}
	if res.Pagination.CurrentPage != 1 {
		t.Fatalf("expected page default 1, got %d", res.Pagination.CurrentPage)
	}
}

func TestService_List_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore())

	badAction := "TRUNCATE"
	if _, err := svc.List(context.Background(), ListQuery{Action: &badAction}); listCode(t, err) != CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for unknown action, got %v", err)
	}

	badDate := "03/10/2025"
	if _, err := svc.List(context.Background(), ListQuery{From: &badDate}); listCode(t, err) != CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for malformed date, got %v", err)
	}
}

func TestBuildListWhere_DateRange(t *testing.T) {
	t.Parallel()

	from, to := "2025-03-01", "2025-03-31"
	where, args := buildListWhere(ListQuery{From: &from, To: &to})

	if where != " WHERE created_at >= ? AND created_at < DATE_ADD(?, INTERVAL 1 DAY)" {
		t.Fatalf("unexpected where: %q", where)
	}
	if len(args) != 2 || args[0] != from || args[1] != to {
		t.Fatalf("unexpected args: %v", args)
	}
}
