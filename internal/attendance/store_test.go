package attendance

import (
	"reflect"
	"testing"
)

func TestBuildListWhere(t *testing.T) {
	t.Parallel()

	userID := uint64(7)
	status := StatusLate
	from := "2025-03-01"
	to := "2025-03-31"
	empty := ""

	cases := []struct {
		name      string
		filter    ListFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filter",
			filter:    ListFilter{},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "user only",
			filter:    ListFilter{UserID: &userID},
			wantWhere: " WHERE user_id = ?",
			wantArgs:  []any{userID},
		},
		{
			name:      "inclusive date range",
			filter:    ListFilter{From: &from, To: &to},
			wantWhere: " WHERE date >= ? AND date <= ?",
			wantArgs:  []any{from, to},
		},
		{
			name:      "start bound only",
			filter:    ListFilter{From: &from},
			wantWhere: " WHERE date >= ?",
			wantArgs:  []any{from},
		},
		{
			name:      "end bound only",
			filter:    ListFilter{To: &to},
			wantWhere: " WHERE date <= ?",
			wantArgs:  []any{to},
		},
		{
			name:      "empty strings ignored",
			filter:    ListFilter{From: &empty, To: &empty},
			wantWhere: "",
			wantArgs:  nil,
		},
		{
			name:      "all conditions",
			filter:    ListFilter{UserID: &userID, Status: &status, From: &from, To: &to},
			wantWhere: " WHERE user_id = ? AND status = ? AND date >= ? AND date <= ?",
			wantArgs:  []any{userID, string(status), from, to},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			where, args := buildListWhere(tc.filter)
			if where != tc.wantWhere {
				t.Fatalf("where = %q, want %q", where, tc.wantWhere)
			}
			if !reflect.DeepEqual(args, tc.wantArgs) {
				t.Fatalf("args = %v, want %v", args, tc.wantArgs)
			}
		})
	}
}
