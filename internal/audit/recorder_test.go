package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type stubIDGen struct {
	id  string
	err error
}

func (s *stubIDGen) New() (string, error) {
	return s.id, s.err
}

type fakeStore struct {
	mu       sync.Mutex
	inserted []*AuditLog
	insertCh chan struct{}

	insertErr error
	rows      []AuditLog
	total     int64
	listErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{insertCh: make(chan struct{}, 16)}
}

func (f *fakeStore) Insert(_ context.Context, m *AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertCh != nil {
		defer func() { f.insertCh <- struct{}{} }()
	}
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, m)
	return nil
}

func (f *fakeStore) List(_ context.Context, _ ListQuery, limit, offset int) ([]AuditLog, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	if offset >= len(f.rows) {
		return nil, f.total, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], f.total, nil
}

func waitForInsert(t *testing.T, f *fakeStore) {
	t.Helper()
	select {
	case <-f.insertCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit insert")
	}
}

func TestRecorder_Write(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	r := &Recorder{
		store: store,
		clock: &stubClock{now: now},
		id:    &stubIDGen{id: "01JABCDEFGHJKMNPQRSTVWXYZ0"},
	}

	e := Entry{
		ActorUserID:   7,
		Action:        ActionCreate,
		EntityType:    "attendance",
		EntityID:      42,
		NewValues:     json.RawMessage(`{"attendance_id":42}`),
		SourceAddress: "203.0.113.9",
		ClientAgent:   "curl/8.0",
	}
	if err := r.write(context.Background(), e); err != nil {
		t.Fatalf("write returned error: %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 inserted row, got %d", len(store.inserted))
	}
	m := store.inserted[0]
	if m.AuditULID != "01JABCDEFGHJKMNPQRSTVWXYZ0" {
		t.Fatalf("unexpected ulid: %s", m.AuditULID)
	}
	if m.UserID != 7 || m.Action != ActionCreate || m.EntityType != "attendance" || m.EntityID != 42 {
		t.Fatalf("unexpected row: %+v", m)
	}
	if !m.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %v, got %v", now, m.CreatedAt)
	}
	if m.OldValues != nil {
		t.Fatalf("expected nil old values, got %s", m.OldValues)
	}
	if m.SourceAddress == nil || *m.SourceAddress != "203.0.113.9" {
		t.Fatalf("unexpected source address: %+v", m.SourceAddress)
	}
	if m.ClientAgent == nil || *m.ClientAgent != "curl/8.0" {
		t.Fatalf("unexpected client agent: %+v", m.ClientAgent)
	}
}

func TestRecorder_Write_EmptyCallerInfo(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := &Recorder{
		store: store,
		clock: &stubClock{now: time.Now().UTC()},
		id:    &stubIDGen{id: "01JABCDEFGHJKMNPQRSTVWXYZ1"},
	}

	if err := r.write(context.Background(), Entry{Action: ActionDelete, EntityType: "attendance", EntityID: 1}); err != nil {
		t.Fatalf("write returned error: %v", err)
	}

	m := store.inserted[0]
	if m.SourceAddress != nil || m.ClientAgent != nil {
		t.Fatalf("expected nil caller info, got %+v / %+v", m.SourceAddress, m.ClientAgent)
	}
}

func TestRecorder_Record_Async(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	r := NewRecorder(store)

	// 呼び出し元のctxが既にキャンセル済みでも書き込みは完走する
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Record(ctx, Entry{Action: ActionUpdate, EntityType: "attendance", EntityID: 5})
	waitForInsert(t, store)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 inserted row, got %d", len(store.inserted))
	}
	if store.inserted[0].AuditULID == "" {
		t.Fatalf("expected generated ulid")
	}
}

func TestRecorder_Record_SwallowsFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.insertErr = errors.New("audit store unavailable")
	r := NewRecorder(store)

	// 失敗はログに落ちるだけで、パニックも伝播もしない
	r.Record(context.Background(), Entry{Action: ActionCreate, EntityType: "attendance", EntityID: 9})
	waitForInsert(t, store)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.inserted) != 0 {
		t.Fatalf("expected no inserted rows, got %d", len(store.inserted))
	}
}
