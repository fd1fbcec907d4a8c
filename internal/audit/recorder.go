package audit

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ===== Recorder =====

// Entry: 1回の変更操作に対する監査入力。
// OldValues/NewValues は呼び出し時点のシリアライズ済みスナップショット。
type Entry struct {
	ActorUserID   uint64
	Action        Action
	EntityType    string
	EntityID      uint64
	OldValues     json.RawMessage
	NewValues     json.RawMessage
	SourceAddress string
	ClientAgent   string
}

const writeTimeout = 5 * time.Second

// Recorder: 監査ログの書き込み口。業務処理の成否とは独立で、
// 書き込み失敗は呼び出し元に伝播しない（ログのみ）。
type Recorder struct {
	store Store
	clock Clock
	id    IDGen
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, clock: realClock{}, id: ulidGen{}}
}

// Record: 非同期で1件追記する。呼び出し元の ctx がキャンセルされても
// 書き込みは独立して完走させるため、ここでは新しい ctx を切る。
func (r *Recorder) Record(ctx context.Context, e Entry) {
	go func() {
		wctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.write(wctx, e); err != nil {
			log.Printf("[WARN] audit: write failed (entity=%s id=%d action=%s): %v",
				e.EntityType, e.EntityID, e.Action, err)
		}
	}()
}

func (r *Recorder) write(ctx context.Context, e Entry) error {
	uid, err := r.id.New()
	if err != nil {
		return err
	}

	m := &AuditLog{
		AuditULID:  uid,
		UserID:     e.ActorUserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		OldValues:  e.OldValues,
		NewValues:  e.NewValues,
		CreatedAt:  r.clock.Now(),
	}
	if e.SourceAddress != "" {
		v := e.SourceAddress
		m.SourceAddress = &v
	}
	if e.ClientAgent != "" {
		v := e.ClientAgent
		m.ClientAgent = &v
	}
	return r.store.Insert(ctx, m)
}
