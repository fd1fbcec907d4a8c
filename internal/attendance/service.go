package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	"AGOS-backend/internal/audit"
)

// ===== インターフェース群 =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Recorder: 監査の書き込み口。書き込みの成否はこちらへ返ってこない
// （業務処理の結果は監査と独立）。
type Recorder interface {
	Record(ctx context.Context, e audit.Entry)
}

// Actor: 操作主体と呼び出し元情報（監査用）
type Actor struct {
	UserID        uint64
	SourceAddress string
	ClientAgent   string
}

type Config struct {
	LateCutoff string // "HH:MM"（空なら 09:00）
	Timezone   string // IANA名（空なら UTC）
}

const defaultLateCutoff = "09:00"

// ===== Service =====

// Service: 出勤簿の唯一の書き込み経路。
// 1ユーザ1日1行の不変条件と NONE → CHECKED_IN → CHECKED_OUT の
// 遷移をここで守る。管理者チャネルは遷移を迂回するが検証と監査は通る。
type Service struct {
	store Store
	trail Recorder
	clock Clock
	loc   *time.Location

	cutoffHour   int
	cutoffMinute int
}

func NewService(store Store, trail Recorder, clock Clock, cfg Config) (*Service, error) {
	if clock == nil {
		clock = realClock{}
	}

	cutoff := cfg.LateCutoff
	if cutoff == "" {
		cutoff = defaultLateCutoff
	}
	t, err := time.Parse("15:04", cutoff)
	if err != nil {
		return nil, errors.New("attendance: late_cutoff must be HH:MM")
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, errors.New("attendance: unknown timezone " + cfg.Timezone)
		}
	}

	return &Service{
		store:        store,
		trail:        trail,
		clock:        clock,
		loc:          loc,
		cutoffHour:   t.Hour(),
		cutoffMinute: t.Minute(),
	}, nil
}

// POST /attendance/checkin
func (s *Service) CheckIn(ctx context.Context, actor Actor, req CheckInRequest) (AttendanceResponse, error) {
	now := s.clock.Now().In(s.loc)
	today := now.Format(DateLayout)

	existing, err := s.store.FindByUserAndDate(ctx, actor.UserID, today)
	if err != nil {
		return AttendanceResponse{}, ErrInternal("failed to load today's attendance")
	}
	if existing != nil && existing.CheckInTime != nil {
		return AttendanceResponse{}, ErrAlreadyCheckedIn()
	}

	status := s.deriveStatus(now)

	// 管理者が先に作った未打刻行（absent等）があれば打刻で埋める
	if existing != nil {
		old := existing.clone()
		rows, err := s.store.FillCheckIn(ctx, existing.AttendanceID, now.UTC(), req.Latitude, req.Longitude, status, now.UTC())
		if err != nil {
			return AttendanceResponse{}, ErrInternal("failed to check in")
		}
		if rows == 0 {
			// 同時打刻の敗者側
			return AttendanceResponse{}, ErrAlreadyCheckedIn()
		}
		updated, err := s.reload(ctx, existing.AttendanceID)
		if err != nil {
			return AttendanceResponse{}, err
		}
		s.recordAudit(ctx, actor, audit.ActionUpdate, updated.AttendanceID, old, updated)
		return updated.toDTO(), nil
	}

	checkIn := now.UTC()
	rec := &Attendance{
		UserID:           actor.UserID,
		Date:             today,
		CheckInTime:      &checkIn,
		Status:           status,
		CheckInLatitude:  req.Latitude,
		CheckInLongitude: req.Longitude,
		CreatedAt:        now.UTC(),
		UpdatedAt:        now.UTC(),
	}
	id, err := s.store.Insert(ctx, rec)
	if err != nil {
		if isDuplicateKey(err) {
			// 同時打刻はUNIQUE制約で直列化され、敗者側はここに来る
			return AttendanceResponse{}, ErrAlreadyCheckedIn()
		}
		return AttendanceResponse{}, ErrInternal("failed to check in")
	}

	created, err := s.reload(ctx, id)
	if err != nil {
		return AttendanceResponse{}, err
	}
	s.recordAudit(ctx, actor, audit.ActionCreate, id, nil, created)
	return created.toDTO(), nil
}

// POST /attendance/checkout
func (s *Service) CheckOut(ctx context.Context, actor Actor, req CheckOutRequest) (AttendanceResponse, error) {
	now := s.clock.Now().In(s.loc)
	today := now.Format(DateLayout)

	rec, err := s.store.FindByUserAndDate(ctx, actor.UserID, today)
	if err != nil {
		return AttendanceResponse{}, ErrInternal("failed to load today's attendance")
	}
	if rec == nil || rec.CheckInTime == nil {
		return AttendanceResponse{}, ErrNotCheckedIn()
	}
	if rec.CheckOutTime != nil {
		return AttendanceResponse{}, ErrAlreadyCheckedOut()
	}

	hours := roundHours(now.UTC().Sub(*rec.CheckInTime).Hours())

	old := rec.clone()
	rows, err := s.store.SetCheckOut(ctx, rec.AttendanceID, now.UTC(), req.Latitude, req.Longitude, hours, now.UTC())
	if err != nil {
		return AttendanceResponse{}, ErrInternal("failed to check out")
	}
	if rows == 0 {
		return AttendanceResponse{}, ErrAlreadyCheckedOut()
	}

	updated, err := s.reload(ctx, rec.AttendanceID)
	if err != nil {
		return AttendanceResponse{}, err
	}
	s.recordAudit(ctx, actor, audit.ActionUpdate, updated.AttendanceID, old, updated)
	return updated.toDTO(), nil
}

// GET /attendance/today（未打刻日は nil）
func (s *Service) GetToday(ctx context.Context, userID uint64) (*AttendanceResponse, error) {
	today := s.clock.Now().In(s.loc).Format(DateLayout)
	rec, err := s.store.FindByUserAndDate(ctx, userID, today)
	if err != nil {
		return nil, ErrInternal("failed to load today's attendance")
	}
	if rec == nil {
		return nil, nil
	}
	dto := rec.toDTO()
	return &dto, nil
}

// GET /attendance/history
func (s *Service) History(ctx context.Context, userID uint64, from, to *string, p PageRequest) (ListResponse, error) {
	if err := validateDate(from); err != nil {
		return ListResponse{}, err
	}
	if err := validateDate(to); err != nil {
		return ListResponse{}, err
	}
	f := ListFilter{UserID: &userID, From: from, To: to}
	return s.list(ctx, f, p, DefaultPageSize)
}

// GET /attendance/recent（直近10件）
func (s *Service) Recent(ctx context.Context, userID uint64) ([]AttendanceResponse, error) {
	f := ListFilter{UserID: &userID}
	rows, _, err := s.store.List(ctx, f, RecentLimit, 0)
	if err != nil {
		return nil, ErrInternal("failed to list attendance")
	}
	out := make([]AttendanceResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDTO())
	}
	return out, nil
}

// GET /attendance/admin/all
func (s *Service) AdminList(ctx context.Context, f ListFilter, p PageRequest) (ListResponse, error) {
	if f.Status != nil && *f.Status != "" && !IsValidStatus(*f.Status) {
		return ListResponse{}, ErrInvalid("status must be one of present, absent, late")
	}
	if err := validateDate(f.From); err != nil {
		return ListResponse{}, err
	}
	if err := validateDate(f.To); err != nil {
		return ListResponse{}, err
	}
	return s.list(ctx, f, p, AdminPageSize)
}

// POST /attendance/admin/create
func (s *Service) AdminCreate(ctx context.Context, actor Actor, req AdminCreateRequest) (AttendanceResponse, error) {
	if req.UserID == 0 {
		return AttendanceResponse{}, ErrInvalid("user_id is required")
	}
	if _, err := time.ParseInLocation(DateLayout, req.Date, time.UTC); err != nil {
		return AttendanceResponse{}, ErrInvalid("date must be YYYY-MM-DD")
	}
	status := Status(req.Status)
	if !IsValidStatus(status) {
		return AttendanceResponse{}, ErrInvalid("status must be one of present, absent, late")
	}
	if req.CheckInTime != nil && req.CheckOutTime != nil && req.CheckOutTime.Before(*req.CheckInTime) {
		return AttendanceResponse{}, ErrInvalid("check_out_time must not be before check_in_time")
	}

	now := s.clock.Now().UTC()
	rec := &Attendance{
		UserID:       req.UserID,
		Date:         req.Date,
		CheckInTime:  toUTC(req.CheckInTime),
		CheckOutTime: toUTC(req.CheckOutTime),
		Status:       status,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if rec.CheckInTime != nil && rec.CheckOutTime != nil {
		h := roundHours(rec.CheckOutTime.Sub(*rec.CheckInTime).Hours())
		rec.HoursWorked = &h
	}

	id, err := s.store.Insert(ctx, rec)
	if err != nil {
		if isDuplicateKey(err) {
			return AttendanceResponse{}, ErrRecordExists()
		}
		return AttendanceResponse{}, ErrInternal("failed to create attendance record")
	}

	created, err := s.reload(ctx, id)
	if err != nil {
		return AttendanceResponse{}, err
	}
	s.recordAudit(ctx, actor, audit.ActionCreate, id, nil, created)
	return created.toDTO(), nil
}

// PUT /attendance/admin/:id
// 部分更新。状態機械は迂回するが検証と監査は通る。
// status は打刻時刻と突き合わせた再判定をしない（管理者の裁量を優先）。
func (s *Service) AdminUpdate(ctx context.Context, actor Actor, id uint64, req AdminUpdateRequest) (AttendanceResponse, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return AttendanceResponse{}, ErrInternal("failed to load attendance record")
	}
	if rec == nil {
		return AttendanceResponse{}, ErrRecordNotFound()
	}

	old := rec.clone()

	if req.CheckInTime != nil {
		rec.CheckInTime = toUTC(req.CheckInTime)
	}
	if req.CheckOutTime != nil {
		rec.CheckOutTime = toUTC(req.CheckOutTime)
	}
	if req.Status != nil {
		status := Status(*req.Status)
		if !IsValidStatus(status) {
			return AttendanceResponse{}, ErrInvalid("status must be one of present, absent, late")
		}
		rec.Status = status
	}
	if req.Notes != nil {
		rec.Notes = req.Notes
	}

	// マージ後に両時刻が揃っていれば労働時間を再計算する
	if rec.CheckInTime != nil && rec.CheckOutTime != nil {
		if rec.CheckOutTime.Before(*rec.CheckInTime) {
			return AttendanceResponse{}, ErrInvalid("check_out_time must not be before check_in_time")
		}
		h := roundHours(rec.CheckOutTime.Sub(*rec.CheckInTime).Hours())
		rec.HoursWorked = &h
	}

	rec.UpdatedAt = s.clock.Now().UTC()
	if _, err := s.store.Update(ctx, rec); err != nil {
		return AttendanceResponse{}, ErrInternal("failed to update attendance record")
	}

	updated, err := s.reload(ctx, id)
	if err != nil {
		return AttendanceResponse{}, err
	}
	s.recordAudit(ctx, actor, audit.ActionUpdate, id, old, updated)
	return updated.toDTO(), nil
}

// DELETE /attendance/admin/:id（物理削除）
func (s *Service) AdminDelete(ctx context.Context, actor Actor, id uint64) error {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return ErrInternal("failed to load attendance record")
	}
	if rec == nil {
		return ErrRecordNotFound()
	}

	rows, err := s.store.Delete(ctx, id)
	if err != nil {
		return ErrInternal("failed to delete attendance record")
	}
	if rows == 0 {
		return ErrRecordNotFound()
	}

	s.recordAudit(ctx, actor, audit.ActionDelete, id, rec, nil)
	return nil
}

// ===== helpers =====

func (s *Service) list(ctx context.Context, f ListFilter, p PageRequest, defaultSize int) (ListResponse, error) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	offset := (p.Page - 1) * p.PageSize
	rows, total, err := s.store.List(ctx, f, p.PageSize, offset)
	if err != nil {
		return ListResponse{}, ErrInternal("failed to list attendance")
	}

	records := make([]AttendanceResponse, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toDTO())
	}
	return ListResponse{
		Records:    records,
		Pagination: newPagination(p.Page, p.PageSize, total),
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

// deriveStatus: 締切時刻を過ぎた打刻は late。absent はここでは出さない。
func (s *Service) deriveStatus(now time.Time) Status {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), s.cutoffHour, s.cutoffMinute, 0, 0, s.loc)
	if now.After(cutoff) {
		return StatusLate
	}
	return StatusPresent
}

// recordAudit: 変更系の成功経路はすべてここを通る（1変更=1エントリ）。
// スナップショットは呼び出し時点のJSONで、生きた行とは独立。
func (s *Service) recordAudit(ctx context.Context, actor Actor, action audit.Action, entityID uint64, oldRec, newRec *Attendance) {
	e := audit.Entry{
		ActorUserID:   actor.UserID,
		Action:        action,
		EntityType:    EntityType,
		EntityID:      entityID,
		SourceAddress: actor.SourceAddress,
		ClientAgent:   actor.ClientAgent,
	}
	if oldRec != nil {
		if b, err := json.Marshal(oldRec.toDTO()); err == nil {
			e.OldValues = b
		}
	}
	if newRec != nil {
		if b, err := json.Marshal(newRec.toDTO()); err == nil {
			e.NewValues = b
		}
	}
	s.trail.Record(ctx, e)
}

func (s *Service) reload(ctx context.Context, id uint64) (*Attendance, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, ErrInternal("failed to reload attendance record")
	}
	if rec == nil {
		return nil, ErrInternal("persisted but not found")
	}
	return rec, nil
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

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func toUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}
