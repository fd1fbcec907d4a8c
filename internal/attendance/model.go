package attendance

import (
	"database/sql"
	"time"
)

// Status: 出勤区分。absent はシステム判定せず、管理者のみが設定できる。
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func IsValidStatus(s Status) bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// DB行に対応（スキャン用）
type attendanceRow struct {
	AttendanceID      uint64
	UserID            uint64
	Date              string // DATE → "YYYY-MM-DD"
	CheckInTime       sql.NullTime
	CheckOutTime      sql.NullTime
	HoursWorked       sql.NullFloat64
	Status            string
	CheckInLatitude   sql.NullFloat64
	CheckInLongitude  sql.NullFloat64
	CheckOutLatitude  sql.NullFloat64
	CheckOutLongitude sql.NullFloat64
	Notes             sql.NullString
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Service ↔ Store で使うモデル
type Attendance struct {
	AttendanceID      uint64
	UserID            uint64
	Date              string // YYYY-MM-DD
	CheckInTime       *time.Time
	CheckOutTime      *time.Time
	HoursWorked       *float64
	Status            Status
	CheckInLatitude   *float64
	CheckInLongitude  *float64
	CheckOutLatitude  *float64
	CheckOutLongitude *float64
	Notes             *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (r attendanceRow) toModel() Attendance {
	m := Attendance{
		AttendanceID: r.AttendanceID,
		UserID:       r.UserID,
		Date:         r.Date,
		Status:       Status(r.Status),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.CheckInTime.Valid {
		v := r.CheckInTime.Time.UTC()
		m.CheckInTime = &v
	}
	if r.CheckOutTime.Valid {
		v := r.CheckOutTime.Time.UTC()
		m.CheckOutTime = &v
	}
	if r.HoursWorked.Valid {
		v := r.HoursWorked.Float64
		m.HoursWorked = &v
	}
	m.CheckInLatitude = floatPtr(r.CheckInLatitude)
	m.CheckInLongitude = floatPtr(r.CheckInLongitude)
	m.CheckOutLatitude = floatPtr(r.CheckOutLatitude)
	m.CheckOutLongitude = floatPtr(r.CheckOutLongitude)
	if r.Notes.Valid {
		v := r.Notes.String
		m.Notes = &v
	}
	return m
}

func (a Attendance) toDTO() AttendanceResponse {
	return AttendanceResponse{
		AttendanceID:      a.AttendanceID,
		UserID:            a.UserID,
		Date:              a.Date,
		CheckInTime:       a.CheckInTime,
		CheckOutTime:      a.CheckOutTime,
		HoursWorked:       a.HoursWorked,
		Status:            a.Status,
		CheckInLatitude:   a.CheckInLatitude,
		CheckInLongitude:  a.CheckInLongitude,
		CheckOutLatitude:  a.CheckOutLatitude,
		CheckOutLongitude: a.CheckOutLongitude,
		Notes:             a.Notes,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

// clone: スナップショット用の深いコピー（監査の別名参照を避ける）
func (a *Attendance) clone() *Attendance {
	if a == nil {
		return nil
	}
	c := *a
	c.CheckInTime = cloneTime(a.CheckInTime)
	c.CheckOutTime = cloneTime(a.CheckOutTime)
	c.HoursWorked = cloneFloat(a.HoursWorked)
	c.CheckInLatitude = cloneFloat(a.CheckInLatitude)
	c.CheckInLongitude = cloneFloat(a.CheckInLongitude)
	c.CheckOutLatitude = cloneFloat(a.CheckOutLatitude)
	c.CheckOutLongitude = cloneFloat(a.CheckOutLongitude)
	if a.Notes != nil {
		v := *a.Notes
		c.Notes = &v
	}
	return &c
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
