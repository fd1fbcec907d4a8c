package attendance

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pdb "AGOS-backend/internal/platform/db"
)

type Store interface {
	FindByID(ctx context.Context, id uint64) (*Attendance, error)
	FindByUserAndDate(ctx context.Context, userID uint64, date string) (*Attendance, error)
	Insert(ctx context.Context, a *Attendance) (uint64, error)
	FillCheckIn(ctx context.Context, id uint64, t time.Time, lat, lng *float64, status Status, updatedAt time.Time) (int64, error)
	SetCheckOut(ctx context.Context, id uint64, t time.Time, lat, lng *float64, hours float64, updatedAt time.Time) (int64, error)
	Update(ctx context.Context, a *Attendance) (int64, error)
	Delete(ctx context.Context, id uint64) (int64, error)
	List(ctx context.Context, f ListFilter, limit, offset int) ([]Attendance, int64, error)
}

type mysqlStore struct{ db *sql.DB }

func NewStore(db *sql.DB) Store { return &mysqlStore{db: db} }

const selectColumns = `
	SELECT id, user_id, DATE_FORMAT(date, '%Y-%m-%d') AS date,
	       check_in_time, check_out_time, hours_worked, status,
	       check_in_latitude, check_in_longitude,
	       check_out_latitude, check_out_longitude,
	       notes, created_at, updated_at
	FROM attendance`

func (s *mysqlStore) FindByID(ctx context.Context, id uint64) (*Attendance, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ? LIMIT 1`, id)
	return scanOne(row)
}

func (s *mysqlStore) FindByUserAndDate(ctx context.Context, userID uint64, date string) (*Attendance, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE user_id = ? AND date = ? LIMIT 1`, userID, date)
	return scanOne(row)
}

// Insert: (user_id, date) のUNIQUE制約に任せる。
// 重複時は MySQL 1062 がそのまま返る（ドメインエラー変換はService側）。
func (s *mysqlStore) Insert(ctx context.Context, a *Attendance) (uint64, error) {
	const q = `
	INSERT INTO attendance
	  (user_id, date, check_in_time, check_out_time, hours_worked, status,
	   check_in_latitude, check_in_longitude, check_out_latitude, check_out_longitude,
	   notes, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := s.db.ExecContext(ctx, q,
		a.UserID, a.Date,
		timeOrNil(a.CheckInTime), timeOrNil(a.CheckOutTime),
		floatOrNil(a.HoursWorked), string(a.Status),
		floatOrNil(a.CheckInLatitude), floatOrNil(a.CheckInLongitude),
		floatOrNil(a.CheckOutLatitude), floatOrNil(a.CheckOutLongitude),
		strOrNil(a.Notes), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// FillCheckIn: 管理者が先に作った未打刻行に打刻を入れる。
// check_in_time IS NULL をガードにして競合時は0行更新で返す。
func (s *mysqlStore) FillCheckIn(ctx context.Context, id uint64, t time.Time, lat, lng *float64, status Status, updatedAt time.Time) (int64, error) {
	const q = `
	UPDATE attendance
	SET check_in_time = ?, check_in_latitude = ?, check_in_longitude = ?,
	    status = ?, updated_at = ?
	WHERE id = ? AND check_in_time IS NULL`

	res, err := s.db.ExecContext(ctx, q, t, floatOrNil(lat), floatOrNil(lng), string(status), updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetCheckOut: check_out_time IS NULL をガードにした冪等でない一回限りの更新。
func (s *mysqlStore) SetCheckOut(ctx context.Context, id uint64, t time.Time, lat, lng *float64, hours float64, updatedAt time.Time) (int64, error) {
	const q = `
	UPDATE attendance
	SET check_out_time = ?, check_out_latitude = ?, check_out_longitude = ?,
	    hours_worked = ?, updated_at = ?
	WHERE id = ? AND check_out_time IS NULL`

	res, err := s.db.ExecContext(ctx, q, t, floatOrNil(lat), floatOrNil(lng), hours, updatedAt, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Update: 管理者チャネル用の全フィールド更新（user_id, date は不変）。
func (s *mysqlStore) Update(ctx context.Context, a *Attendance) (int64, error) {
	const q = `
	UPDATE attendance
	SET check_in_time = ?, check_out_time = ?, hours_worked = ?, status = ?,
	    notes = ?, updated_at = ?
	WHERE id = ?`

	res, err := s.db.ExecContext(ctx, q,
		timeOrNil(a.CheckInTime), timeOrNil(a.CheckOutTime),
		floatOrNil(a.HoursWorked), string(a.Status),
		strOrNil(a.Notes), a.UpdatedAt, a.AttendanceID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *mysqlStore) Delete(ctx context.Context, id uint64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendance WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List: 動的WHERE + date降順 + LIMIT/OFFSET。
// 件数と本体を同一スナップショットで読むため読み取り専用Txで実行する。
func (s *mysqlStore) List(ctx context.Context, f ListFilter, limit, offset int) ([]Attendance, int64, error) {
	where, args := buildListWhere(f)

	var buf bytes.Buffer
	buf.WriteString(selectColumns)
	buf.WriteString(where)
	buf.WriteString(" ORDER BY date DESC, check_in_time DESC, id DESC")
	buf.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var (
		out   []Attendance
		total int64
	)
	err := pdb.ReadOnly(ctx, s.db, func(ctx context.Context, tx pdb.DBTX) error {
		rows, err := tx.QueryContext(ctx, buf.String(), args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var r attendanceRow
			if err := scanRow(rows, &r); err != nil {
				return err
			}
			out = append(out, r.toModel())
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM attendance"+where, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// buildListWhere: 日付範囲は両端含む。片側のみの指定なら開区間。
func buildListWhere(f ListFilter) (string, []any) {
	var (
		wheres []string
		args   []any
	)
	if f.UserID != nil {
		wheres = append(wheres, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.Status != nil && *f.Status != "" {
		wheres = append(wheres, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.From != nil && *f.From != "" {
		wheres = append(wheres, "date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil && *f.To != "" {
		wheres = append(wheres, "date <= ?")
		args = append(args, *f.To)
	}
	if len(wheres) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wheres, " AND "), args
}

// ===== scan helpers =====

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(sc rowScanner, r *attendanceRow) error {
	return sc.Scan(
		&r.AttendanceID, &r.UserID, &r.Date,
		&r.CheckInTime, &r.CheckOutTime, &r.HoursWorked, &r.Status,
		&r.CheckInLatitude, &r.CheckInLongitude,
		&r.CheckOutLatitude, &r.CheckOutLongitude,
		&r.Notes, &r.CreatedAt, &r.UpdatedAt,
	)
}

func scanOne(row *sql.Row) (*Attendance, error) {
	var r attendanceRow
	if err := scanRow(row, &r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m := r.toModel()
	return &m, nil
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func strOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
