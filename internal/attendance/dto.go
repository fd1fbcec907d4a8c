package attendance

import "time"

const (
	DefaultPageSize = 10
	AdminPageSize   = 20
	MaxPageSize     = 100
	RecentLimit     = 10
	DateLayout      = "2006-01-02"

	EntityType = "attendance"
)

type CheckInRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type CheckOutRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type AdminCreateRequest struct {
	UserID       uint64     `json:"user_id" binding:"required"`
	Date         string     `json:"date" binding:"required"` // YYYY-MM-DD
	Status       string     `json:"status" binding:"required"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

// 部分更新。nil のフィールドは変更しない。
type AdminUpdateRequest struct {
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
}

type AttendanceResponse struct {
	AttendanceID      uint64     `json:"attendance_id"`
	UserID            uint64     `json:"user_id"`
	Date              string     `json:"date"` // YYYY-MM-DD
	CheckInTime       *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime      *time.Time `json:"check_out_time,omitempty"`
	HoursWorked       *float64   `json:"hours_worked,omitempty"`
	Status            Status     `json:"status"`
	CheckInLatitude   *float64   `json:"check_in_latitude,omitempty"`
	CheckInLongitude  *float64   `json:"check_in_longitude,omitempty"`
	CheckOutLatitude  *float64   `json:"check_out_latitude,omitempty"`
	CheckOutLongitude *float64   `json:"check_out_longitude,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// 一覧フィルタ。From/To は両端含む。片側のみなら開区間。
type ListFilter struct {
	UserID *uint64
	Status *Status
	From   *string // YYYY-MM-DD
	To     *string // YYYY-MM-DD
}

type PageRequest struct {
	Page     int
	PageSize int
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalRecords int64 `json:"totalRecords"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type ListResponse struct {
	Records    []AttendanceResponse `json:"records"`
	Pagination Pagination           `json:"pagination"`
}
