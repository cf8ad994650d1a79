package projections

import (
	"context"
	"errors"
	"time"

	"gymdesk/internal/adapters/storage/attendance"
	"gymdesk/internal/application/listutil"
	domainAttendance "gymdesk/internal/domain/attendance"
)

// ErrInvalidStatusFilter is returned for an attendance status filter outside
// present, late, excused and checked_out.
var ErrInvalidStatusFilter = errors.New("status filter must be 'present', 'late', 'excused', or 'checked_out'")

// AttendanceUser is the member summary attached to an attendance row.
type AttendanceUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AttendanceRow is one attendance record as served to the dashboard.
type AttendanceRow struct {
	ID                 int64          `json:"id"`
	MemberID           int64          `json:"user_id"`
	BookingID          *int64         `json:"booking_id"`
	CheckInTime        time.Time      `json:"check_in_time"`
	CheckOutTime       *time.Time     `json:"check_out_time"`
	Status             string         `json:"status"`
	VerificationMethod string         `json:"verification_method,omitempty"`
	Location           string         `json:"location,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	State              string         `json:"state"`
	Badge              string         `json:"badge"`
	Duration           string         `json:"duration"`
	User               AttendanceUser `json:"user"`
}

// NewAttendanceRow renders r for display. Open visits report their duration so far.
func NewAttendanceRow(r domainAttendance.Record, memberName string, now time.Time) AttendanceRow {
	row := AttendanceRow{
		ID:                 r.ID,
		MemberID:           r.MemberID,
		CheckInTime:        r.CheckInTime,
		Status:             string(r.Status),
		VerificationMethod: string(r.VerificationMethod),
		Location:           r.Location,
		Notes:              r.Notes,
		State:              r.State().String(),
		Badge:              r.Badge(),
		Duration:           domainAttendance.FormatDuration(r.Duration(now)),
		User:               AttendanceUser{ID: r.MemberID, Name: memberName},
	}
	if r.BookingID > 0 {
		id := r.BookingID
		row.BookingID = &id
	}
	if !r.IsOpen() {
		out := r.CheckOutTime
		row.CheckOutTime = &out
	}
	return row
}

// GetAttendanceListQuery carries query parameters.
type GetAttendanceListQuery struct {
	listutil.PageParams
	Status   string // present, late, excused, checked_out or empty
	Search   string // member name
	MemberID int64
	From     time.Time
	To       time.Time
}

// GetAttendanceListDeps holds dependencies for GetAttendanceList.
type GetAttendanceListDeps struct {
	AttendanceStore AttendanceStore
	Now             func() time.Time
}

// QueryGetAttendanceList retrieves one page of attendance, newest first.
// PRE: Status is empty or a recognised filter
// POST: each row carries its badge; a status filter matches open records only,
// except checked_out which matches closed records
func QueryGetAttendanceList(ctx context.Context, query GetAttendanceListQuery, deps GetAttendanceListDeps) (listutil.Page[AttendanceRow], error) {
	switch query.Status {
	case "", attendance.StatusCheckedOut,
		string(domainAttendance.StatusPresent), string(domainAttendance.StatusLate), string(domainAttendance.StatusExcused):
	default:
		return listutil.Page[AttendanceRow]{}, ErrInvalidStatusFilter
	}

	filter := attendance.ListFilter{
		MemberID: query.MemberID,
		Status:   query.Status,
		Search:   query.Search,
		From:     query.From,
		To:       query.To,
	}
	total, err := deps.AttendanceStore.Count(ctx, filter)
	if err != nil {
		return listutil.Page[AttendanceRow]{}, err
	}
	info := listutil.NewPageInfo(query.Page, query.PerPage, total)
	filter.Limit = info.PerPage
	filter.Offset = info.Offset()

	listed, err := deps.AttendanceStore.List(ctx, filter)
	if err != nil {
		return listutil.Page[AttendanceRow]{}, err
	}

	now := nowFrom(deps.Now)
	rows := make([]AttendanceRow, 0, len(listed))
	for _, l := range listed {
		rows = append(rows, NewAttendanceRow(l.Record, l.MemberName, now))
	}
	return listutil.NewPage(rows, info), nil
}

// GetAttendanceStatsDeps holds dependencies for GetAttendanceStats.
type GetAttendanceStatsDeps struct {
	AttendanceStore AttendanceStore
	Location        *time.Location // facility timezone; nil means UTC
	Now             func() time.Time
}

// QueryGetAttendanceStats summarises all attendance for the dashboard.
// POST: "today" is the current calendar day in Location
func QueryGetAttendanceStats(ctx context.Context, deps GetAttendanceStatsDeps) (domainAttendance.Stats, error) {
	listed, err := deps.AttendanceStore.List(ctx, attendance.ListFilter{})
	if err != nil {
		return domainAttendance.Stats{}, err
	}
	records := make([]domainAttendance.Record, 0, len(listed))
	for _, l := range listed {
		records = append(records, l.Record)
	}
	return domainAttendance.ComputeStats(records, nowFrom(deps.Now), deps.Location), nil
}
