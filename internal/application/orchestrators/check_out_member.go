package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/attendance"
)

// ErrAttendanceNotFound is returned when the record to check out does not exist.
// It wraps attendance.ErrInvalidTransition.
var ErrAttendanceNotFound = attendance.ErrNotFound

// CheckOutAttendanceStore defines the attendance store interface needed for check-out.
type CheckOutAttendanceStore interface {
	GetByID(ctx context.Context, id int64) (attendance.Record, error)
	GetOpenByMemberID(ctx context.Context, memberID int64) (attendance.Record, error)
	Close(ctx context.Context, value attendance.Record) error
}

// CheckOutMemberInput carries input for the check-out orchestrator.
// Either AttendanceID or MemberID identifies the record; AttendanceID wins.
type CheckOutMemberInput struct {
	AttendanceID int64
	MemberID     int64 // closes the member's open record

	// OwnerID, when set, limits the caller to records belonging to that member.
	OwnerID int64
}

// CheckOutMemberDeps holds dependencies for CheckOutMember.
type CheckOutMemberDeps struct {
	AttendanceStore CheckOutAttendanceStore
	Metrics         AttendanceMetrics // optional
	Now             func() time.Time
}

// ExecuteCheckOutMember closes an open attendance record.
// PRE: the record exists and is open
// POST: CheckOutTime = max(now, CheckInTime); the closed record is returned
// INVARIANT: a stored check-out time is never overwritten
func ExecuteCheckOutMember(ctx context.Context, input CheckOutMemberInput, deps CheckOutMemberDeps) (attendance.Record, error) {
	var r attendance.Record
	var err error
	switch {
	case input.AttendanceID > 0:
		r, err = deps.AttendanceStore.GetByID(ctx, input.AttendanceID)
	case input.MemberID > 0:
		r, err = deps.AttendanceStore.GetOpenByMemberID(ctx, input.MemberID)
	default:
		return attendance.Record{}, errors.New("attendance ID or member ID is required")
	}
	if err != nil {
		return attendance.Record{}, err
	}
	if input.OwnerID > 0 && r.MemberID != input.OwnerID {
		return attendance.Record{}, ErrAttendanceNotFound
	}

	if err := r.CheckOut(nowFrom(deps.Now)); err != nil {
		return attendance.Record{}, err
	}
	if err := deps.AttendanceStore.Close(ctx, r); err != nil {
		return attendance.Record{}, err
	}
	if deps.Metrics != nil {
		deps.Metrics.CheckedOut()
	}

	slog.Info("checkin_event", "event", "member_checked_out", "member_id", r.MemberID,
		"attendance_id", r.ID, "duration", attendance.FormatDuration(r.Duration(r.CheckOutTime)))
	return r, nil
}
