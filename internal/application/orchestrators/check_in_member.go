package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/membership"
)

// ErrMemberRequired is returned when no member was selected.
var ErrMemberRequired = errors.New("member must be selected")

// ErrNoActiveMembership is returned when check-in requires an active
// membership and the member holds none.
var ErrNoActiveMembership = errors.New("member has no active membership")

// MemberLookup defines the member store interface needed to resolve a member.
type MemberLookup interface {
	GetByID(ctx context.Context, id int64) (member.Member, error)
}

// CheckInAttendanceStore defines the attendance store interface needed for check-in.
type CheckInAttendanceStore interface {
	GetOpenByMemberID(ctx context.Context, memberID int64) (attendance.Record, error)
	Create(ctx context.Context, value *attendance.Record) error
}

// SubscriptionLister lists the subscriptions held by one member.
type SubscriptionLister interface {
	ListSubscriptionsByUser(ctx context.Context, userID int64) ([]membership.Subscription, error)
}

// AttendanceMetrics receives check-in and check-out counts.
type AttendanceMetrics interface {
	CheckedIn()
	CheckedOut()
}

// CheckInMemberInput carries input for the check-in orchestrator.
type CheckInMemberInput struct {
	MemberID           int64
	BookingID          int64 // optional
	Status             string
	VerificationMethod string
	Location           string
	Notes              string
}

// CheckInMemberDeps holds dependencies for CheckInMember.
type CheckInMemberDeps struct {
	MemberStore     MemberLookup
	AttendanceStore CheckInAttendanceStore
	Subscriptions   SubscriptionLister // required when RequireActiveMembership is set
	Metrics         AttendanceMetrics  // optional
	Now             func() time.Time

	RequireActiveMembership bool
}

// ExecuteCheckInMember opens an attendance record for a member.
// PRE: MemberID refers to an existing, non-archived member
// POST: An open record with CheckInTime=now is stored and returned
// INVARIANT: A member holds at most one open record (also enforced by the store)
func ExecuteCheckInMember(ctx context.Context, input CheckInMemberInput, deps CheckInMemberDeps) (attendance.Record, error) {
	if input.MemberID <= 0 {
		return attendance.Record{}, ErrMemberRequired
	}

	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return attendance.Record{}, err
	}
	if m.IsArchived() {
		return attendance.Record{}, member.ErrArchived
	}

	now := nowFrom(deps.Now)
	status, err := attendance.ParseStatus(input.Status)
	if err != nil {
		return attendance.Record{}, err
	}

	if deps.RequireActiveMembership {
		subs, err := deps.Subscriptions.ListSubscriptionsByUser(ctx, m.ID)
		if err != nil {
			return attendance.Record{}, err
		}
		if !membership.Resolve(subs, now).IsActive {
			slog.Info("checkin_event", "event", "check_in_refused", "member_id", m.ID, "reason", "no_active_membership")
			return attendance.Record{}, ErrNoActiveMembership
		}
	}

	_, err = deps.AttendanceStore.GetOpenByMemberID(ctx, m.ID)
	switch {
	case err == nil:
		return attendance.Record{}, attendance.ErrDuplicateOpenSession
	case !errors.Is(err, attendance.ErrNotFound):
		return attendance.Record{}, err
	}

	r, err := attendance.NewCheckIn(m.ID, attendance.CheckInOptions{
		BookingID:          input.BookingID,
		Status:             status,
		VerificationMethod: attendance.VerificationMethod(input.VerificationMethod),
		Location:           input.Location,
		Notes:              input.Notes,
	}, now)
	if err != nil {
		return attendance.Record{}, err
	}

	// A concurrent check-in loses here on the open-session index.
	if err := deps.AttendanceStore.Create(ctx, &r); err != nil {
		return attendance.Record{}, err
	}
	if deps.Metrics != nil {
		deps.Metrics.CheckedIn()
	}

	slog.Info("checkin_event", "event", "member_checked_in", "member_id", m.ID, "name", m.Name,
		"attendance_id", r.ID, "status", string(r.Status), "verification_method", string(r.VerificationMethod))
	return r, nil
}

// nowFrom returns now() when set, else the wall clock.
func nowFrom(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
