package web

import (
	"net/http"
	"time"

	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/attendance"
)

const dateLayout = "2006-01-02"

// handleAttendanceList handles GET /api/attendances?status=&search=&user_id=&date=&page=&per_page=
// date is a calendar day in the facility timezone. Members only see their own visits.
func (a *app) handleAttendanceList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := projections.GetAttendanceListQuery{
		PageParams: listutil.ParsePageParams(q),
		Status:     q.Get("status"),
		Search:     listutil.ParseFilterParams(q, nil).Search,
	}

	memberID, ok := queryID(r, "user_id")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if query.MemberID, ok = actingMember(w, r, memberID); !ok {
		return
	}

	if raw := q.Get("date"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, a.loc)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		query.From = day
		query.To = day.AddDate(0, 0, 1)
	}

	page, err := projections.QueryGetAttendanceList(r.Context(), query, projections.GetAttendanceListDeps{
		AttendanceStore: a.stores.AttendanceStore,
		Now:             a.now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleAttendanceStats handles GET /api/attendances/stats
func (a *app) handleAttendanceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := projections.QueryGetAttendanceStats(r.Context(), projections.GetAttendanceStatsDeps{
		AttendanceStore: a.stores.AttendanceStore,
		Location:        a.loc,
		Now:             a.now,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type checkInRequest struct {
	UserID             int64  `json:"user_id" validate:"omitempty,gt=0"`
	BookingID          int64  `json:"booking_id" validate:"omitempty,gt=0"`
	Status             string `json:"status" validate:"omitempty,oneof=present late excused"`
	VerificationMethod string `json:"verification_method" validate:"max=32"`
	Location           string `json:"location" validate:"max=255"`
	Notes              string `json:"notes" validate:"max=1000"`
}

// handleCheckIn handles POST /api/attendances/check-in
// Staff check in the member named by user_id; members check themselves in.
func (a *app) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	memberID, ok := actingMember(w, r, req.UserID)
	if !ok {
		return
	}

	rec, err := orchestrators.ExecuteCheckInMember(r.Context(), orchestrators.CheckInMemberInput{
		MemberID:           memberID,
		BookingID:          req.BookingID,
		Status:             req.Status,
		VerificationMethod: req.VerificationMethod,
		Location:           req.Location,
		Notes:              req.Notes,
	}, orchestrators.CheckInMemberDeps{
		MemberStore:             a.stores.MemberStore,
		AttendanceStore:         a.stores.AttendanceStore,
		Subscriptions:           a.stores.MembershipStore,
		Metrics:                 a.collector,
		Now:                     a.now,
		RequireActiveMembership: a.cfg.Attendance.RequireActiveMembership,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	a.writeAttendance(w, r, http.StatusCreated, rec)
}

// handleCheckOut handles POST /api/attendances/{id}/check-out
// Members may only close their own visits; anyone else's reads as not found.
func (a *app) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	input := orchestrators.CheckOutMemberInput{AttendanceID: id}
	if !middleware.IsStaff(r.Context()) {
		input.OwnerID = session(r).MemberID
		if input.OwnerID <= 0 {
			writeError(w, orchestrators.ErrAttendanceNotFound)
			return
		}
	}

	rec, err := orchestrators.ExecuteCheckOutMember(r.Context(), input, orchestrators.CheckOutMemberDeps{
		AttendanceStore: a.stores.AttendanceStore,
		Metrics:         a.collector,
		Now:             a.now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	a.writeAttendance(w, r, http.StatusOK, rec)
}

// writeAttendance answers with rec as a dashboard row.
func (a *app) writeAttendance(w http.ResponseWriter, r *http.Request, status int, rec attendance.Record) {
	var name string
	if m, err := a.stores.MemberStore.GetByID(r.Context(), rec.MemberID); err == nil {
		name = m.Name
	}
	writeJSON(w, status, projections.NewAttendanceRow(rec, name, a.now()))
}
