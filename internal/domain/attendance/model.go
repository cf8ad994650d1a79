package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Status is the arrival classification recorded at check-in.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// VerificationMethod records how the member proved their identity at the door.
type VerificationMethod string

const (
	VerifyQRCode  VerificationMethod = "qr_code"
	VerifyNFC     VerificationMethod = "nfc"
	VerifyManual  VerificationMethod = "manual"
	VerifyUnknown VerificationMethod = "unknown"
)

// Badge labels shown for a record.
const (
	BadgeCheckedOut = "Checked Out"
	BadgePresent    = "Present"
	BadgeLate       = "Late"
	BadgeExcused    = "Excused"
)

// Domain errors
var (
	ErrInvalidTransition    = errors.New("invalid attendance transition")
	ErrAlreadyCheckedOut    = fmt.Errorf("attendance already checked out: %w", ErrInvalidTransition)
	ErrNotFound             = fmt.Errorf("attendance record not found: %w", ErrInvalidTransition)
	ErrDuplicateOpenSession = errors.New("member is already checked in")
	ErrInvalidStatus        = errors.New("status must be 'present', 'late', or 'excused'")
)

// ParseStatus converts user input into a Status. Empty input means present.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusPresent:
		return StatusPresent, nil
	case StatusLate, StatusExcused:
		return Status(s), nil
	}
	return "", ErrInvalidStatus
}

// ParseVerificationMethod maps input onto a known method.
// Empty input stays empty; anything unrecognized becomes VerifyUnknown.
func ParseVerificationMethod(s string) VerificationMethod {
	switch VerificationMethod(s) {
	case "":
		return ""
	case VerifyQRCode, VerifyNFC, VerifyManual:
		return VerificationMethod(s)
	}
	return VerifyUnknown
}

// State is the position of a record in the check-in lifecycle.
type State int

const (
	StateOpenPresent State = iota
	StateOpenLate
	StateOpenExcused
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateOpenPresent:
		return "OPEN_PRESENT"
	case StateOpenLate:
		return "OPEN_LATE"
	case StateOpenExcused:
		return "OPEN_EXCUSED"
	case StateClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Record is one visit to the facility.
type Record struct {
	ID                 int64
	MemberID           int64
	BookingID          int64 // 0 when the visit is not tied to a booking
	CheckInTime        time.Time
	CheckOutTime       time.Time // zero while the member is still inside
	Status             Status
	VerificationMethod VerificationMethod
	Location           string
	Notes              string
}

// CheckInOptions carries the optional check-in fields.
type CheckInOptions struct {
	BookingID          int64
	Status             Status
	VerificationMethod VerificationMethod
	Location           string
	Notes              string
}

// NewCheckIn opens a record for memberID at now.
// PRE: memberID > 0
// POST: Returns an open record; Status defaults to present
func NewCheckIn(memberID int64, opts CheckInOptions, now time.Time) (Record, error) {
	status, err := ParseStatus(string(opts.Status))
	if err != nil {
		return Record{}, err
	}
	r := Record{
		MemberID:           memberID,
		BookingID:          opts.BookingID,
		CheckInTime:        now,
		Status:             status,
		VerificationMethod: ParseVerificationMethod(string(opts.VerificationMethod)),
		Location:           opts.Location,
		Notes:              opts.Notes,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: MemberID must be set, CheckInTime must be set, CheckOutTime >= CheckInTime
func (r *Record) Validate() error {
	if r.MemberID <= 0 {
		return errors.New("attendance must be associated with a member")
	}
	if r.CheckInTime.IsZero() {
		return errors.New("check-in time must be set")
	}
	if !r.CheckOutTime.IsZero() && r.CheckOutTime.Before(r.CheckInTime) {
		return errors.New("check-out time cannot be before check-in time")
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return err
	}
	return nil
}

// IsOpen returns true while the member has not checked out.
func (r *Record) IsOpen() bool {
	return r.CheckOutTime.IsZero()
}

// State returns the lifecycle state derived from check-out time and status.
func (r *Record) State() State {
	if !r.IsOpen() {
		return StateClosed
	}
	switch r.Status {
	case StatusLate:
		return StateOpenLate
	case StatusExcused:
		return StateOpenExcused
	default:
		return StateOpenPresent
	}
}

// CheckOut closes the record at now.
// PRE: record is open
// POST: CheckOutTime = max(now, CheckInTime); on error the record is unchanged
func (r *Record) CheckOut(now time.Time) error {
	if !r.IsOpen() {
		return ErrAlreadyCheckedOut
	}
	if now.Before(r.CheckInTime) {
		now = r.CheckInTime
	}
	r.CheckOutTime = now
	return nil
}

// Duration returns the length of the visit, measured to now while still open.
func (r *Record) Duration(now time.Time) time.Duration {
	if !r.IsOpen() {
		return r.CheckOutTime.Sub(r.CheckInTime)
	}
	return now.Sub(r.CheckInTime)
}

// Badge returns the display label. A checked-out record always reads
// "Checked Out"; status badges apply only while open.
func (r *Record) Badge() string {
	switch r.State() {
	case StateClosed:
		return BadgeCheckedOut
	case StateOpenLate:
		return BadgeLate
	case StateOpenExcused:
		return BadgeExcused
	default:
		return BadgePresent
	}
}
