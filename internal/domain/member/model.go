package member

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength  = 100
	MaxPhoneLength = 32
)

// Status values
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// Domain errors
var (
	ErrNotFound        = errors.New("member not found")
	ErrAlreadyArchived = errors.New("member is already archived")
	ErrNotArchived     = errors.New("member is not archived")
	ErrArchived        = errors.New("archived members cannot check in or subscribe")
	ErrEmailTaken      = errors.New("a member with this email already exists")
	ErrEmptyName       = errors.New("member name cannot be empty")
	ErrNameTooLong     = errors.New("member name cannot exceed 100 characters")
	ErrInvalidEmail    = errors.New("member email must be valid")
	ErrPhoneTooLong    = errors.New("member phone cannot exceed 32 characters")
	ErrInvalidStatus   = errors.New("status must be 'active', 'inactive', or 'archived'")
)

// Member is a person who may hold memberships and check in at the facility.
type Member struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone,omitempty"`
	Status   string    `json:"status"`
	JoinedAt time.Time `json:"joined_at"`
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Name must not be empty
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !strings.Contains(m.Email, "@") {
		return ErrInvalidEmail
	}
	if len(m.Phone) > MaxPhoneLength {
		return ErrPhoneTooLong
	}
	if m.Status != StatusActive && m.Status != StatusInactive && m.Status != StatusArchived {
		return ErrInvalidStatus
	}
	return nil
}

// IsActive returns true if the member is currently active.
func (m *Member) IsActive() bool {
	return m.Status == StatusActive
}

// IsArchived returns true if the member is archived.
func (m *Member) IsArchived() bool {
	return m.Status == StatusArchived
}

// Archive sets the member status to archived.
// PRE: Member is not already archived
// POST: Status is set to archived
func (m *Member) Archive() error {
	if m.Status == StatusArchived {
		return ErrAlreadyArchived
	}
	m.Status = StatusArchived
	return nil
}

// Restore sets the member status back to active.
// PRE: Member is currently archived
// POST: Status is set to active
func (m *Member) Restore() error {
	if m.Status != StatusArchived {
		return ErrNotArchived
	}
	m.Status = StatusActive
	return nil
}
