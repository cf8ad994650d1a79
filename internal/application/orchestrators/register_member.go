package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gymdesk/internal/domain/member"
)

// MemberStore defines the interface for member persistence.
type MemberStore interface {
	GetByID(ctx context.Context, id int64) (member.Member, error)
	Save(ctx context.Context, m *member.Member) error
}

// RegisterMemberInput carries input for the orchestrator.
type RegisterMemberInput struct {
	Name  string
	Email string
	Phone string
}

// RegisterMemberDeps holds dependencies for RegisterMember.
type RegisterMemberDeps struct {
	MemberStore MemberStore
	Now         func() time.Time
}

// ExecuteRegisterMember coordinates member registration.
// PRE: Valid email, non-empty name
// POST: Member created with ID, Status=active, JoinedAt=now
// INVARIANT: Email must be unique (enforced by store)
func ExecuteRegisterMember(ctx context.Context, input RegisterMemberInput, deps RegisterMemberDeps) (member.Member, error) {
	m := member.Member{
		Name:     strings.TrimSpace(input.Name),
		Email:    normalizeEmail(input.Email),
		Phone:    strings.TrimSpace(input.Phone),
		Status:   member.StatusActive,
		JoinedAt: nowFrom(deps.Now),
	}
	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}
	if err := deps.MemberStore.Save(ctx, &m); err != nil {
		return member.Member{}, err
	}

	slog.Info("member_event", "event", "member_registered", "member_id", m.ID, "email", m.Email)
	return m, nil
}

// UpdateMemberInput carries the editable member fields. Empty strings leave a field unchanged.
type UpdateMemberInput struct {
	MemberID int64
	Name     string
	Email    string
	Phone    string
	Status   string // active or inactive; archiving has its own operation
}

// UpdateMemberDeps holds dependencies for UpdateMember.
type UpdateMemberDeps struct {
	MemberStore MemberStore
}

// ExecuteUpdateMember edits a member's contact details or active flag.
// PRE: member exists and is not archived
// POST: changed fields are persisted
func ExecuteUpdateMember(ctx context.Context, input UpdateMemberInput, deps UpdateMemberDeps) (member.Member, error) {
	if input.MemberID <= 0 {
		return member.Member{}, ErrMemberRequired
	}
	m, err := deps.MemberStore.GetByID(ctx, input.MemberID)
	if err != nil {
		return member.Member{}, err
	}
	if m.IsArchived() {
		return member.Member{}, member.ErrArchived
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		m.Name = name
	}
	if email := normalizeEmail(input.Email); email != "" {
		m.Email = email
	}
	if phone := strings.TrimSpace(input.Phone); phone != "" {
		m.Phone = phone
	}
	switch input.Status {
	case "":
	case member.StatusActive, member.StatusInactive:
		m.Status = input.Status
	default:
		return member.Member{}, member.ErrInvalidStatus
	}

	if err := m.Validate(); err != nil {
		return member.Member{}, err
	}
	if err := deps.MemberStore.Save(ctx, &m); err != nil {
		return member.Member{}, err
	}

	slog.Info("member_event", "event", "member_updated", "member_id", m.ID)
	return m, nil
}
