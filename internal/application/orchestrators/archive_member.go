package orchestrators

import (
	"context"
	"log/slog"

	"gymdesk/internal/domain/member"
)

// ArchiveMemberInput carries input for the archive orchestrator.
type ArchiveMemberInput struct {
	MemberID int64
}

// ArchiveMemberDeps holds dependencies for ArchiveMember.
type ArchiveMemberDeps struct {
	MemberStore MemberStore
}

// ExecuteArchiveMember archives a member.
// PRE: member must exist and not be archived
// POST: Member status set to archived
func ExecuteArchiveMember(ctx context.Context, input ArchiveMemberInput, deps ArchiveMemberDeps) (member.Member, error) {
	return changeArchived(ctx, input.MemberID, deps.MemberStore, (*member.Member).Archive, "member_archived")
}

// ExecuteRestoreMember restores an archived member to active status.
// PRE: member must exist and be archived
// POST: Member status set to active
func ExecuteRestoreMember(ctx context.Context, input ArchiveMemberInput, deps ArchiveMemberDeps) (member.Member, error) {
	return changeArchived(ctx, input.MemberID, deps.MemberStore, (*member.Member).Restore, "member_restored")
}

func changeArchived(ctx context.Context, id int64, store MemberStore, apply func(*member.Member) error, event string) (member.Member, error) {
	if id <= 0 {
		return member.Member{}, ErrMemberRequired
	}
	m, err := store.GetByID(ctx, id)
	if err != nil {
		return member.Member{}, err
	}
	if err := apply(&m); err != nil {
		return member.Member{}, err
	}
	if err := store.Save(ctx, &m); err != nil {
		return member.Member{}, err
	}

	slog.Info("member_event", "event", event, "member_id", id)
	return m, nil
}
