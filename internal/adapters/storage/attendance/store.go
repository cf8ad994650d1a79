package attendance

import (
	"context"
	"time"

	domain "gymdesk/internal/domain/attendance"
)

// Store persists attendance records.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Record, error)
	GetOpenByMemberID(ctx context.Context, memberID int64) (domain.Record, error)
	Create(ctx context.Context, value *domain.Record) error
	Close(ctx context.Context, value domain.Record) error
	List(ctx context.Context, filter ListFilter) ([]Listed, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	CountOpen(ctx context.Context) (int, error)
}

// StatusCheckedOut selects closed records in ListFilter.Status.
const StatusCheckedOut = "checked_out"

// ListFilter carries filtering parameters for List operations.
// Status takes a domain status, which matches open records only, or
// StatusCheckedOut.
type ListFilter struct {
	Limit    int
	Offset   int
	MemberID int64
	Status   string
	Search   string // member name
	From     time.Time
	To       time.Time // exclusive
}

// Listed is a record joined with the member's display name.
type Listed struct {
	domain.Record
	MemberName string
}
