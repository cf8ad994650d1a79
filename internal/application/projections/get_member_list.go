package projections

import (
	"context"
	"time"

	"gymdesk/internal/adapters/storage/member"
	"gymdesk/internal/application/listutil"
	domainMember "gymdesk/internal/domain/member"
	domainMembership "gymdesk/internal/domain/membership"
)

// MemberSortColumns lists the columns the member list may be sorted by.
var MemberSortColumns = []string{"name", "email", "status", "joined_at"}

// GetMemberListQuery carries query parameters.
type GetMemberListQuery struct {
	listutil.ListParams
	Status string
}

// MemberRow is one member with the entitlement resolved from their subscriptions.
type MemberRow struct {
	domainMember.Member
	Membership domainMembership.Entitlement `json:"membership"`
}

// GetMemberListDeps holds dependencies for GetMemberList.
type GetMemberListDeps struct {
	MemberStore   MemberStore
	Subscriptions SubscriptionStore
	Now           func() time.Time
}

// QueryGetMemberList retrieves one page of members with their membership status.
// PRE: Valid query parameters
// POST: Every row carries a resolved entitlement; members without
// subscriptions read "No membership"
func QueryGetMemberList(ctx context.Context, query GetMemberListQuery, deps GetMemberListDeps) (listutil.Page[MemberRow], error) {
	filter := member.ListFilter{
		Status: query.Status,
		Search: query.Search,
		Sort:   query.Sort,
		Dir:    query.Dir,
	}
	total, err := deps.MemberStore.Count(ctx, filter)
	if err != nil {
		return listutil.Page[MemberRow]{}, err
	}
	info := listutil.NewPageInfo(query.Page, query.PerPage, total)
	filter.Limit = info.PerPage
	filter.Offset = info.Offset()

	members, err := deps.MemberStore.List(ctx, filter)
	if err != nil {
		return listutil.Page[MemberRow]{}, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	subs, err := deps.Subscriptions.ListSubscriptionsByUsers(ctx, ids)
	if err != nil {
		return listutil.Page[MemberRow]{}, err
	}

	now := nowFrom(deps.Now)
	rows := make([]MemberRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, MemberRow{Member: m, Membership: domainMembership.Resolve(subs[m.ID], now)})
	}
	return listutil.NewPage(rows, info), nil
}

// MemberDetail is a member with their full subscription history.
type MemberDetail struct {
	domainMember.Member
	Membership    domainMembership.Entitlement    `json:"membership"`
	Subscriptions []domainMembership.Subscription `json:"subscriptions"`
}

// QueryGetMember retrieves one member with entitlement and subscriptions.
// POST: Subscriptions is never nil
func QueryGetMember(ctx context.Context, memberID int64, deps GetMemberListDeps) (MemberDetail, error) {
	m, err := deps.MemberStore.GetByID(ctx, memberID)
	if err != nil {
		return MemberDetail{}, err
	}
	subs, err := deps.Subscriptions.ListSubscriptionsByUser(ctx, memberID)
	if err != nil {
		return MemberDetail{}, err
	}
	if subs == nil {
		subs = []domainMembership.Subscription{}
	}
	return MemberDetail{
		Member:        m,
		Membership:    domainMembership.Resolve(subs, nowFrom(deps.Now)),
		Subscriptions: subs,
	}, nil
}

func nowFrom(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
