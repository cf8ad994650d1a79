package orchestrators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gymdesk/internal/domain/account"
	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/membership"
	"gymdesk/internal/domain/payment"
)

// --- in-memory test doubles ---

var testNow = time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type memMemberStore struct {
	members map[int64]member.Member
	nextID  int64
}

func newMemMemberStore(members ...member.Member) *memMemberStore {
	s := &memMemberStore{members: make(map[int64]member.Member)}
	for _, m := range members {
		s.members[m.ID] = m
		if m.ID > s.nextID {
			s.nextID = m.ID
		}
	}
	return s
}

func (s *memMemberStore) GetByID(_ context.Context, id int64) (member.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return member.Member{}, fmt.Errorf("member %d: %w", id, member.ErrNotFound)
	}
	return m, nil
}

func (s *memMemberStore) GetByEmail(_ context.Context, email string) (member.Member, error) {
	for _, m := range s.members {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return member.Member{}, member.ErrNotFound
}

func (s *memMemberStore) Save(_ context.Context, m *member.Member) error {
	for _, other := range s.members {
		if other.ID != m.ID && other.Email == m.Email {
			return member.ErrEmailTaken
		}
	}
	if m.ID == 0 {
		s.nextID++
		m.ID = s.nextID
	} else if _, ok := s.members[m.ID]; !ok {
		return member.ErrNotFound
	}
	s.members[m.ID] = *m
	return nil
}

type memAttendanceStore struct {
	records []attendance.Record
}

func (s *memAttendanceStore) GetByID(_ context.Context, id int64) (attendance.Record, error) {
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return attendance.Record{}, fmt.Errorf("attendance %d: %w", id, attendance.ErrNotFound)
}

func (s *memAttendanceStore) GetOpenByMemberID(_ context.Context, memberID int64) (attendance.Record, error) {
	for _, r := range s.records {
		if r.MemberID == memberID && r.IsOpen() {
			return r, nil
		}
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (s *memAttendanceStore) Create(_ context.Context, r *attendance.Record) error {
	for _, other := range s.records {
		if other.MemberID == r.MemberID && other.IsOpen() {
			return attendance.ErrDuplicateOpenSession
		}
	}
	r.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *r)
	return nil
}

func (s *memAttendanceStore) Close(_ context.Context, r attendance.Record) error {
	for i := range s.records {
		if s.records[i].ID != r.ID {
			continue
		}
		if !s.records[i].IsOpen() {
			return attendance.ErrAlreadyCheckedOut
		}
		s.records[i].CheckOutTime = r.CheckOutTime
		return nil
	}
	return attendance.ErrNotFound
}

type memMembershipStore struct {
	plans map[int64]membership.Plan
	subs  []membership.Subscription
	inUse map[int64]bool
}

func newMemMembershipStore(plans ...membership.Plan) *memMembershipStore {
	s := &memMembershipStore{plans: make(map[int64]membership.Plan), inUse: make(map[int64]bool)}
	for _, p := range plans {
		s.plans[p.ID] = p
	}
	return s
}

func (s *memMembershipStore) GetPlan(_ context.Context, id int64) (membership.Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return membership.Plan{}, fmt.Errorf("plan %d: %w", id, membership.ErrPlanNotFound)
	}
	return p, nil
}

func (s *memMembershipStore) SavePlan(_ context.Context, p *membership.Plan) error {
	if p.ID == 0 {
		p.ID = int64(len(s.plans) + 1)
	} else if _, ok := s.plans[p.ID]; !ok {
		return membership.ErrPlanNotFound
	}
	s.plans[p.ID] = *p
	return nil
}

func (s *memMembershipStore) DeletePlan(_ context.Context, id int64) error {
	if s.inUse[id] {
		return membership.ErrPlanInUse
	}
	if _, ok := s.plans[id]; !ok {
		return membership.ErrPlanNotFound
	}
	delete(s.plans, id)
	return nil
}

func (s *memMembershipStore) GetSubscription(_ context.Context, id int64) (membership.Subscription, error) {
	for _, sub := range s.subs {
		if sub.ID == id {
			return sub, nil
		}
	}
	return membership.Subscription{}, fmt.Errorf("subscription %d: %w", id, membership.ErrSubscriptionNotFound)
}

func (s *memMembershipStore) SaveSubscription(_ context.Context, sub *membership.Subscription) error {
	if sub.ID == 0 {
		sub.ID = int64(len(s.subs) + 1)
		s.subs = append(s.subs, *sub)
		return nil
	}
	for i := range s.subs {
		if s.subs[i].ID == sub.ID {
			s.subs[i] = *sub
			return nil
		}
	}
	return membership.ErrSubscriptionNotFound
}

func (s *memMembershipStore) ListSubscriptionsByUser(_ context.Context, userID int64) ([]membership.Subscription, error) {
	var out []membership.Subscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

type memPaymentStore struct {
	payments     []payment.Payment
	plans        *memMembershipStore // receives the subscription half of a purchase
	failPurchase error
}

func (s *memPaymentStore) Save(_ context.Context, p *payment.Payment) error {
	p.ID = int64(len(s.payments) + 1)
	s.payments = append(s.payments, *p)
	return nil
}

func (s *memPaymentStore) SavePurchase(ctx context.Context, p *payment.Payment, sub *membership.Subscription) error {
	if s.failPurchase != nil {
		return s.failPurchase
	}
	if err := s.Save(ctx, p); err != nil {
		return err
	}
	return s.plans.SaveSubscription(ctx, sub)
}

type memAccountStore struct {
	accounts map[int64]account.Account
}

func newMemAccountStore(accts ...account.Account) *memAccountStore {
	s := &memAccountStore{accounts: make(map[int64]account.Account)}
	for _, a := range accts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memAccountStore) GetByID(_ context.Context, id int64) (account.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	return a, nil
}

func (s *memAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (s *memAccountStore) Save(_ context.Context, a *account.Account) error {
	for _, other := range s.accounts {
		if other.ID != a.ID && other.Email == a.Email {
			return account.ErrEmailTaken
		}
	}
	if a.ID == 0 {
		a.ID = int64(len(s.accounts) + 1)
	}
	s.accounts[a.ID] = *a
	return nil
}

func (s *memAccountStore) CountByRole(_ context.Context, role string) (int, error) {
	n := 0
	for _, a := range s.accounts {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

type countingMetrics struct {
	checkIns, checkOuts int
	payments            map[string]int
}

func (m *countingMetrics) CheckedIn()  { m.checkIns++ }
func (m *countingMetrics) CheckedOut() { m.checkOuts++ }
func (m *countingMetrics) PaymentRecorded(status string) {
	if m.payments == nil {
		m.payments = make(map[string]int)
	}
	m.payments[status]++
}

func activeMember(id int64, name string) member.Member {
	return member.Member{
		ID:       id,
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Status:   member.StatusActive,
		JoinedAt: testNow.AddDate(-1, 0, 0),
	}
}
