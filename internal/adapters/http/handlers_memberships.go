package web

import (
	"errors"
	"net/http"

	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/membership"
	"gymdesk/internal/domain/payment"
)

// planResponse adds the rendered description to a catalogue entry.
type planResponse struct {
	projections.PlanView
	DescriptionHTML string `json:"description_html,omitempty"`
}

func renderPlan(v projections.PlanView) (planResponse, error) {
	html, err := renderMarkdown(v.Description)
	if err != nil {
		return planResponse{}, err
	}
	return planResponse{PlanView: v, DescriptionHTML: html}, nil
}

// handlePlanList handles GET /api/memberships?search=&is_active=&page=&per_page=
// Members only see plans on sale and get their current plans flagged.
func (a *app) handlePlanList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := projections.GetPlansQuery{
		PageParams: listutil.ParsePageParams(q),
		Search:     listutil.ParseFilterParams(q, nil).Search,
	}
	switch q.Get("is_active") {
	case "":
	case "true", "1":
		active := true
		query.IsActive = &active
	case "false", "0":
		active := false
		query.IsActive = &active
	default:
		writeMessage(w, http.StatusBadRequest, "is_active must be true or false")
		return
	}
	if !middleware.IsStaff(r.Context()) {
		active := true
		query.IsActive = &active
		query.ViewerID = session(r).MemberID
	}

	page, err := projections.QueryGetPlans(r.Context(), query, projections.GetPlansDeps{
		PlanStore:     a.stores.MembershipStore,
		Subscriptions: a.stores.MembershipStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]planResponse, 0, len(page.Items))
	for _, v := range page.Items {
		resp, err := renderPlan(v)
		if err != nil {
			internalError(w, err)
			return
		}
		items = append(items, resp)
	}
	writeJSON(w, http.StatusOK, listutil.NewPage(items, page.Info))
}

// handlePlanGet handles GET /api/memberships/{id}
func (a *app) handlePlanGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	plan, err := a.stores.MembershipStore.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	view := projections.PlanView{Plan: plan}
	if !middleware.IsStaff(r.Context()) {
		if !plan.IsActive {
			writeError(w, membership.ErrPlanNotFound)
			return
		}
		if memberID := session(r).MemberID; memberID > 0 {
			subs, err := a.stores.MembershipStore.ListSubscriptionsByUser(r.Context(), memberID)
			if err != nil {
				internalError(w, err)
				return
			}
			view.IsCurrent = membership.HasPlan(subs, plan.ID)
		}
	}

	resp, err := renderPlan(view)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type planRequest struct {
	Name         string              `json:"name" validate:"required,max=100"`
	Price        *membership.Amount  `json:"price" validate:"required"`
	DurationDays int                 `json:"duration_days" validate:"required,min=1,max=3660"`
	Features     membership.Features `json:"features"`
	IsActive     *bool               `json:"is_active"`
	Category     string              `json:"category" validate:"max=50"`
	Description  string              `json:"description" validate:"max=10000"`
}

func (req planRequest) input(id int64, active bool) orchestrators.SavePlanInput {
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return orchestrators.SavePlanInput{
		PlanID:       id,
		Name:         req.Name,
		Price:        *req.Price,
		DurationDays: req.DurationDays,
		Features:     req.Features,
		IsActive:     active,
		Category:     req.Category,
		Description:  req.Description,
	}
}

func (a *app) planDeps() orchestrators.PlanDeps {
	return orchestrators.PlanDeps{PlanStore: a.stores.MembershipStore, Now: a.now}
}

// handlePlanCreate handles POST /api/memberships (admin only)
// New plans are on sale unless is_active is false.
func (a *app) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	plan, err := orchestrators.ExecuteSavePlan(r.Context(), req.input(0, true), a.planDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	a.writePlan(w, http.StatusCreated, plan)
}

// handlePlanUpdate handles PUT /api/memberships/{id} (admin only)
// An omitted is_active keeps the stored flag.
func (a *app) handlePlanUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req planRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	existing, err := a.stores.MembershipStore.GetPlan(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	plan, err := orchestrators.ExecuteSavePlan(r.Context(), req.input(id, existing.IsActive), a.planDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	a.writePlan(w, http.StatusOK, plan)
}

func (a *app) writePlan(w http.ResponseWriter, status int, plan membership.Plan) {
	resp, err := renderPlan(projections.PlanView{Plan: plan})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, status, resp)
}

// handlePlanDelete handles DELETE /api/memberships/{id} (admin only)
func (a *app) handlePlanDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := orchestrators.ExecuteDeletePlan(r.Context(), id, a.planDeps()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type subscribeRequest struct {
	UserID        int64              `json:"user_id" validate:"omitempty,gt=0"`
	PlanID        int64              `json:"membership_plan_id" validate:"required,gt=0"`
	PaymentMethod string             `json:"payment_method" validate:"required,oneof=credit debit"`
	Amount        *membership.Amount `json:"amount" validate:"required"`
}

// handleSubscribe handles POST /api/memberships/subscribe
// Members buy for themselves; staff name the member with user_id.
// A declined card answers 402 with the failed payment row.
func (a *app) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	memberID, ok := actingMember(w, r, req.UserID)
	if !ok {
		return
	}

	result, err := orchestrators.ExecuteSubscribe(r.Context(), orchestrators.SubscribeInput{
		MemberID: memberID,
		PlanID:   req.PlanID,
		Method:   req.PaymentMethod,
		Amount:   *req.Amount,
	}, orchestrators.SubscribeDeps{
		MemberStore:  a.stores.MemberStore,
		PlanStore:    a.stores.MembershipStore,
		PaymentStore: a.stores.PaymentStore,
		Gateway:      a.gateway,
		Sender:       a.sender,
		Metrics:      a.collector,
		Now:          a.now,
	})
	if errors.Is(err, payment.ErrDeclined) {
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"message": payment.ErrDeclined.Error(),
			"payment": result.Payment,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type subscriptionActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// handleSubscriptionSetActive handles PUT /api/subscriptions/{id} (admin only)
// Only is_active can change; suspended subscriptions stop granting entitlement.
func (a *app) handleSubscriptionSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req subscriptionActiveRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	sub, err := orchestrators.ExecuteSetSubscriptionActive(r.Context(),
		orchestrators.SetSubscriptionActiveInput{SubscriptionID: id, IsActive: *req.IsActive},
		orchestrators.SetSubscriptionActiveDeps{Subscriptions: a.stores.MembershipStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleMemberSubscriptions handles GET /api/members/{id}/subscriptions
func (a *app) handleMemberSubscriptions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	subs, err := projections.QueryGetMemberSubscriptions(r.Context(), id, projections.GetMemberSubscriptionsDeps{
		MemberStore:   a.stores.MemberStore,
		Subscriptions: a.stores.MembershipStore,
		Now:           a.now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// handleMyMembership handles GET /api/my-membership
func (a *app) handleMyMembership(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberOnly(w, r)
	if !ok {
		return
	}
	summary, err := projections.QueryGetMyMembership(r.Context(), memberID, projections.GetMyMembershipDeps{
		Subscriptions: a.stores.MembershipStore,
		Now:           a.now,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleMyPayments handles GET /api/member/payments
func (a *app) handleMyPayments(w http.ResponseWriter, r *http.Request) {
	memberID, ok := memberOnly(w, r)
	if !ok {
		return
	}
	a.writePayments(w, r, memberID)
}

type paymentsResponse struct {
	Data  []payment.Payment `json:"data"`
	Total membership.Amount `json:"total"`
}

func (a *app) writePayments(w http.ResponseWriter, r *http.Request, memberID int64) {
	history, err := projections.QueryGetMemberPayments(r.Context(), memberID, projections.GetMemberPaymentsDeps{
		PaymentStore: a.stores.PaymentStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentsResponse{Data: history, Total: projections.PaymentTotal(history)})
}

// handleResolveEntitlement handles POST /api/entitlements/resolve
// The body is any membership payload shape; malformed input resolves to "No membership".
func (a *app) handleResolveEntitlement(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, projections.QueryResolveEntitlement(body, a.now()))
}
