package web

import (
	"context"
	"net/http"

	"gymdesk/internal/application/listutil"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/member"
)

func (a *app) memberListDeps() projections.GetMemberListDeps {
	return projections.GetMemberListDeps{
		MemberStore:   a.stores.MemberStore,
		Subscriptions: a.stores.MembershipStore,
		Now:           a.now,
	}
}

// handleMemberList handles GET /api/members?search=&status=&sort=&dir=&page=&per_page=
func (a *app) handleMemberList(w http.ResponseWriter, r *http.Request) {
	params := listutil.ParseListParams(r.URL.Query(), projections.MemberSortColumns, []string{"status"})
	status := params.Filters["status"]
	switch status {
	case "", member.StatusActive, member.StatusInactive, member.StatusArchived:
	default:
		writeMessage(w, http.StatusBadRequest, member.ErrInvalidStatus.Error())
		return
	}

	page, err := projections.QueryGetMemberList(r.Context(), projections.GetMemberListQuery{
		ListParams: params,
		Status:     status,
	}, a.memberListDeps())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleMemberGet handles GET /api/members/{id}
func (a *app) handleMemberGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	detail, err := projections.QueryGetMember(r.Context(), id, a.memberListDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type createMemberRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email,max=254"`
	Phone string `json:"phone" validate:"max=32"`
}

// handleMemberCreate handles POST /api/members
func (a *app) handleMemberCreate(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	m, err := orchestrators.ExecuteRegisterMember(r.Context(), orchestrators.RegisterMemberInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}, orchestrators.RegisterMemberDeps{MemberStore: a.stores.MemberStore, Now: a.now})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type updateMemberRequest struct {
	Name   string `json:"name" validate:"max=100"`
	Email  string `json:"email" validate:"omitempty,email,max=254"`
	Phone  string `json:"phone" validate:"max=32"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
}

// handleMemberUpdate handles PUT /api/members/{id}
// Omitted fields keep their stored value.
func (a *app) handleMemberUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateMemberRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	m, err := orchestrators.ExecuteUpdateMember(r.Context(), orchestrators.UpdateMemberInput{
		MemberID: id,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Status:   req.Status,
	}, orchestrators.UpdateMemberDeps{MemberStore: a.stores.MemberStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleMemberArchive handles POST /api/members/{id}/archive
func (a *app) handleMemberArchive(w http.ResponseWriter, r *http.Request) {
	a.changeArchived(w, r, orchestrators.ExecuteArchiveMember)
}

// handleMemberRestore handles POST /api/members/{id}/restore
func (a *app) handleMemberRestore(w http.ResponseWriter, r *http.Request) {
	a.changeArchived(w, r, orchestrators.ExecuteRestoreMember)
}

type archiveFunc func(ctx context.Context, input orchestrators.ArchiveMemberInput, deps orchestrators.ArchiveMemberDeps) (member.Member, error)

func (a *app) changeArchived(w http.ResponseWriter, r *http.Request, execute archiveFunc) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := execute(r.Context(), orchestrators.ArchiveMemberInput{MemberID: id},
		orchestrators.ArchiveMemberDeps{MemberStore: a.stores.MemberStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleMemberPayments handles GET /api/members/{id}/payments
func (a *app) handleMemberPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := a.stores.MemberStore.GetByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	a.writePayments(w, r, id)
}
