package web

import (
	"log/slog"
	"net/http"

	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/domain/account"
)

// accountView is the public face of an account; the hash never leaves the server.
type accountView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	MemberID int64  `json:"member_id,omitempty"`
}

func viewOf(a account.Account) accountView {
	return accountView{ID: a.ID, Email: a.Email, Role: a.Role, MemberID: a.MemberID}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  accountView `json:"user"`
}

// handleLogin handles POST /api/auth/login
// The token is returned in the body for bearer clients and set as a cookie for browsers.
func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	acct, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		AccountStore: a.stores.AccountStore,
		Now:          a.now,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := a.sessions.Create(acct)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token, a.sessions.TTL(), a.cfg.IsProduction())
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: viewOf(acct)})
}

// handleLogout handles POST /api/auth/logout
func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.TokenFromRequest(r); token != "" {
		if s, ok := a.sessions.Get(token); ok {
			slog.Info("auth_event", "event", "logout", "email", s.Email)
		}
		a.sessions.Delete(token)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /api/auth/me
func (a *app) handleMe(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	writeJSON(w, http.StatusOK, accountView{ID: s.AccountID, Email: s.Email, Role: s.Role, MemberID: s.MemberID})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

// handleChangePassword handles POST /api/auth/password
func (a *app) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       session(r).AccountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, orchestrators.ChangePasswordDeps{AccountStore: a.stores.AccountStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createAccountRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	Role     string `json:"role" validate:"required,oneof=admin trainer member"`
	MemberID int64  `json:"member_id" validate:"required_if=Role member,gte=0"`
}

// handleCreateAccount handles POST /api/accounts (admin only)
func (a *app) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	acct, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		MemberID: req.MemberID,
	}, orchestrators.CreateAccountDeps{
		AccountStore: a.stores.AccountStore,
		MemberStore:  a.stores.MemberStore,
		Now:          a.now,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(acct))
}
