package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"gymdesk/internal/adapters/http/middleware"
	"gymdesk/internal/application/orchestrators"
	"gymdesk/internal/application/projections"
	"gymdesk/internal/domain/account"
	"gymdesk/internal/domain/attendance"
	"gymdesk/internal/domain/member"
	"gymdesk/internal/domain/membership"
	"gymdesk/internal/domain/payment"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// validate checks request DTOs. Field names in errors use the json tag.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// errorStatuses maps domain errors onto HTTP statuses. The first match wins.
var errorStatuses = []struct {
	err    error
	status int
}{
	{orchestrators.ErrInvalidCredentials, http.StatusUnauthorized},
	{orchestrators.ErrAccountLocked, http.StatusLocked},
	{orchestrators.ErrNoActiveMembership, http.StatusForbidden},
	{payment.ErrDeclined, http.StatusPaymentRequired},

	{member.ErrNotFound, http.StatusNotFound},
	{account.ErrNotFound, http.StatusNotFound},
	{membership.ErrPlanNotFound, http.StatusNotFound},
	{membership.ErrSubscriptionNotFound, http.StatusNotFound},
	{attendance.ErrNotFound, http.StatusNotFound},
	{payment.ErrNotFound, http.StatusNotFound},

	{attendance.ErrDuplicateOpenSession, http.StatusConflict},
	{attendance.ErrAlreadyCheckedOut, http.StatusConflict},
	{attendance.ErrInvalidTransition, http.StatusConflict},
	{member.ErrEmailTaken, http.StatusConflict},
	{account.ErrEmailTaken, http.StatusConflict},
	{membership.ErrPlanInUse, http.StatusConflict},
	{member.ErrAlreadyArchived, http.StatusConflict},
	{member.ErrNotArchived, http.StatusConflict},

	{member.ErrArchived, http.StatusUnprocessableEntity},
	{membership.ErrPlanInactive, http.StatusUnprocessableEntity},
	{payment.ErrAmountMismatch, http.StatusUnprocessableEntity},

	{orchestrators.ErrMemberRequired, http.StatusBadRequest},
	{orchestrators.ErrSubscriptionRequired, http.StatusBadRequest},
	{orchestrators.ErrCurrentPasswordWrong, http.StatusBadRequest},
	{orchestrators.ErrNewPasswordSame, http.StatusBadRequest},
	{projections.ErrInvalidStatusFilter, http.StatusBadRequest},
	{attendance.ErrInvalidStatus, http.StatusBadRequest},
	{payment.ErrInvalidMethod, http.StatusBadRequest},
	{member.ErrEmptyName, http.StatusBadRequest},
	{member.ErrNameTooLong, http.StatusBadRequest},
	{member.ErrInvalidEmail, http.StatusBadRequest},
	{member.ErrPhoneTooLong, http.StatusBadRequest},
	{member.ErrInvalidStatus, http.StatusBadRequest},
	{account.ErrEmptyEmail, http.StatusBadRequest},
	{account.ErrEmailTooLong, http.StatusBadRequest},
	{account.ErrInvalidEmail, http.StatusBadRequest},
	{account.ErrInvalidRole, http.StatusBadRequest},
	{account.ErrMemberLinkNeeded, http.StatusBadRequest},
	{account.ErrEmptyPassword, http.StatusBadRequest},
	{account.ErrPasswordTooShort, http.StatusBadRequest},
	{membership.ErrEmptyPlanName, http.StatusBadRequest},
	{membership.ErrPlanNameTooLong, http.StatusBadRequest},
	{membership.ErrNegativePrice, http.StatusBadRequest},
	{membership.ErrInvalidDuration, http.StatusBadRequest},
	{membership.ErrInvalidAmount, http.StatusBadRequest},
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode_response_failed", "error", err.Error())
	}
}

// writeMessage writes {"message": msg}.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeMessage(w, http.StatusInternalServerError, "internal server error")
}

// writeError answers with the status mapped from err, or 500 when err is
// not a known domain error.
func writeError(w http.ResponseWriter, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeMessage(w, e.status, e.err.Error())
			return
		}
	}
	internalError(w, err)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeRequest decodes and validates a JSON body into dst, answering 400
// itself when the body is unusable.
// POST: returns false after writing the response
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := strictDecode(r, dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			writeMessage(w, http.StatusBadRequest, "invalid input")
			return false
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "validation failed",
			"errors":  fields,
		})
		return false
	}
	return true
}

// readBody returns the raw request body, capped at maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	return body, true
}

// pathID parses the {id} path value.
// POST: returns false after answering 400 when id is not a positive integer
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// queryID parses an optional positive integer query parameter; zero when absent.
func queryID(r *http.Request, key string) (int64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

// renderMarkdown converts md to sanitised HTML.
func renderMarkdown(md string) (string, error) {
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// session returns the caller's session. Routes behind RequireAuth always have one.
func session(r *http.Request) middleware.Session {
	s, _ := middleware.GetSessionFromContext(r.Context())
	return s
}

// memberOnly answers 403 unless the caller is a member account.
// POST: returns the caller's member id, or false after writing the response
func memberOnly(w http.ResponseWriter, r *http.Request) (int64, bool) {
	s := session(r)
	if s.Role != account.RoleMember || s.MemberID <= 0 {
		writeMessage(w, http.StatusForbidden, "only member accounts have a membership")
		return 0, false
	}
	return s.MemberID, true
}

// actingMember resolves whose record a request targets. Staff name the member
// with requested; members always act for themselves and may not name another.
// POST: returns false after answering 403 when a member names someone else
func actingMember(w http.ResponseWriter, r *http.Request, requested int64) (int64, bool) {
	s := session(r)
	if middleware.IsStaff(r.Context()) {
		return requested, true
	}
	if requested != 0 && requested != s.MemberID {
		writeMessage(w, http.StatusForbidden, "members may only act for themselves")
		return 0, false
	}
	return s.MemberID, true
}
