// Package server exposes the Galvaniy Labs HTTP API: OTP auth, report
// generation, document downloads, the live report view over WebSocket and
// the admin surface.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/assemble"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/auth"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/config"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/gen"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/logging"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/session"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/store"
)

// SessionCookie is the HttpOnly cookie carrying the opaque session token.
const SessionCookie = "galvaniy_session"

// Server wires the API handlers to their backing services.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	auth   *auth.Service
	gen    *gen.Generator
	logger *zap.Logger

	mu    sync.Mutex
	views map[string]*liveView // open report views by view id
}

type liveView struct {
	id      string
	email   string
	session *session.Session
	cancel  context.CancelFunc
}

// New builds a server. logger must be non-nil.
func New(cfg *config.Config, st *store.Store, authSvc *auth.Service, generator *gen.Generator, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		store:  st,
		auth:   authSvc,
		gen:    generator,
		logger: logger,
		views:  make(map[string]*liveView),
	}
}

// Routes returns the HTTP mux with all API endpoints registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/send-otp", s.handleSendOTP)
	mux.HandleFunc("POST /api/auth/verify-otp", s.handleVerifyOTP)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.withUser(s.handleMe))

	mux.HandleFunc("POST /api/generate-report", s.withUser(s.handleGenerate))
	mux.HandleFunc("GET /api/reports", s.withUser(s.handleListReports))
	mux.HandleFunc("GET /api/reports/{id}/html", s.withUser(s.handleDownloadHTML))
	mux.HandleFunc("GET /api/reports/{id}/pdf", s.withUser(s.handleDownloadPDF))
	mux.HandleFunc("GET /api/reports/{id}/live", s.withUser(s.handleLive))

	mux.HandleFunc("GET /api/admin/users", s.withAdmin(s.handleListUsers))
	mux.HandleFunc("POST /api/admin/users/revoke", s.withAdmin(s.handleRevokeUser))
	mux.HandleFunc("POST /api/admin/users/limit", s.withAdmin(s.handleUpdateLimit))
	mux.HandleFunc("GET /api/admin/references", s.withAdmin(s.handleListReferences))
	mux.HandleFunc("POST /api/admin/references", s.withAdmin(s.handleAddReference))
	mux.HandleFunc("DELETE /api/admin/references/{id}", s.withAdmin(s.handleRemoveReference))

	return mux
}

// Close tears down all open live views.
func (s *Server) Close() {
	s.mu.Lock()
	views := make([]*liveView, 0, len(s.views))
	for _, v := range s.views {
		views = append(views, v)
	}
	s.views = make(map[string]*liveView)
	s.mu.Unlock()

	for _, v := range views {
		v.cancel()
		v.session.Close()
	}
}

// ---- request plumbing ----

type userHandler func(w http.ResponseWriter, r *http.Request, u *store.User)

func (s *Server) withUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := s.userFromRequest(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		h(w, r, u)
	}
}

func (s *Server) withAdmin(h userHandler) http.HandlerFunc {
	return s.withUser(func(w http.ResponseWriter, r *http.Request, u *store.User) {
		if !u.IsAdmin() {
			s.writeError(w, http.StatusForbidden, "admin only")
			return
		}
		h(w, r, u)
	})
}

func (s *Server) userFromRequest(r *http.Request) (*store.User, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, auth.ErrUnauthenticated
	}
	return s.auth.Authenticate(cookie.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(auth.DefaultSessionTTL / time.Second),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// ---- auth handlers ----

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "email required")
		return
	}

	res, err := s.auth.StartLogin(req.Email)
	if errors.Is(err, auth.ErrRevoked) {
		s.writeError(w, http.StatusForbidden, "account revoked")
		return
	}
	if err != nil {
		s.logger.Error("send-otp failed", zap.String("email", req.Email), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not send OTP")
		return
	}

	if res.User != nil {
		// Pilot direct login: session established without the OTP leg.
		s.setSessionCookie(w, res.Token)
		s.writeJSON(w, http.StatusOK, map[string]any{"user": res.User})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent"})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := decode(r, &req); err != nil || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "email and otp required")
		return
	}

	u, token, err := s.auth.VerifyOTP(req.Email, req.OTP)
	switch {
	case errors.Is(err, auth.ErrInvalidOTP):
		s.writeError(w, http.StatusBadRequest, "Invalid OTP")
		return
	case errors.Is(err, auth.ErrExpiredOTP):
		s.writeError(w, http.StatusBadRequest, "OTP expired")
		return
	case errors.Is(err, auth.ErrRevoked):
		s.writeError(w, http.StatusForbidden, "account revoked")
		return
	case err != nil:
		s.logger.Error("verify-otp failed", zap.String("email", req.Email), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	s.setSessionCookie(w, token)
	s.writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.auth.Logout(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name: SessionCookie, Value: "", Path: "/", HttpOnly: true, MaxAge: -1,
	})
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, u *store.User) {
	s.writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

// ---- report handlers ----

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, u *store.User) {
	var req struct {
		ExperimentCode string `json:"experimentCode"`
	}
	if err := decode(r, &req); err != nil || req.ExperimentCode == "" {
		s.writeError(w, http.StatusBadRequest, "experimentCode required")
		return
	}

	ok, err := s.store.CheckDailyLimit(u.Email)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "limit check failed")
		return
	}
	if !ok {
		s.writeError(w, http.StatusTooManyRequests, "daily report limit reached")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GetLLMTimeout())
	defer cancel()

	m, raw, err := s.gen.Generate(ctx, req.ExperimentCode)
	switch {
	case report.IsMalformed(err), report.IsSchemaViolation(err):
		s.logger.Warn("model reply rejected",
			zap.String("code", req.ExperimentCode), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "model returned an unusable report, try again")
		return
	case err != nil:
		s.logger.Error("generation failed",
			zap.String("code", req.ExperimentCode), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}

	saved, err := s.store.SaveReport(u.Email, req.ExperimentCode, raw)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to save report")
		return
	}
	if err := s.store.IncrementDailyUsage(u.Email); err != nil {
		logging.StoreError("daily usage increment failed for %s: %v", u.Email, err)
	}

	s.logger.Info("report generated",
		zap.String("email", u.Email),
		zap.String("code", req.ExperimentCode),
		zap.String("id", saved.ID),
		zap.String("title", m.Title))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":             saved.ID,
		"experimentCode": saved.ExperimentCode,
		"createdAt":      saved.CreatedAt,
		"report":         json.RawMessage(raw),
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, _ *http.Request, u *store.User) {
	reports, err := s.store.ListReports(u.Email)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	type item struct {
		ID             string    `json:"id"`
		ExperimentCode string    `json:"experimentCode"`
		CreatedAt      time.Time `json:"createdAt"`
	}
	items := make([]item, len(reports))
	for i, r := range reports {
		items[i] = item{ID: r.ID, ExperimentCode: r.ExperimentCode, CreatedAt: r.CreatedAt}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reports": items})
}

func (s *Server) loadReport(r *http.Request, u *store.User) (*report.Model, *store.Report, error) {
	saved, err := s.store.GetReport(u.Email, r.PathValue("id"))
	if err != nil {
		return nil, nil, err
	}
	m, err := report.Parse(saved.Payload)
	if err != nil {
		return nil, nil, err
	}
	return m, saved, nil
}

func (s *Server) handleDownloadHTML(w http.ResponseWriter, r *http.Request, u *store.User) {
	m, saved, err := s.loadReport(r, u)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	html, err := assemble.InteractiveHTML(m, saved.ExperimentCode)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to render document")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", saved.ExperimentCode+"_Interactive_Report.html"))
	w.Write([]byte(html))
}

func (s *Server) handleDownloadPDF(w http.ResponseWriter, r *http.Request, u *store.User) {
	m, saved, err := s.loadReport(r, u)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "report not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	pdf, err := assemble.StaticPDF(m, saved.ExperimentCode)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to render pdf")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", saved.ExperimentCode+"_Report.pdf"))
	w.Write(pdf)
}

// openView creates and registers a live view for a stored report.
func (s *Server) openView(u *store.User, saved *store.Report, m *report.Model) *liveView {
	ctx, cancel := context.WithCancel(context.Background())
	v := &liveView{
		id:      uuid.NewString(),
		email:   u.Email,
		session: session.New(m),
		cancel:  cancel,
	}
	v.session.Start(ctx)

	s.mu.Lock()
	s.views[v.id] = v
	s.mu.Unlock()

	logging.Session("view %s opened for report %s (%s)", v.id, saved.ID, u.Email)
	return v
}

func (s *Server) closeView(v *liveView) {
	s.mu.Lock()
	delete(s.views, v.id)
	s.mu.Unlock()
	v.cancel()
	v.session.Close()
	logging.Session("view %s closed", v.id)
}

// ---- admin handlers ----

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request, _ *store.User) {
	users, err := s.store.ListUsers()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleRevokeUser(w http.ResponseWriter, r *http.Request, _ *store.User) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil || req.Email == "" {
		s.writeError(w, http.StatusBadRequest, "email required")
		return
	}
	if err := s.store.RevokeUser(req.Email); errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (s *Server) handleUpdateLimit(w http.ResponseWriter, r *http.Request, _ *store.User) {
	var req struct {
		Email string `json:"email"`
		Limit int    `json:"limit"`
	}
	if err := decode(r, &req); err != nil || req.Email == "" || req.Limit < 0 {
		s.writeError(w, http.StatusBadRequest, "email and non-negative limit required")
		return
	}
	if err := s.store.UpdateUserLimit(req.Email, req.Limit); errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

func (s *Server) handleListReferences(w http.ResponseWriter, _ *http.Request, _ *store.User) {
	refs, err := s.store.ListReferences()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list references")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"references": refs})
}

func (s *Server) handleAddReference(w http.ResponseWriter, r *http.Request, _ *store.User) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decode(r, &req); err != nil || req.Text == "" {
		s.writeError(w, http.StatusBadRequest, "text required")
		return
	}
	ref, err := s.store.AddReference(req.Text)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to add reference")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"reference": ref})
}

func (s *Server) handleRemoveReference(w http.ResponseWriter, r *http.Request, _ *store.User) {
	var id int64
	if _, err := fmt.Sscanf(r.PathValue("id"), "%d", &id); err != nil {
		s.writeError(w, http.StatusBadRequest, "numeric id required")
		return
	}
	if err := s.store.RemoveReference(id); errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "reference not found")
		return
	} else if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to remove reference")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}
