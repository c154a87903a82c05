package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-crm-connector/command"
	"github.com/goliatone/go-crm-connector/core"
)

type authInitResponse struct {
	URL string `json:"url"`
}

type syncResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Count      int    `json:"count"`
	Pages      int    `json:"pages,omitempty"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type errorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Bearer presence is checked by the service, which answers with an
// authentication error rather than the command's bad-input validation.
func (s *Server) handleAuthInit(w http.ResponseWriter, r *http.Request) {
	collector := gocmd.NewResult[core.AuthorizationURL]()
	ctx := gocmd.ContextWithResult(r.Context(), collector)
	if err := s.begin.Execute(ctx, command.BeginAuthorizationMessage{BearerToken: bearerToken(r)}); err != nil {
		s.writeError(w, r, err, false)
		return
	}
	result, _ := collector.Load()
	writeJSON(w, http.StatusOK, authInitResponse{URL: result.URL})
}

// handleAuthCallback always answers with a redirect to the frontend. Tokens
// never reach the browser.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	msg := command.CompleteAuthorizationMessage{Request: core.CallbackRequest{
		Code:             query.Get("code"),
		State:            query.Get("state"),
		Error:            query.Get("error"),
		ErrorDescription: query.Get("error_description"),
	}}

	collector := gocmd.NewResult[core.CallbackOutcome]()
	ctx := gocmd.ContextWithResult(r.Context(), collector)
	if err := s.complete.Execute(ctx, msg); err != nil {
		s.writeError(w, r, err, false)
		return
	}
	outcome, _ := collector.Load()
	if strings.TrimSpace(outcome.RedirectURL) == "" {
		s.writeError(w, r, core.ConfigurationError("httpapi: callback produced no redirect"), false)
		return
	}
	http.Redirect(w, r, outcome.RedirectURL, http.StatusFound)
}

// handleSyncCompanies runs the pipeline for the caller. As with auth init the
// message is not validated here so a missing bearer maps to 401.
func (s *Server) handleSyncCompanies(w http.ResponseWriter, r *http.Request) {
	collector := gocmd.NewResult[core.SyncSummary]()
	ctx := gocmd.ContextWithResult(r.Context(), collector)
	if err := s.sync.Execute(ctx, command.SyncCompaniesMessage{BearerToken: bearerToken(r)}); err != nil {
		s.writeError(w, r, err, true)
		return
	}
	summary, _ := collector.Load()
	writeJSON(w, http.StatusOK, syncResponse{
		Success:    true,
		Message:    summary.Message(),
		Count:      summary.Count,
		Pages:      summary.Pages,
		NextCursor: summary.NextCursor,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, withSuccess bool) {
	mapped := core.MapError(err)
	status := mapped.Code
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "code", mapped.TextCode, "error", mapped.Error())
	}

	body := errorResponse{
		Error:   mapped.Message,
		Code:    mapped.TextCode,
		Message: mapped.Message,
	}
	if withSuccess {
		failed := false
		body.Success = &failed
	}
	writeJSON(w, status, body)
}

// bearerToken strips an optional "Bearer " scheme from the Authorization
// header.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}
	return strings.TrimSpace(header)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
