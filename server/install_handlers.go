package server

import (
	"encoding/json"
	"net/http"

	"github.com/day2-ai/frameio-kit/install"
	kiterrors "github.com/day2-ai/frameio-kit/internal/errors"
)

type installRequest struct {
	AccountID   string            `json:"account_id"`
	WorkspaceID string            `json:"workspace_id"`
	Config      map[string]string `json:"config,omitempty"`
}

func (req *installRequest) tenant() install.Tenant {
	return install.Tenant{AccountID: req.AccountID, WorkspaceID: req.WorkspaceID}
}

type executeResponse struct {
	*install.Summary
	Errors []string `json:"errors,omitempty"`
}

// InstallStatusHandler reports the tenant's installation state without
// touching the remote API.
func (s *Server) InstallStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant := install.Tenant{
			AccountID:   r.URL.Query().Get("account_id"),
			WorkspaceID: r.URL.Query().Get("workspace_id"),
		}
		if tenant.AccountID == "" || tenant.WorkspaceID == "" {
			http.Error(w, "Missing account_id or workspace_id parameter", http.StatusBadRequest)
			return
		}

		report, err := s.installs.Status(r.Context(), tenant)
		if err != nil {
			s.log.Error().Err(err).Str("tenant", tenant.String()).Msg("status lookup failed")
			http.Error(w, "Status lookup failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

// InstallExecuteHandler runs a reconciliation. Partial failures are not
// an HTTP error: the caller gets the full summary plus the failure
// messages so it can display "N succeeded, M failed".
func (s *Server) InstallExecuteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeInstallRequest(w, r)
		if !ok {
			return
		}

		summary, err := s.installs.Reconcile(r.Context(), req.tenant(), req.Config)
		if err != nil {
			var reconcileErr *kiterrors.ReconciliationError
			if !kiterrors.As(err, &reconcileErr) {
				s.log.Error().Err(err).Str("tenant", req.tenant().String()).Msg("reconciliation failed")
				http.Error(w, "Installation failed", http.StatusInternalServerError)
				return
			}
			s.log.Warn().Err(err).Str("tenant", req.tenant().String()).Msg("reconciliation completed with failures")
		}
		writeJSON(w, http.StatusOK, executeResponse{Summary: summary, Errors: summary.FailureMessages()})
	}
}

// InstallUninstallHandler removes the installation. Remote delete
// failures become warnings, never a failed uninstall.
func (s *Server) InstallUninstallHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := s.decodeInstallRequest(w, r)
		if !ok {
			return
		}

		summary, err := s.installs.Uninstall(r.Context(), req.tenant())
		if err != nil {
			if kiterrors.Is(err, kiterrors.ErrNotInstalled) {
				http.Error(w, "Not installed", http.StatusNotFound)
				return
			}
			s.log.Error().Err(err).Str("tenant", req.tenant().String()).Msg("uninstall failed")
			http.Error(w, "Uninstall failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func (s *Server) decodeInstallRequest(w http.ResponseWriter, r *http.Request) (*installRequest, bool) {
	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.AccountID == "" || req.WorkspaceID == "" {
		http.Error(w, "Missing account_id or workspace_id", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
