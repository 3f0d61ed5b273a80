package http

import (
	"net/http"

	"github.com/andinopay/auth-service/internal/application"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_sessions")
		return
	}
	items, err := h.service.ListSessions(r.Context(), claims.UserID, claims.JTI)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": items})
}

func (h *Handler) revokeAllSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "revoke_all_sessions")
		return
	}
	revoked, err := h.service.RevokeAllSessions(r.Context(), claims.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "revoke_all_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"revoked": revoked})
}

func (h *Handler) loginHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeMissingBearerError(r.Context(), w, "login_history")
		return
	}

	query := application.LoginHistoryQuery{
		Page:  parseIntDefault(r.URL.Query().Get("page"), 1),
		Limit: parseIntDefault(r.URL.Query().Get("limit"), 20),
		Days:  parseIntDefault(r.URL.Query().Get("days"), 0),
	}
	items, err := h.service.ListLoginHistory(r.Context(), claims.UserID, query)
	if err != nil {
		writeMappedError(r.Context(), w, "login_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"attempts": items})
}
