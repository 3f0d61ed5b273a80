package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Admin endpoints are served on the same router but expected to be reachable
// only from the internal network; the edge gateway never forwards /admin/v1.

func (h *Handler) adminUnblockUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "admin_unblock_user", errors.New("invalid user_id"))
		return
	}
	if err := h.service.UnblockUser(r.Context(), userID); err != nil {
		writeMappedError(r.Context(), w, "admin_unblock_user", err)
		return
	}
	writeMessage(w, http.StatusOK, "User unblocked successfully")
}

func (h *Handler) adminForcePasswordReset(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeValidationError(r.Context(), w, "admin_force_password_reset", errors.New("invalid user_id"))
		return
	}
	if err := h.service.ForcePasswordReset(r.Context(), userID); err != nil {
		writeMappedError(r.Context(), w, "admin_force_password_reset", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset enforced")
}

func (h *Handler) adminDetachDevice(w http.ResponseWriter, r *http.Request) {
	fingerprint := chi.URLParam(r, "fingerprint")
	if fingerprint == "" {
		writeValidationError(r.Context(), w, "admin_detach_device", errors.New("fingerprint is required"))
		return
	}
	detached, err := h.service.DetachDevice(r.Context(), fingerprint)
	if err != nil {
		writeMappedError(r.Context(), w, "admin_detach_device", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"detached": detached})
}
