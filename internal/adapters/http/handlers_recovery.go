package http

import (
	"net/http"
	"strings"

	"github.com/andinopay/auth-service/internal/application"
)

func (h *Handler) startPasswordRecovery(w http.ResponseWriter, r *http.Request) {
	var req application.StartRecoveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "start_password_recovery", err)
		return
	}
	res, err := h.service.StartPasswordRecovery(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "start_password_recovery", err)
		return
	}
	writeSuccess(w, http.StatusAccepted, res)
}

func (h *Handler) verifyPasswordRecovery(w http.ResponseWriter, r *http.Request) {
	var req application.VerifyPasswordRecoveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_password_recovery", err)
		return
	}
	if err := h.service.VerifyPasswordRecovery(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "verify_password_recovery", err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successful. You can now login with your new password.")
}

func (h *Handler) startDeviceRecovery(w http.ResponseWriter, r *http.Request) {
	var req application.StartRecoveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "start_device_recovery", err)
		return
	}
	req.DeviceFingerprint = strings.TrimSpace(r.Header.Get("X-Device-Fingerprint"))
	res, err := h.service.StartDeviceRecovery(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "start_device_recovery", err)
		return
	}
	writeSuccess(w, http.StatusAccepted, res)
}

func (h *Handler) verifyDeviceRecovery(w http.ResponseWriter, r *http.Request) {
	var req application.VerifyDeviceRecoveryRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "verify_device_recovery", err)
		return
	}
	if err := h.service.VerifyDeviceRecovery(r.Context(), req); err != nil {
		writeMappedError(r.Context(), w, "verify_device_recovery", err)
		return
	}
	writeMessage(w, http.StatusOK, "Device authorized successfully")
}

func (h *Handler) emailVerifyRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "email_verify_request", err)
		return
	}
	if err := h.service.StartEmailVerification(r.Context(), req.Identifier); err != nil {
		writeMappedError(r.Context(), w, "email_verify_request", err)
		return
	}
	writeMessage(w, http.StatusOK, "If the account exists, a verification email has been sent")
}

func (h *Handler) emailVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "email_verify", err)
		return
	}
	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		writeMappedError(r.Context(), w, "email_verify", err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}
