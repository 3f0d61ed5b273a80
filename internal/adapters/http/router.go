package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/andinopay/auth-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for auth use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

// NewRouter registers HTTP routes and the middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Device-Fingerprint", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Get("/.well-known/jwks.json", handler.jwks)

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/recovery/password/start", handler.startPasswordRecovery)
		r.Post("/recovery/password/verify", handler.verifyPasswordRecovery)
		r.Post("/recovery/device/start", handler.startDeviceRecovery)
		r.Post("/recovery/device/verify", handler.verifyDeviceRecovery)
		r.Post("/email/verify-request", handler.emailVerifyRequest)
		r.Post("/email/verify", handler.emailVerify)

		// Logout validates the token signature itself so that a second
		// call on an already-revoked session can still answer success.
		r.Post("/logout", handler.logout)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions", handler.revokeAllSessions)
			r.Get("/login-history", handler.loginHistory)
		})
	})

	r.Route("/admin/v1", func(r chi.Router) {
		r.Post("/users/{user_id}/unblock", handler.adminUnblockUser)
		r.Post("/users/{user_id}/force-password-reset", handler.adminForcePasswordReset)
		r.Delete("/devices/{fingerprint}", handler.adminDetachDevice)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) jwks(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.PublicJWKs()
	if err != nil {
		writeMappedError(r.Context(), w, "jwks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}
