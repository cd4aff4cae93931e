package users

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/snagtrack/snag/pkg/auth"
	"github.com/snagtrack/snag/pkg/httputil"
	"github.com/snagtrack/snag/pkg/middleware"
)

// Handlers provides HTTP handlers for authentication and user management
type Handlers struct {
	service *Service
}

// NewHandlers creates new user handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the authenticated user management routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/me", h.me).Methods("GET")
	router.HandleFunc("/api/me/email", h.changeEmail).Methods("PATCH")
	router.HandleFunc("/api/me/password", h.changePassword).Methods("PATCH")
	router.HandleFunc("/api/users", h.createUser).Methods("POST")
	router.HandleFunc("/api/users", h.listUsers).Methods("GET")
	router.HandleFunc("/api/users/{id}", h.deleteUser).Methods("DELETE")
}

// RegisterPublicRoutes registers the routes reachable without a session
func (h *Handlers) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/api/auth/login", h.login).Methods("POST")
}

type loginResponse struct {
	Token     string        `json:"token"`
	Identity  auth.Identity `json:"identity"`
	ExpiresAt string        `json:"expires_at"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, loginResponse{
		Token:     token,
		Identity:  session.Identity,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, identity)
}

func (h *Handlers) changeEmail(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		Email           string `json:"email"`
		CurrentPassword string `json:"current_password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	u, err := h.service.ChangeEmail(r.Context(), identity.UserID, req.Email, req.CurrentPassword)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, u)
}

func (h *Handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var in CreateInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	u, err := h.service.Create(r.Context(), in, identity.UserID, identity.Roles)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, u)
}

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	users, err := h.service.List(r.Context(), identity.Roles)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"items": users, "total": len(users)})
}

func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if err := h.service.Delete(r.Context(), id, identity.UserID, identity.Roles); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
