package projects

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/snagtrack/snag/pkg/httputil"
)

// Handlers provides HTTP handlers for projects and stages
type Handlers struct {
	service *Service
}

// NewHandlers creates new project handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers project routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/projects", h.createProject).Methods("POST")
	router.HandleFunc("/api/projects", h.listProjects).Methods("GET")
	router.HandleFunc("/api/projects/{id}", h.getProject).Methods("GET")
	router.HandleFunc("/api/projects/{id}", h.deleteProject).Methods("DELETE")

	router.HandleFunc("/api/projects/{id}/stages", h.createStage).Methods("POST")
	router.HandleFunc("/api/projects/{id}/stages", h.listStages).Methods("GET")
	router.HandleFunc("/api/stages/{id}", h.deleteStage).Methods("DELETE")
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var in CreateProjectInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	p, err := h.service.CreateProject(r.Context(), in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, p)
}

func (h *Handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListProjects(r.Context())
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.GetProject(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, p)
}

func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteProject(r.Context(), id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) createStage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	st, err := h.service.CreateStage(r.Context(), id, req.Name)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, st)
}

func (h *Handlers) listStages(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	list, err := h.service.ListStages(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (h *Handlers) deleteStage(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteStage(r.Context(), id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
