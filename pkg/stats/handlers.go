package stats

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/snagtrack/snag/pkg/httputil"
)

// Handlers provides HTTP handlers for stats
type Handlers struct {
	service *Service
}

// NewHandlers creates new stats handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers stats routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/stats/summary", h.summary).Methods("GET")
	router.HandleFunc("/api/stats/status-distribution", h.statusDistribution).Methods("GET")
	router.HandleFunc("/api/stats/trend", h.trend).Methods("GET")
	router.HandleFunc("/api/stats/by-project", h.byProject).Methods("GET")
	router.HandleFunc("/api/stats/aging", h.aging).Methods("GET")
	router.HandleFunc("/api/stats/leadtime", h.leadTime).Methods("GET")
}

func scopeFromQuery(r *http.Request) Scope {
	q := r.URL.Query()
	return Scope{ProjectID: q.Get("project_id"), AssigneeID: q.Get("assignee_id")}
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := ParseTimeParam(q.Get("from"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	to, err := ParseTimeParam(q.Get("to"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	result, err := h.service.Summary(r.Context(), Filter{
		ProjectID:  q.Get("project_id"),
		AssigneeID: q.Get("assignee_id"),
		From:       from,
		To:         to,
	})
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) statusDistribution(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.StatusDistribution(r.Context(), scopeFromQuery(r))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if result == nil {
		result = []StatusCount{}
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) trend(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteValidationError(w, "days must be an integer")
			return
		}
		days = parsed
	}

	result, err := h.service.Trend(r.Context(), days, scopeFromQuery(r))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) byProject(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ByProject(r.Context())
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if result == nil {
		result = []ProjectTotals{}
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) aging(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Aging(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) leadTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := ParseTimeParam(q.Get("from"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	to, err := ParseTimeParam(q.Get("to"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	result, err := h.service.LeadTime(r.Context(), Filter{
		ProjectID:  q.Get("project_id"),
		AssigneeID: q.Get("assignee_id"),
		From:       from,
		To:         to,
	})
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}
