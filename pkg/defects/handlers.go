package defects

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/snagtrack/snag/pkg/httputil"
	"github.com/snagtrack/snag/pkg/middleware"
	"github.com/snagtrack/snag/pkg/observability"
)

// MaxUploadBytes bounds attachment upload size
const MaxUploadBytes = 25 << 20

// Handlers provides HTTP handlers for defects, comments and attachments
type Handlers struct {
	service  *Service
	exporter Exporter
}

// NewHandlers creates new defect handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service, exporter: CSVExporter{}}
}

// RegisterRoutes registers defect routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/defects", h.listDefects).Methods("GET")
	router.HandleFunc("/api/defects", h.createDefect).Methods("POST")
	router.HandleFunc("/api/defects/export.csv", h.exportDefects).Methods("GET")
	router.HandleFunc("/api/defects/{id}", h.getDefect).Methods("GET")
	router.HandleFunc("/api/defects/{id}", h.updateDefect).Methods("PATCH")
	router.HandleFunc("/api/defects/{id}/status", h.transitionDefect).Methods("PATCH")
	router.HandleFunc("/api/defects/{id}", h.deleteDefect).Methods("DELETE")

	router.HandleFunc("/api/defects/{id}/comments", h.listComments).Methods("GET")
	router.HandleFunc("/api/defects/{id}/comments", h.createComment).Methods("POST")
	router.HandleFunc("/api/comments/{id}", h.deleteComment).Methods("DELETE")

	router.HandleFunc("/api/defects/{id}/attachments", h.listAttachments).Methods("GET")
	router.HandleFunc("/api/defects/{id}/attachments", h.createAttachment).Methods("POST")
	router.HandleFunc("/api/attachments/{id}/download", h.downloadAttachment).Methods("GET")
	router.HandleFunc("/api/attachments/{id}", h.deleteAttachment).Methods("DELETE")
}

func filterFromQuery(r *http.Request) (Filter, Sort, PageRequest) {
	q := r.URL.Query()
	filter := Filter{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		ProjectID:  q.Get("project_id"),
		AssigneeID: q.Get("assignee_id"),
		Q:          q.Get("q"),
	}
	sort := Sort{
		By:  q.Get("sort_by"),
		Asc: q.Get("order") == "asc",
	}
	page := PageRequest{
		Limit:  q.Get("limit"),
		Offset: q.Get("offset"),
	}
	return filter, sort, page
}

func (h *Handlers) listDefects(w http.ResponseWriter, r *http.Request) {
	filter, sort, page := filterFromQuery(r)
	result, err := h.service.List(r.Context(), filter, sort, page)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) createDefect(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	d, err := h.service.Create(r.Context(), in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, d)
}

func (h *Handlers) getDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

// updateDefectRequest mirrors FieldPatch plus a status probe so status
// changes sent to the generic patch route fail loudly instead of being
// silently dropped.
type updateDefectRequest struct {
	FieldPatch
	Status *string `json:"status"`
}

func (h *Handlers) updateDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req updateDefectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Status != nil {
		httputil.WriteValidationError(w, "status cannot be changed here; use the status endpoint")
		return
	}
	d, err := h.service.UpdateFields(r.Context(), id, req.FieldPatch)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

func (h *Handlers) transitionDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Status == "" {
		httputil.WriteValidationError(w, "status is required")
		return
	}

	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	d, err := h.service.Transition(r.Context(), id, req.Status, identity.Roles)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, d)
}

func (h *Handlers) deleteDefect(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if err := h.service.Delete(r.Context(), id, identity.Roles); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) exportDefects(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	filter, sort, _ := filterFromQuery(r)
	items, err := h.service.Export(r.Context(), filter, sort, identity.Roles)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", h.exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.exporter.FileName()))
	if err := h.exporter.Render(w, items); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("export rendering failed")
	}
}

func (h *Handlers) listComments(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	page := PageRequest{Limit: q.Get("limit"), Offset: q.Get("offset")}
	result, err := h.service.ListComments(r.Context(), id, page)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) createComment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	c, err := h.service.CreateComment(r.Context(), id, identity.UserID, req.Text)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, c)
}

func (h *Handlers) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if err := h.service.DeleteComment(r.Context(), id, identity.UserID, identity.Roles); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *Handlers) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	result, err := h.service.ListAttachments(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) createAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		httputil.WriteValidationError(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteValidationError(w, "file is required")
		return
	}
	defer file.Close()

	a, err := h.service.CreateAttachment(r.Context(), id, identity.UserID,
		header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, a)
}

func (h *Handlers) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	a, rc, err := h.service.DownloadAttachment(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	defer rc.Close()

	contentType := a.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
	if _, err := io.Copy(w, rc); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("attachment streaming failed")
	}
}

func (h *Handlers) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	identity := middleware.GetIdentity(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	if err := h.service.DeleteAttachment(r.Context(), id, identity.Roles); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
