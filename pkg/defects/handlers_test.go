package defects

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snagtrack/snag/pkg/auth"
	"github.com/snagtrack/snag/pkg/contextkeys"
	"github.com/snagtrack/snag/pkg/policy"
)

func newTestRouter(t *testing.T) (*mux.Router, *Service, *memStore) {
	t.Helper()
	svc, store, _ := newTestService(t)
	router := mux.NewRouter()
	NewHandlers(svc).RegisterRoutes(router)
	return router, svc, store
}

func asIdentity(r *http.Request, userID string, roles ...auth.Role) *http.Request {
	identity := &auth.Identity{UserID: userID, Roles: roles}
	ctx := contextkeys.WithValue(r.Context(), contextkeys.IdentityKey, identity)
	return r.WithContext(ctx)
}

func seedDefect(t *testing.T, svc *Service) *Defect {
	t.Helper()
	d, err := svc.Create(context.Background(), CreateInput{Title: "broken latch", ProjectID: "p1"})
	require.NoError(t, err)
	return d
}

func TestCreateDefectHandler(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := `{"title":"broken latch","project_id":"p1","priority":"high"}`
	req := httptest.NewRequest(http.MethodPost, "/api/defects", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var d Defect
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "broken latch", d.Title)
	assert.Equal(t, policy.StatusNew, d.Status)
	assert.Equal(t, PriorityHigh, d.Priority)
}

func TestCreateDefectHandlerValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/defects", strings.NewReader(`{"project_id":"p1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestListDefectsHandler(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	seedDefect(t, svc)
	seedDefect(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/defects?limit=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(2), page.Total)
}

func TestListDefectsHandlerBadFilter(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/defects?status=bogus", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDefectHandler(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/defects/"+d.ID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/defects/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateDefectHandlerRejectsStatus(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	body := `{"title":"new title","status":"in_work"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/defects/"+d.ID, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "status endpoint")

	// The defect is untouched
	got, err := svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, "broken latch", got.Title)
}

func TestUpdateDefectHandler(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	body := `{"priority":"critical","assignee_id":"u9"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/defects/"+d.ID, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got, err := svc.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, PriorityCritical, got.Priority)
}

func TestTransitionDefectHandler(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	body := `{"status":"in_work"}`
	req := asIdentity(
		httptest.NewRequest(http.MethodPatch, "/api/defects/"+d.ID+"/status", strings.NewReader(body)),
		"u1", auth.RoleEngineer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got Defect
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, policy.StatusInWork, got.Status)
}

func TestTransitionDefectHandlerErrors(t *testing.T) {
	router, svc, _ := newTestRouter(t)

	tests := []struct {
		name       string
		status     string
		roles      []auth.Role
		wantStatus int
		wantKind   string
	}{
		{"structural violation", "closed", []auth.Role{auth.RoleAdmin}, http.StatusConflict, "invalid_transition"},
		{"forbidden target later", "in_work", nil, http.StatusForbidden, "forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := seedDefect(t, svc)
			body := `{"status":"` + tt.status + `"}`
			req := asIdentity(
				httptest.NewRequest(http.MethodPatch, "/api/defects/"+d.ID+"/status", strings.NewReader(body)),
				"u1", tt.roles...)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantKind)
		})
	}
}

func TestTransitionDefectHandlerUnauthenticated(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/defects/"+d.ID+"/status",
		strings.NewReader(`{"status":"in_work"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteDefectHandler(t *testing.T) {
	router, svc, store := newTestRouter(t)
	d := seedDefect(t, svc)

	req := asIdentity(httptest.NewRequest(http.MethodDelete, "/api/defects/"+d.ID, nil),
		"u1", auth.RoleEngineer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, store.defects, d.ID)

	req = asIdentity(httptest.NewRequest(http.MethodDelete, "/api/defects/"+d.ID, nil),
		"u2", auth.RoleManager)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, store.defects, d.ID)
}

func TestExportDefectsHandler(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	seedDefect(t, svc)

	req := asIdentity(httptest.NewRequest(http.MethodGet, "/api/defects/export.csv", nil),
		"u1", auth.RoleLead)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "defects.csv")
	assert.Contains(t, rec.Body.String(), "broken latch")
}

func TestExportDefectsHandlerForbidden(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	seedDefect(t, svc)

	req := asIdentity(httptest.NewRequest(http.MethodGet, "/api/defects/export.csv", nil),
		"u1", auth.RoleEngineer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCommentHandlers(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	req := asIdentity(httptest.NewRequest(http.MethodPost, "/api/defects/"+d.ID+"/comments",
		strings.NewReader(`{"text":"looks bad"}`)), "author", auth.RoleEngineer)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var c Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "author", c.AuthorID)

	req = httptest.NewRequest(http.MethodGet, "/api/defects/"+d.ID+"/comments", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var page CommentPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)

	// Non-author engineer may not delete
	req = asIdentity(httptest.NewRequest(http.MethodDelete, "/api/comments/"+c.ID, nil),
		"other", auth.RoleEngineer)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Author may
	req = asIdentity(httptest.NewRequest(http.MethodDelete, "/api/comments/"+c.ID, nil),
		"author", auth.RoleEngineer)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAttachmentHandlers(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	body, contentType := multipartBody(t, "file", "evidence.png", "pngbytes")
	req := asIdentity(httptest.NewRequest(http.MethodPost, "/api/defects/"+d.ID+"/attachments", body),
		"u1", auth.RoleEngineer)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var a Attachment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, "evidence.png", a.FileName)

	req = httptest.NewRequest(http.MethodGet, "/api/attachments/"+a.ID+"/download", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pngbytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "evidence.png")

	// Engineers may not delete attachments, their own included
	req = asIdentity(httptest.NewRequest(http.MethodDelete, "/api/attachments/"+a.ID, nil),
		"u1", auth.RoleEngineer)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = asIdentity(httptest.NewRequest(http.MethodDelete, "/api/attachments/"+a.ID, nil),
		"u2", auth.RoleAdmin)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAttachmentUploadMissingFile(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	d := seedDefect(t, svc)

	body, contentType := multipartBody(t, "wrong_field", "x.txt", "data")
	req := asIdentity(httptest.NewRequest(http.MethodPost, "/api/defects/"+d.ID+"/attachments", body),
		"u1", auth.RoleEngineer)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
