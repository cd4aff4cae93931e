package defects

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/auth"
	"github.com/snagtrack/snag/pkg/observability"
	"github.com/snagtrack/snag/pkg/policy"
)

// Service provides defect, comment and attachment operations
type Service struct {
	store   Store
	blobs   BlobStore
	cache   Cache
	policy  *policy.Policy
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a new defect service. metrics may be nil.
func NewService(store Store, blobs BlobStore, pol *policy.Policy, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		blobs:   blobs,
		policy:  pol,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// SetCache installs a read cache for Get. The service works without one.
func (s *Service) SetCache(cache Cache) {
	s.cache = cache
}

// List returns a filtered, ordered, paginated page of defects
func (s *Service) List(ctx context.Context, filter Filter, sort Sort, page PageRequest) (*Page, error) {
	q, err := BuildQuery(filter, sort, &page)
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.ListDefects(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Defect{}
	}
	return &Page{Items: items, Total: total}, nil
}

// Get returns a single defect by ID
func (s *Service) Get(ctx context.Context, id string) (*Defect, error) {
	if s.cache != nil {
		if d, ok := s.cache.Get(ctx, id); ok {
			return d, nil
		}
	}
	d, err := s.store.GetDefect(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, d)
	}
	return d, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}

// Create creates a defect. Status is forced to "new" and priority defaults
// to "med"; the caller cannot influence either beyond the priority choices.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Defect, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.New(apperr.KindValidation, "title is required")
	}
	if len(title) > MaxTitleLen {
		return nil, apperr.Newf(apperr.KindValidation, "title exceeds %d characters", MaxTitleLen)
	}
	if in.ProjectID == "" {
		return nil, apperr.New(apperr.KindValidation, "project_id is required")
	}
	if in.Description != nil && len(*in.Description) > MaxTextLen {
		return nil, apperr.Newf(apperr.KindValidation, "description exceeds %d characters", MaxTextLen)
	}

	priority := DefaultPriority
	if in.Priority != "" {
		if !ValidPriority(in.Priority) {
			return nil, apperr.Newf(apperr.KindValidation, "invalid priority %q", in.Priority)
		}
		priority = Priority(in.Priority)
	}

	now := s.now()
	d := &Defect{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		Title:       title,
		Description: in.Description,
		Priority:    priority,
		Status:      policy.StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateDefect(ctx, d); err != nil {
		return nil, err
	}

	s.logger.WithField("defect_id", d.ID).Info("defect created")
	return d, nil
}

// UpdateFields applies a partial update to a defect. Status never changes
// here; it is not representable in FieldPatch.
func (s *Service) UpdateFields(ctx context.Context, id string, patch FieldPatch) (*Defect, error) {
	if patch.Empty() {
		return nil, apperr.New(apperr.KindValidation, "no fields to update")
	}
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return nil, apperr.New(apperr.KindValidation, "title cannot be empty")
		}
		if len(trimmed) > MaxTitleLen {
			return nil, apperr.Newf(apperr.KindValidation, "title exceeds %d characters", MaxTitleLen)
		}
		patch.Title = &trimmed
	}
	if patch.Description != nil && len(*patch.Description) > MaxTextLen {
		return nil, apperr.Newf(apperr.KindValidation, "description exceeds %d characters", MaxTextLen)
	}
	if patch.Priority != nil && !ValidPriority(*patch.Priority) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid priority %q", *patch.Priority)
	}

	updated, err := s.store.UpdateDefectFields(ctx, id, patch, s.now())
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return updated, nil
}

// Transition moves a defect along the workflow graph. Structural validity
// is checked before authorization, and the write is conditional on the
// status read during validation: a concurrent transition surfaces as a
// Conflict instead of silently winning.
func (s *Service) Transition(ctx context.Context, id, target string, callerRoles interface{}) (*Defect, error) {
	roles := auth.NormalizeRoles(callerRoles)

	current, err := s.store.GetDefect(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Workflow.Transition(current.Status, policy.Status(target), roles); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateDefectStatus(ctx, id, current.Status, policy.Status(target), s.now())
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)

	if s.metrics != nil {
		s.metrics.DefectTransitionsTotal.WithLabelValues(string(current.Status), target).Inc()
	}
	s.logger.WithFields(map[string]interface{}{
		"defect_id": id,
		"from":      string(current.Status),
		"to":        target,
	}).Info("defect status changed")

	return updated, nil
}

// Delete removes a defect. Moderators only; Engineers are refused even
// when assigned to the defect.
func (s *Service) Delete(ctx context.Context, id string, callerRoles interface{}) error {
	roles := auth.NormalizeRoles(callerRoles)
	d := s.policy.Matrix.Authorize(policy.ActionDeleteDefect, policy.Input{Roles: roles})
	if err := d.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteDefect(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Export returns the complete filtered, ordered defect set — the
// unpaginated union of every listing page under identical filters. The
// role gate runs before any query is composed or executed.
func (s *Service) Export(ctx context.Context, filter Filter, sort Sort, callerRoles interface{}) ([]Defect, error) {
	roles := auth.NormalizeRoles(callerRoles)
	d := s.policy.Matrix.Authorize(policy.ActionExportDefects, policy.Input{Roles: roles})
	if err := d.Err(); err != nil {
		return nil, err
	}

	q, err := BuildQuery(filter, sort, nil)
	if err != nil {
		return nil, err
	}

	items, _, err := s.store.ListDefects(ctx, q)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ExportsTotal.Inc()
	}
	return items, nil
}

// CreateComment adds a comment to an existing defect
func (s *Service) CreateComment(ctx context.Context, defectID, authorID, text string) (*Comment, error) {
	if text == "" {
		return nil, apperr.New(apperr.KindValidation, "text is required")
	}
	if len(text) > MaxTextLen {
		return nil, apperr.Newf(apperr.KindValidation, "text exceeds %d characters", MaxTextLen)
	}

	if _, err := s.store.GetDefect(ctx, defectID); err != nil {
		return nil, err
	}

	c := &Comment{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns a page of comments in creation order
func (s *Service) ListComments(ctx context.Context, defectID string, page PageRequest) (*CommentPage, error) {
	items, total, err := s.store.ListComments(ctx, defectID, clampLimit(page.Limit), clampOffset(page.Offset))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Comment{}
	}
	return &CommentPage{Items: items, Total: total}, nil
}

// DeleteComment removes a comment. The author may delete their own;
// moderators may delete any.
func (s *Service) DeleteComment(ctx context.Context, id, callerID string, callerRoles interface{}) error {
	roles := auth.NormalizeRoles(callerRoles)

	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return err
	}

	d := s.policy.Matrix.Authorize(policy.ActionDeleteComment, policy.Input{
		CallerID: callerID,
		Roles:    roles,
		OwnerID:  c.AuthorID,
	})
	if err := d.Err(); err != nil {
		return err
	}
	return s.store.DeleteComment(ctx, id)
}

// CreateAttachment stores the file content and records the metadata. The
// blob is written first so a metadata row never points at a missing file;
// if the metadata insert fails the blob is removed best-effort.
func (s *Service) CreateAttachment(ctx context.Context, defectID, authorID, fileName, mimeType string, size int64, content io.Reader) (*Attachment, error) {
	if fileName == "" {
		return nil, apperr.New(apperr.KindValidation, "file is required")
	}

	if _, err := s.store.GetDefect(ctx, defectID); err != nil {
		return nil, err
	}

	a := &Attachment{
		ID:        uuid.NewString(),
		DefectID:  defectID,
		AuthorID:  authorID,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: size,
		CreatedAt: s.now(),
	}
	a.Locator = a.ID

	if err := s.blobs.Put(ctx, a.Locator, content); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to store file", err)
	}
	if err := s.store.CreateAttachment(ctx, a); err != nil {
		if delErr := s.blobs.Delete(ctx, a.Locator); delErr != nil {
			s.logger.WithError(delErr).WithField("locator", a.Locator).
				Warn("failed to remove orphaned blob")
		}
		return nil, err
	}
	return a, nil
}

// ListAttachments returns all attachments of a defect in creation order
func (s *Service) ListAttachments(ctx context.Context, defectID string) (*AttachmentList, error) {
	items, total, err := s.store.ListAttachments(ctx, defectID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Attachment{}
	}
	return &AttachmentList{Items: items, Total: total}, nil
}

// DeleteAttachment removes attachment metadata and then the backing blob.
// The metadata row is deleted first; a blob store failure is logged but
// does not undo the metadata deletion. Callers are told the attachment is
// gone, which is true of the record; the orphaned blob is left for the
// cleanup job.
func (s *Service) DeleteAttachment(ctx context.Context, id string, callerRoles interface{}) error {
	roles := auth.NormalizeRoles(callerRoles)
	d := s.policy.Matrix.Authorize(policy.ActionDeleteAttachment, policy.Input{Roles: roles})
	if err := d.Err(); err != nil {
		return err
	}

	a, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAttachment(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, a.Locator); err != nil {
		s.logger.WithError(err).WithField("locator", a.Locator).
			Warn("attachment metadata deleted but blob removal failed")
	}
	return nil
}

// DownloadAttachment opens the attachment content for streaming. The
// caller must close the reader.
func (s *Service) DownloadAttachment(ctx context.Context, id string) (*Attachment, io.ReadCloser, error) {
	a, err := s.store.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, a.Locator)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindNotFound, "file not found in storage", err)
	}
	return a, rc, nil
}
