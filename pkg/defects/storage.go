package defects

import (
	"context"
	"io"
	"time"

	"github.com/snagtrack/snag/pkg/policy"
)

// Store is the persistence contract for the defect domain. Implementations
// return apperr-typed errors for not-found and conflict conditions.
type Store interface {
	// ListDefects executes a composed query. When q.Paginated() the result
	// honors limit/offset; total is always the unpaginated match count.
	ListDefects(ctx context.Context, q Query) (items []Defect, total int64, err error)
	GetDefect(ctx context.Context, id string) (*Defect, error)
	CreateDefect(ctx context.Context, d *Defect) error
	UpdateDefectFields(ctx context.Context, id string, patch FieldPatch, now time.Time) (*Defect, error)
	// UpdateDefectStatus performs a conditional write: the status column is
	// set to target only if it still equals expected. A concurrent change
	// surfaces as a Conflict error, never a silent overwrite.
	UpdateDefectStatus(ctx context.Context, id string, expected, target policy.Status, now time.Time) (*Defect, error)
	DeleteDefect(ctx context.Context, id string) error

	CreateComment(ctx context.Context, c *Comment) error
	ListComments(ctx context.Context, defectID string, limit, offset int) ([]Comment, int64, error)
	GetComment(ctx context.Context, id string) (*Comment, error)
	DeleteComment(ctx context.Context, id string) error

	CreateAttachment(ctx context.Context, a *Attachment) error
	ListAttachments(ctx context.Context, defectID string) ([]Attachment, int64, error)
	GetAttachment(ctx context.Context, id string) (*Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}

// Cache is an optional read-through cache for single-defect lookups.
// Implementations are best-effort: a miss or a failed write must never
// surface as an error to the caller.
type Cache interface {
	Get(ctx context.Context, id string) (*Defect, bool)
	Set(ctx context.Context, d *Defect)
	Invalidate(ctx context.Context, id string)
}

// BlobStore stores attachment file content by locator
type BlobStore interface {
	Put(ctx context.Context, locator string, content io.Reader) error
	Open(ctx context.Context, locator string) (io.ReadCloser, error)
	Delete(ctx context.Context, locator string) error
}
