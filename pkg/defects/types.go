package defects

import (
	"time"

	"github.com/snagtrack/snag/pkg/policy"
)

// Priority is a defect priority level
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMed      Priority = "med"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// DefaultPriority is assigned when a defect is created without one
const DefaultPriority = PriorityMed

// ValidPriority reports whether the string names a known priority
func ValidPriority(s string) bool {
	switch Priority(s) {
	case PriorityLow, PriorityMed, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// MaxTitleLen bounds defect titles; MaxTextLen bounds descriptions and comments
const (
	MaxTitleLen = 120
	MaxTextLen  = 4000
)

// Defect is a tracked issue with a lifecycle status
type Defect struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	StageID     *string       `json:"stage_id,omitempty"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	Priority    Priority      `json:"priority"`
	AssigneeID  *string       `json:"assignee_id,omitempty"`
	Status      policy.Status `json:"status"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Comment is immutable commentary on a defect, removable only by its author
// or a moderator
type Comment struct {
	ID        string    `json:"id"`
	DefectID  string    `json:"defect_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is file evidence on a defect. Locator identifies the blob in
// the configured blob store.
type Attachment struct {
	ID        string    `json:"id"`
	DefectID  string    `json:"defect_id"`
	AuthorID  string    `json:"author_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Locator   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput carries the fields accepted at defect creation. Status is
// always forced to "new" and priority defaults to "med".
type CreateInput struct {
	Title       string  `json:"title"`
	ProjectID   string  `json:"project_id"`
	Description *string `json:"description,omitempty"`
	Priority    string  `json:"priority,omitempty"`
}

// FieldPatch is a partial defect update. Status deliberately has no field
// here: status changes go through the transition operation only.
type FieldPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	StageID     *string    `json:"stage_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p FieldPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.AssigneeID == nil && p.StageID == nil && p.DueDate == nil
}

// Page is the paginated listing envelope
type Page struct {
	Items []Defect `json:"items"`
	Total int64    `json:"total"`
}

// CommentPage is the paginated comment listing envelope
type CommentPage struct {
	Items []Comment `json:"items"`
	Total int64     `json:"total"`
}

// AttachmentList is the attachment listing envelope
type AttachmentList struct {
	Items []Attachment `json:"items"`
	Total int64        `json:"total"`
}
