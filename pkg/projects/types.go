package projects

import "time"

// Project groups defects under a construction or inspection effort
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Stage is a phase within a project
type Stage struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MaxNameLen bounds project and stage names
const MaxNameLen = 120

// CreateProjectInput carries the fields accepted at project creation
type CreateProjectInput struct {
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// ProjectList is the project listing envelope
type ProjectList struct {
	Items []Project `json:"items"`
	Total int64     `json:"total"`
}

// StageList is the stage listing envelope
type StageList struct {
	Items []Stage `json:"items"`
	Total int64   `json:"total"`
}
