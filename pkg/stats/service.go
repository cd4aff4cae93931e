package stats

import (
	"context"
	"time"

	"github.com/snagtrack/snag/pkg/apperr"
	"github.com/snagtrack/snag/pkg/observability"
)

// Filter scopes a summary query. All fields are optional; the date range
// applies to defect creation for counts and to closure for lead time.
type Filter struct {
	ProjectID  string
	AssigneeID string
	From       *time.Time
	To         *time.Time
}

// Summary holds the reporting aggregates
type Summary struct {
	Created        int64    `json:"created"`
	ClosedInPeriod int64    `json:"closed_in_period"`
	OpenNow        int64    `json:"open_now"`
	AvgLeadTimeSec *float64 `json:"avg_lead_time_sec"`
}

// Scope limits a report to a project and/or assignee
type Scope struct {
	ProjectID  string
	AssigneeID string
}

// StatusCount is one slice of the current status distribution
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// TrendPoint is one day of the created-vs-closed series
type TrendPoint struct {
	Day     string `json:"day"`
	Created int64  `json:"created"`
	Closed  int64  `json:"closed"`
}

// ProjectTotals is a per-project rollup
type ProjectTotals struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Total     int64  `json:"total"`
	Closed    int64  `json:"closed"`
}

// AgingBuckets counts open defects by age since creation
type AgingBuckets struct {
	UpTo2Days int64 `json:"up_to_2_days"`
	Days3To7  int64 `json:"days_3_to_7"`
	Days8To14 int64 `json:"days_8_to_14"`
	Over2Wks  int64 `json:"over_2_weeks"`
}

// LeadTimePercentiles holds lead time quantiles for closed defects, in
// seconds. Nil values mean no closed defects matched.
type LeadTimePercentiles struct {
	P50 *float64 `json:"p50_sec"`
	P75 *float64 `json:"p75_sec"`
	P90 *float64 `json:"p90_sec"`
}

// Default and maximum window for the trend report, in days
const (
	DefaultTrendDays = 30
	MaxTrendDays     = 365
)

// Store computes aggregates in the persistence layer
type Store interface {
	Summary(ctx context.Context, f Filter) (*Summary, error)
	StatusDistribution(ctx context.Context, scope Scope) ([]StatusCount, error)
	Trend(ctx context.Context, days int, scope Scope) ([]TrendPoint, error)
	ByProject(ctx context.Context) ([]ProjectTotals, error)
	Aging(ctx context.Context, projectID string) (*AgingBuckets, error)
	LeadTime(ctx context.Context, f Filter) (*LeadTimePercentiles, error)
}

// Service provides the stats operations
type Service struct {
	store  Store
	logger *observability.Logger
}

// NewService creates a new stats service
func NewService(store Store, logger *observability.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Summary validates the filter and returns the aggregates
func (s *Service) Summary(ctx context.Context, f Filter) (*Summary, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.New(apperr.KindValidation, "to cannot precede from")
	}
	return s.store.Summary(ctx, f)
}

// StatusDistribution returns the current defect counts grouped by status
func (s *Service) StatusDistribution(ctx context.Context, scope Scope) ([]StatusCount, error) {
	return s.store.StatusDistribution(ctx, scope)
}

// Trend returns the created-vs-closed daily series for the trailing
// window. A zero days value means DefaultTrendDays.
func (s *Service) Trend(ctx context.Context, days int, scope Scope) ([]TrendPoint, error) {
	if days == 0 {
		days = DefaultTrendDays
	}
	if days < 1 || days > MaxTrendDays {
		return nil, apperr.Newf(apperr.KindValidation, "days must be between 1 and %d", MaxTrendDays)
	}
	return s.store.Trend(ctx, days, scope)
}

// ByProject returns total and closed counts per project
func (s *Service) ByProject(ctx context.Context) ([]ProjectTotals, error) {
	return s.store.ByProject(ctx)
}

// Aging buckets the currently open defects by age
func (s *Service) Aging(ctx context.Context, projectID string) (*AgingBuckets, error) {
	return s.store.Aging(ctx, projectID)
}

// LeadTime returns lead time percentiles for defects closed in the period
func (s *Service) LeadTime(ctx context.Context, f Filter) (*LeadTimePercentiles, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.New(apperr.KindValidation, "to cannot precede from")
	}
	return s.store.LeadTime(ctx, f)
}

// ParseTimeParam parses an optional RFC3339 or date-only query value
func ParseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Newf(apperr.KindValidation, "invalid time value %q", raw)
}
