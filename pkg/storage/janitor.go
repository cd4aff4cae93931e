package storage

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/snagtrack/snag/pkg/observability"
)

// SweepableBlobStore is the blob store surface the janitor needs
type SweepableBlobStore interface {
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, locator string) error
}

// AttachmentIndex exposes the metadata side of attachment storage
type AttachmentIndex interface {
	ListAttachmentLocators(ctx context.Context) ([]string, error)
}

// DefectCounter exposes the gauge inputs
type DefectCounter interface {
	CountDefects(ctx context.Context) (total, open int64, err error)
}

// Janitor runs the scheduled maintenance work: deleting blobs whose
// metadata row is gone (attachment deletion is metadata-first, so a
// failed blob delete leaves an orphan) and refreshing defect gauges.
type Janitor struct {
	blobs   SweepableBlobStore
	index   AttachmentIndex
	counter DefectCounter
	metrics *observability.Metrics
	logger  *observability.Logger
	cron    *cron.Cron
}

// NewJanitor creates a janitor. metrics and counter may be nil, in which
// case gauge refresh is skipped.
func NewJanitor(blobs SweepableBlobStore, index AttachmentIndex, counter DefectCounter, metrics *observability.Metrics, logger *observability.Logger) *Janitor {
	return &Janitor{
		blobs:   blobs,
		index:   index,
		counter: counter,
		metrics: metrics,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules the maintenance jobs and starts the cron runner
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if n, err := j.SweepOrphanedBlobs(ctx); err != nil {
			j.logger.WithError(err).Error("orphaned blob sweep failed")
		} else if n > 0 {
			j.logger.WithField("removed", n).Info("orphaned blobs removed")
		}
	}); err != nil {
		return err
	}

	if _, err := j.cron.AddFunc("@every 1m", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := j.RefreshGauges(ctx); err != nil {
			j.logger.WithError(err).Warn("gauge refresh failed")
		}
	}); err != nil {
		return err
	}

	j.cron.Start()
	return nil
}

// Stop stops the cron runner, waiting for running jobs
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// SweepOrphanedBlobs deletes blobs that have no metadata row
func (j *Janitor) SweepOrphanedBlobs(ctx context.Context) (int, error) {
	stored, err := j.blobs.List(ctx)
	if err != nil {
		return 0, err
	}
	known, err := j.index.ListAttachmentLocators(ctx)
	if err != nil {
		return 0, err
	}

	keep := make(map[string]struct{}, len(known))
	for _, locator := range known {
		keep[locator] = struct{}{}
	}

	removed := 0
	for _, locator := range stored {
		if _, ok := keep[locator]; ok {
			continue
		}
		if err := j.blobs.Delete(ctx, locator); err != nil {
			j.logger.WithError(err).WithField("locator", locator).
				Warn("failed to delete orphaned blob")
			continue
		}
		removed++
	}
	return removed, nil
}

// RefreshGauges updates the defect count gauges
func (j *Janitor) RefreshGauges(ctx context.Context) error {
	if j.metrics == nil || j.counter == nil {
		return nil
	}
	total, open, err := j.counter.CountDefects(ctx)
	if err != nil {
		return err
	}
	j.metrics.DefectsTotal.Set(float64(total))
	j.metrics.DefectsOpen.Set(float64(open))
	return nil
}
