package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"chapter-render-service/internal/models"
	"github.com/google/uuid"
)

// Tracker is the process-wide registry of render jobs, keyed by job id.
// A single mutex guards the whole map; jobs are cheap and renders are
// subprocess-bound, so coarse locking is plenty. Each job has exactly one
// writer (the orchestrator running it), so no per-field locking is needed.
type Tracker struct {
	mu        sync.Mutex
	jobs      map[string]*models.RenderJob
	retention time.Duration
}

// Update carries the fields to merge into a job. Nil fields are left untouched.
type Update struct {
	Status   *models.JobStatus
	Stage    *string
	VideoURL *string
	Error    *string
}

func New(retention time.Duration) *Tracker {
	return &Tracker{
		jobs:      make(map[string]*models.RenderJob),
		retention: retention,
	}
}

// Create registers a new queued job for a chapter and returns its id.
// Expired terminal jobs are swept opportunistically on every create.
func (t *Tracker) Create(chapterID uuid.UUID) string {
	now := time.Now()
	job := &models.RenderJob{
		JobID:     uuid.New().String(),
		ChapterID: chapterID,
		Status:    models.JobStatusQueued,
		Stage:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked(now)
	t.jobs[job.JobID] = job

	return job.JobID
}

// Apply merges the update into the job and refreshes updated_at.
// Unknown ids are a no-op: the orchestrator may outlive a swept job record.
func (t *Tracker) Apply(jobID string, u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return
	}

	if u.Status != nil {
		job.Status = *u.Status
		job.Completed = *u.Status == models.JobStatusCompleted
	}
	if u.Stage != nil {
		job.Stage = *u.Stage
	}
	if u.VideoURL != nil {
		job.VideoURL = u.VideoURL
	}
	if u.Error != nil {
		job.Error = u.Error
	}
	job.UpdatedAt = time.Now()
}

// Get returns a copy of the job so callers never observe a record mid-mutation.
func (t *Tracker) Get(jobID string) (models.RenderJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return models.RenderJob{}, false
	}
	return *job, true
}

// Len returns the number of tracked jobs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

// Sweep drops terminal jobs older than the retention window.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked(time.Now())
}

func (t *Tracker) sweepLocked(now time.Time) {
	if t.retention <= 0 {
		return
	}
	cutoff := now.Add(-t.retention)
	removed := 0
	for id, job := range t.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			delete(t.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[Tracker] Swept %d expired jobs", removed)
	}
}

// Janitor sweeps expired jobs on a fixed interval until the context ends.
// Run it on its own goroutine from main.
func (t *Tracker) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}
