package tracker

import (
	"sync"
	"testing"
	"time"

	"chapter-render-service/internal/models"
	"github.com/google/uuid"
)

func statusPtr(s models.JobStatus) *models.JobStatus { return &s }
func strPtr(s string) *string                        { return &s }

func TestCreateAndGet(t *testing.T) {
	tr := New(time.Hour)
	chapterID := uuid.New()

	jobID := tr.Create(chapterID)
	if jobID == "" {
		t.Fatal("expected non-empty job id")
	}

	job, ok := tr.Get(jobID)
	if !ok {
		t.Fatal("job not found after create")
	}
	if job.ChapterID != chapterID {
		t.Errorf("chapter id = %s, want %s", job.ChapterID, chapterID)
	}
	if job.Status != models.JobStatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
	if job.Completed {
		t.Error("new job should not be completed")
	}
}

func TestApplyMergesFields(t *testing.T) {
	tr := New(time.Hour)
	jobID := tr.Create(uuid.New())

	before, _ := tr.Get(jobID)

	tr.Apply(jobID, Update{
		Status: statusPtr(models.JobStatusRendering),
		Stage:  strPtr("rendering block 1 of 3"),
	})

	job, _ := tr.Get(jobID)
	if job.Status != models.JobStatusRendering {
		t.Errorf("status = %s, want rendering", job.Status)
	}
	if job.Stage != "rendering block 1 of 3" {
		t.Errorf("stage = %q", job.Stage)
	}
	if job.UpdatedAt.Before(before.UpdatedAt) {
		t.Error("updated_at was not refreshed")
	}

	// A partial update must leave other fields alone
	tr.Apply(jobID, Update{Stage: strPtr("concatenating")})
	job, _ = tr.Get(jobID)
	if job.Status != models.JobStatusRendering {
		t.Errorf("status clobbered by partial update: %s", job.Status)
	}
}

func TestApplyCompletedSetsFlag(t *testing.T) {
	tr := New(time.Hour)
	jobID := tr.Create(uuid.New())

	tr.Apply(jobID, Update{
		Status:   statusPtr(models.JobStatusCompleted),
		VideoURL: strPtr("https://example.com/final.mp4"),
	})

	job, _ := tr.Get(jobID)
	if !job.Completed {
		t.Error("completed flag not set")
	}
	if job.VideoURL == nil || *job.VideoURL != "https://example.com/final.mp4" {
		t.Errorf("video_url = %v", job.VideoURL)
	}
}

func TestApplyUnknownIDIsNoOp(t *testing.T) {
	tr := New(time.Hour)

	// Must not panic or create a record
	tr.Apply("nope", Update{Status: statusPtr(models.JobStatusFailed)})

	if _, ok := tr.Get("nope"); ok {
		t.Error("apply on unknown id created a record")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	tr := New(time.Hour)
	jobID := tr.Create(uuid.New())

	job, _ := tr.Get(jobID)
	job.Stage = "mutated by caller"

	again, _ := tr.Get(jobID)
	if again.Stage == "mutated by caller" {
		t.Error("Get returned a shared reference, not a copy")
	}
}

func TestSweepEvictsExpiredTerminalJobs(t *testing.T) {
	tr := New(10 * time.Millisecond)

	done := tr.Create(uuid.New())
	tr.Apply(done, Update{Status: statusPtr(models.JobStatusFailed), Error: strPtr("boom")})

	running := tr.Create(uuid.New())
	tr.Apply(running, Update{Status: statusPtr(models.JobStatusRendering)})

	time.Sleep(20 * time.Millisecond)
	tr.Sweep()

	if _, ok := tr.Get(done); ok {
		t.Error("expired terminal job was not evicted")
	}
	if _, ok := tr.Get(running); !ok {
		t.Error("in-flight job must never be evicted")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := New(time.Hour)
	jobID := tr.Create(uuid.New())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Apply(jobID, Update{Stage: strPtr("stage")})
		}()
		go func() {
			defer wg.Done()
			tr.Get(jobID)
		}()
	}
	wg.Wait()

	if _, ok := tr.Get(jobID); !ok {
		t.Error("job lost during concurrent access")
	}
}
