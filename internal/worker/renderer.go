package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"chapter-render-service/internal/models"
	"chapter-render-service/internal/tracker"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Collaborator contracts. The orchestrator only sequences and supervises
// these; their internals (codec flags, SQL, HTTP) live elsewhere.

type ChapterStore interface {
	GetChapter(ctx context.Context, id uuid.UUID) (*models.Chapter, error)
	GetChapterBlocks(ctx context.Context, chapterID uuid.UUID) ([]models.ScriptBlock, error)
	UpdateChapterStatus(ctx context.Context, id uuid.UUID, status models.ChapterStatus) error
	SetChapterRendered(ctx context.Context, id uuid.UUID, videoURL string) error
}

type AssetFetcher interface {
	Fetch(ctx context.Context, url, destination string) error
}

type MediaTool interface {
	AudioDuration(ctx context.Context, audioPath string) (float64, error)
	SynthesizeClip(ctx context.Context, imagePath, audioPath, outputPath string, durationSec float64) error
	Concatenate(ctx context.Context, clipPaths []string, outputPath string) error
}

type CaptionGenerator interface {
	GenerateSRT(ctx context.Context, audioPath, srtPath string) bool
}

type CaptionBurner interface {
	Burn(ctx context.Context, videoPath, subtitlePath, outputPath string) string
}

type Publisher interface {
	Configured() bool
	Probe(ctx context.Context) error
	UploadFile(ctx context.Context, storagePath, localPath, contentType string) error
	GetPublicURL(path string) string
}

// Renderer drives one chapter render end to end: fetch block data, render
// blocks in sequence order, concatenate, publish, and keep the job tracker
// and the chapter's external status up to date.
type Renderer struct {
	store       ChapterStore
	fetcher     AssetFetcher
	media       MediaTool
	captions    CaptionGenerator
	burner      CaptionBurner
	publisher   Publisher
	tracker     *tracker.Tracker
	admission   *Admission
	scratchRoot string
}

func New(
	store ChapterStore,
	fetcher AssetFetcher,
	media MediaTool,
	captions CaptionGenerator,
	burner CaptionBurner,
	publisher Publisher,
	jobs *tracker.Tracker,
	admission *Admission,
	scratchRoot string,
) *Renderer {
	return &Renderer{
		store:       store,
		fetcher:     fetcher,
		media:       media,
		captions:    captions,
		burner:      burner,
		publisher:   publisher,
		tracker:     jobs,
		admission:   admission,
		scratchRoot: scratchRoot,
	}
}

// Render processes one chapter. It is meant to run on its own goroutine;
// every outcome is reported through the tracker and the chapter row, never
// returned. Once admitted, a render runs to completion or failure; the only
// timeout is the slot wait.
func (r *Renderer) Render(ctx context.Context, chapterID uuid.UUID, jobID string) {
	r.update(jobID, models.JobStatusInProgress, "fetching chapter data")

	chapter, err := r.store.GetChapter(ctx, chapterID)
	if err != nil {
		// Chapter unknown: nothing external to flip, only the job fails
		log.Printf("[Render] Job %s: %v", jobID, err)
		r.failJob(jobID, err)
		return
	}

	// Work accepted: reflect it on the chapter before waiting for a slot
	if err := r.store.UpdateChapterStatus(ctx, chapter.ID, models.ChapterStatusRendering); err != nil {
		log.Printf("[Render] Job %s: could not mark chapter rendering: %v", jobID, err)
	}

	chapterDir := filepath.Join(
		r.scratchRoot,
		fmt.Sprintf("project_%s", chapter.ProjectID),
		fmt.Sprintf("chapter_%d", chapter.ChapterNumber),
	)
	scriptsDir := filepath.Join(chapterDir, "temp_scripts")

	// Scratch cleanup runs on every exit path, success or failure
	defer func() {
		if err := os.RemoveAll(scriptsDir); err != nil {
			log.Printf("[Render] Job %s: scratch cleanup failed: %v", jobID, err)
		}
	}()

	blocks, err := r.store.GetChapterBlocks(ctx, chapter.ID)
	if err != nil {
		r.failChapter(ctx, jobID, chapter.ID, fmt.Errorf("failed to fetch script blocks: %w", err))
		return
	}
	if len(blocks) == 0 {
		r.failChapter(ctx, jobID, chapter.ID, fmt.Errorf("chapter %s has no script blocks", chapter.ID))
		return
	}

	// Concatenation order is narrative order; never trust store ordering
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].SequenceNumber < blocks[j].SequenceNumber
	})

	r.update(jobID, models.JobStatusRendering, "waiting for a render slot")

	release, err := r.admission.Acquire(ctx)
	if err != nil {
		r.failChapter(ctx, jobID, chapter.ID, err)
		return
	}
	defer release()

	// Progress counts only blocks that will actually render
	renderable := 0
	for _, block := range blocks {
		if block.AudioURL() != "" && block.ImageURL() != "" {
			renderable++
		}
	}

	var clipPaths []string
	for _, block := range blocks {
		audioURL, imageURL := block.AudioURL(), block.ImageURL()
		if audioURL == "" || imageURL == "" {
			log.Printf("[Render] Job %s: skipping block seq=%d — incomplete assets", jobID, block.SequenceNumber)
			continue
		}

		r.update(jobID, models.JobStatusRendering, fmt.Sprintf("rendering block %d of %d", len(clipPaths)+1, renderable))

		blockDir := filepath.Join(scriptsDir, fmt.Sprintf("block_%d", block.SequenceNumber))
		clipPath, err := r.renderBlock(ctx, blockDir, audioURL, imageURL)
		if err != nil {
			r.failChapter(ctx, jobID, chapter.ID, fmt.Errorf("block seq=%d: %w", block.SequenceNumber, err))
			return
		}

		clipPaths = append(clipPaths, clipPath)
	}

	if len(clipPaths) == 0 {
		r.failChapter(ctx, jobID, chapter.ID, fmt.Errorf("no blocks with complete assets, nothing to render"))
		return
	}

	r.update(jobID, models.JobStatusRendering, "concatenating block videos")

	finalPath := filepath.Join(chapterDir, fmt.Sprintf("chapter_%d.mp4", chapter.ChapterNumber))
	if err := r.media.Concatenate(ctx, clipPaths, finalPath); err != nil {
		r.failChapter(ctx, jobID, chapter.ID, fmt.Errorf("concatenation failed: %w", err))
		return
	}

	r.update(jobID, models.JobStatusUploading, "publishing final video")

	videoURL := r.publish(ctx, chapter, finalPath)

	if err := r.store.SetChapterRendered(ctx, chapter.ID, videoURL); err != nil {
		r.failChapter(ctx, jobID, chapter.ID, fmt.Errorf("failed to record rendered chapter: %w", err))
		return
	}

	completed := models.JobStatusCompleted
	stage := "completed"
	r.tracker.Apply(jobID, tracker.Update{Status: &completed, Stage: &stage, VideoURL: &videoURL})

	log.Printf("[Render] Job %s: chapter %s rendered -> %s", jobID, chapter.ID, videoURL)
}

// renderBlock turns one script block into a finished clip: fetch both assets,
// probe the narration length, synthesize the slide video, then caption it
// best-effort. Returns the path of the clip to concatenate.
func (r *Renderer) renderBlock(ctx context.Context, blockDir, audioURL, imageURL string) (string, error) {
	audioPath := filepath.Join(blockDir, "audio.mp3")
	imagePath := filepath.Join(blockDir, "image.png")
	rawPath := filepath.Join(blockDir, "raw.mp4")
	srtPath := filepath.Join(blockDir, "captions.srt")
	finalPath := filepath.Join(blockDir, "final.mp4")

	// Both assets download concurrently; first error wins
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.fetcher.Fetch(gctx, audioURL, audioPath) })
	g.Go(func() error { return r.fetcher.Fetch(gctx, imageURL, imagePath) })
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("asset fetch failed: %w", err)
	}

	duration, err := r.media.AudioDuration(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("audio duration probe failed: %w", err)
	}

	if err := r.media.SynthesizeClip(ctx, imagePath, audioPath, rawPath, duration); err != nil {
		return "", err
	}

	// Captions are best-effort; without them the raw clip ships as-is
	if !r.captions.GenerateSRT(ctx, audioPath, srtPath) {
		return rawPath, nil
	}

	return r.burner.Burn(ctx, rawPath, srtPath, finalPath), nil
}

// publish uploads the final video and returns its public URL. Missing
// credentials or upload failure keep the local path as the published
// location — a locally-available render is still a successful render.
func (r *Renderer) publish(ctx context.Context, chapter *models.Chapter, finalPath string) string {
	if !r.publisher.Configured() {
		log.Printf("[Render] Storage not configured, keeping local file %s", finalPath)
		return finalPath
	}

	if err := r.publisher.Probe(ctx); err != nil {
		log.Printf("[Render] Storage probe failed, keeping local file: %v", err)
		return finalPath
	}

	storagePath := fmt.Sprintf("project_%s/chapter_%d.mp4", chapter.ProjectID, chapter.ChapterNumber)
	if err := r.publisher.UploadFile(ctx, storagePath, finalPath, "video/mp4"); err != nil {
		log.Printf("[Render] Upload failed, keeping local file: %v", err)
		return finalPath
	}

	// Published — the local copy is no longer needed
	if err := os.Remove(finalPath); err != nil {
		log.Printf("[Render] Could not remove local final file: %v", err)
	}

	return r.publisher.GetPublicURL(storagePath)
}

func (r *Renderer) update(jobID string, status models.JobStatus, stage string) {
	r.tracker.Apply(jobID, tracker.Update{Status: &status, Stage: &stage})
}

// failJob marks only the job failed (used before the chapter is known).
func (r *Renderer) failJob(jobID string, err error) {
	failed := models.JobStatusFailed
	stage := "failed"
	msg := err.Error()
	r.tracker.Apply(jobID, tracker.Update{Status: &failed, Stage: &stage, Error: &msg})
}

// failChapter records the failure on both the external chapter and the job.
// Recording failures are logged, never escalated — there is nothing above
// this to escalate to.
func (r *Renderer) failChapter(ctx context.Context, jobID string, chapterID uuid.UUID, err error) {
	log.Printf("[Render] Job %s failed: %v", jobID, err)

	if updateErr := r.store.UpdateChapterStatus(ctx, chapterID, models.ChapterStatusFailed); updateErr != nil {
		log.Printf("[Render] Job %s: could not mark chapter failed: %v", jobID, updateErr)
	}

	r.failJob(jobID, err)
}
