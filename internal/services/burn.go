package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Subtitle burn-in
//
// Captioning degrades gracefully instead of blocking delivery. Burn walks an
// ordered list of named strategies and stops at the first success:
//
//   1. subtitles-filter backend (libass) — only when the installed ffmpeg
//      reports the filter, probed once per process
//   2. drawtext fallback — one time-windowed text overlay per caption
//   3. verbatim copy of the un-captioned video
//
// The terminal fallback means Burn never fails a chapter.
// ---------------------------------------------------------------------------

// BurnStrategy is one way of compositing captions onto a video.
type BurnStrategy interface {
	Name() string
	Burn(ctx context.Context, videoPath, subtitlePath, outputPath string) error
}

type Burner struct {
	strategies []BurnStrategy
}

func NewBurner(ff *FFmpegService) *Burner {
	return &Burner{
		strategies: []BurnStrategy{
			&subtitlesFilterStrategy{ff: ff},
			&drawtextStrategy{ff: ff},
		},
	}
}

// Burn composites the subtitle file onto the video and returns the path the
// pipeline should carry forward. If every backend fails (or the subtitle file
// is empty) the video is copied through un-captioned; if even the copy fails,
// the original video path is returned as-is.
func (b *Burner) Burn(ctx context.Context, videoPath, subtitlePath, outputPath string) string {
	for _, strategy := range b.strategies {
		if err := strategy.Burn(ctx, videoPath, subtitlePath, outputPath); err != nil {
			log.Printf("[Burner] %s backend failed, falling through: %v", strategy.Name(), err)
			continue
		}
		return outputPath
	}

	log.Printf("[Burner] All caption backends failed, delivering un-captioned video")
	if err := copyFile(videoPath, outputPath); err != nil {
		log.Printf("[Burner] WARNING — copy-through failed, using raw clip path: %v", err)
		return videoPath
	}
	return outputPath
}

// ---------------------------------------------------------------------------
// Primary backend: ffmpeg subtitles filter (libass)
// ---------------------------------------------------------------------------

type subtitlesFilterStrategy struct {
	ff *FFmpegService

	// Filter availability is probed at most once per process lifetime.
	probeOnce sync.Once
	available bool
}

func (s *subtitlesFilterStrategy) Name() string { return "subtitles-filter" }

func (s *subtitlesFilterStrategy) Burn(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	s.probeOnce.Do(func() {
		s.available = s.ff.SubtitleFilterAvailable(ctx)
		log.Printf("[Burner] subtitles filter available: %v", s.available)
	})

	if !s.available {
		return fmt.Errorf("subtitles filter not available in installed ffmpeg")
	}

	vf := fmt.Sprintf("subtitles='%s'", escapeFilterPath(subtitlePath))

	args := []string{
		"-i", videoPath,
		"-vf", vf,
		"-c:a", "copy",
		"-y",
		outputPath,
	}

	return s.ff.run(ctx, args...)
}

// escapeFilterPath escapes a file path for the ffmpeg filter mini-DSL.
// Backslashes are normalized to forward slashes; colons and single quotes
// are special to the filter parser.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}

// ---------------------------------------------------------------------------
// Fallback backend: per-caption drawtext overlays
// ---------------------------------------------------------------------------

type drawtextStrategy struct {
	ff *FFmpegService
}

func (s *drawtextStrategy) Name() string { return "drawtext" }

func (s *drawtextStrategy) Burn(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	captions, err := ParseSRTFile(subtitlePath)
	if err != nil {
		return err
	}
	if len(captions) == 0 {
		return fmt.Errorf("no parseable captions in %s", subtitlePath)
	}

	vf := buildDrawtextFilter(captions)

	args := []string{
		"-i", videoPath,
		"-vf", vf,
		"-c:a", "copy",
		"-y",
		outputPath,
	}

	return s.ff.run(ctx, args...)
}

// buildDrawtextFilter chains one time-windowed drawtext filter per caption.
func buildDrawtextFilter(captions []Caption) string {
	filters := make([]string, 0, len(captions))
	for _, c := range captions {
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':enable='between(t,%.3f,%.3f)':fontsize=36:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=h-text_h*3",
			escapeDrawtextText(c.Text), c.Start, c.End,
		))
	}
	return strings.Join(filters, ",")
}

// escapeDrawtextText escapes caption text for the drawtext option DSL.
// Backslash, single quote, colon, and percent are all special there.
func escapeDrawtextText(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "'", "'\\''")
	text = strings.ReplaceAll(text, ":", "\\:")
	text = strings.ReplaceAll(text, "%", "\\%")
	return text
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return out.Close()
}
