package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Rendering constants — every block clip is encoded identically so the final
// concatenation can stream-copy without re-encoding.
const (
	videoFPS     = 24
	audioBitrate = "192k"
)

// ---------------------------------------------------------------------------
// FFmpegService
// ---------------------------------------------------------------------------

type FFmpegService struct {
	binary      string
	probeBinary string
}

func NewFFmpegService() *FFmpegService {
	return &FFmpegService{
		binary:      "ffmpeg",
		probeBinary: "ffprobe",
	}
}

// run executes ffmpeg and captures stderr so tool failures surface their
// diagnostics instead of vanishing into the process log.
func (s *FFmpegService) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, s.binary, args...)

	var stderr bytes.Buffer
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tailLines(stderr.String(), 6))
	}
	return nil
}

// SynthesizeClip produces a video that loops a still image for exactly the
// audio's duration at a fixed frame rate, muxed with the narration re-encoded
// to AAC. -shortest trims to the shorter stream.
func (s *FFmpegService) SynthesizeClip(ctx context.Context, imagePath, audioPath, outputPath string, durationSec float64) error {
	log.Printf("[FFmpeg] Synthesizing clip (duration=%.2fs) -> %s", durationSec, filepath.Base(outputPath))

	args := []string{
		"-loop", "1",
		"-i", imagePath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-tune", "stillimage",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-pix_fmt", "yuv420p",
		"-r", fmt.Sprintf("%d", videoFPS),
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-shortest",
		"-y",
		outputPath,
	}

	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("synthesize clip failed: %w", err)
	}
	return nil
}

// Concatenate joins the clips into one file without re-encoding, preserving
// the caller's order exactly. All inputs must share codec parameters, which
// holds because every clip comes out of SynthesizeClip.
func (s *FFmpegService) Concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	// Ordered manifest file for the concat demuxer
	listPath := filepath.Join(filepath.Dir(outputPath), "concat_list.txt")
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}

	for _, path := range clipPaths {
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy", // Copy without re-encoding
		"-y",
		outputPath,
	}

	if err := s.run(ctx, args...); err != nil {
		return fmt.Errorf("concatenate failed: %w", err)
	}
	return nil
}

// AudioDuration returns the duration of an audio file in seconds via ffprobe.
func (s *FFmpegService) AudioDuration(ctx context.Context, audioPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}

	cmd := exec.CommandContext(ctx, s.probeBinary, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return durationSec, nil
}

// SubtitleFilterAvailable probes whether the installed ffmpeg was built with
// the subtitles (libass) filter. Callers cache the answer for the process
// lifetime; the probe itself is stateless.
func (s *FFmpegService) SubtitleFilterAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, s.binary, "-hide_banner", "-filters")
	output, err := cmd.Output()
	if err != nil {
		log.Printf("[FFmpeg] Filter probe failed, assuming subtitles filter unavailable: %v", err)
		return false
	}

	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == "subtitles" {
			return true
		}
	}
	return false
}

// tailLines returns the last n non-empty lines of s, for error diagnostics.
func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
