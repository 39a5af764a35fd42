package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// WhisperService turns narration audio into timed captions via OpenAI Whisper.
// Subtitle generation is strictly best-effort: every failure is logged and
// reported as ok=false, never propagated, so a caption outage can't sink a
// chapter render.
type WhisperService struct {
	client   *openai.Client
	language string
}

// NewWhisperService builds the transcription service. An empty API key yields
// a permanently disabled service (GenerateSRT always reports false).
func NewWhisperService(apiKey, language string) *WhisperService {
	if language == "" {
		language = "en"
	}

	var client *openai.Client
	if apiKey != "" {
		client = openai.NewClient(apiKey)
	}

	return &WhisperService{
		client:   client,
		language: language,
	}
}

// Transcribe sends the audio file to Whisper and returns segment-level captions.
func (s *WhisperService) Transcribe(ctx context.Context, audioPath string) ([]Caption, error) {
	if s.client == nil {
		return nil, fmt.Errorf("transcription disabled: no API key configured")
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: s.language,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper transcription failed: %w", err)
	}

	if len(resp.Segments) == 0 {
		return nil, fmt.Errorf("whisper returned no segments (text: %q)", truncateString(resp.Text, 80))
	}

	captions := make([]Caption, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		captions = append(captions, Caption{
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}

	log.Printf("[Whisper] Transcribed %d segments (text: %q)",
		len(captions), truncateString(resp.Text, 80))

	return captions, nil
}

// GenerateSRT transcribes the audio and serializes the captions to srtPath.
// Returns false on any failure — callers just render without captions.
func (s *WhisperService) GenerateSRT(ctx context.Context, audioPath, srtPath string) bool {
	captions, err := s.Transcribe(ctx, audioPath)
	if err != nil {
		log.Printf("[Whisper] WARNING — subtitle generation failed, rendering without captions: %v", err)
		return false
	}

	if err := WriteSRT(captions, srtPath); err != nil {
		log.Printf("[Whisper] WARNING — could not write subtitle file: %v", err)
		return false
	}

	return true
}

// truncateString truncates a string to maxLen and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
