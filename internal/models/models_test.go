package models

import (
	"encoding/json"
	"testing"
)

func TestJSONBMarshal(t *testing.T) {
	j := JSONB{
		"audio_url": "https://example.com/audio.mp3",
		"image_url": "https://example.com/image.png",
	}

	data, err := j.Value()
	if err != nil {
		t.Fatalf("failed to marshal JSONB: %v", err)
	}

	if data == nil {
		t.Fatal("expected non-nil data")
	}

	// Verify it's valid JSON
	var result map[string]interface{}
	if err := json.Unmarshal(data.([]byte), &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["audio_url"] != "https://example.com/audio.mp3" {
		t.Errorf("expected audio_url to round-trip, got %v", result["audio_url"])
	}
}

func TestJSONBScan(t *testing.T) {
	jsonData := []byte(`{"audio_url": "a.mp3", "duration": 10}`)

	var j JSONB
	if err := j.Scan(jsonData); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}

	if j["audio_url"] != "a.mp3" {
		t.Errorf("expected audio_url=a.mp3, got %v", j["audio_url"])
	}

	if j["duration"].(float64) != 10 {
		t.Errorf("expected duration=10, got %v", j["duration"])
	}
}

func TestScriptBlockAssetURLs(t *testing.T) {
	block := ScriptBlock{
		Assets: JSONB{
			"audio_url": "https://example.com/a.mp3",
			"image_url": "https://example.com/i.png",
		},
	}

	if got := block.AudioURL(); got != "https://example.com/a.mp3" {
		t.Errorf("AudioURL() = %q", got)
	}
	if got := block.ImageURL(); got != "https://example.com/i.png" {
		t.Errorf("ImageURL() = %q", got)
	}

	// Missing keys and nil assets must read as empty, not panic
	empty := ScriptBlock{Assets: JSONB{"audio_url": 42}}
	if got := empty.AudioURL(); got != "" {
		t.Errorf("non-string audio_url should read as empty, got %q", got)
	}

	var nilAssets ScriptBlock
	if got := nilAssets.ImageURL(); got != "" {
		t.Errorf("nil assets should read as empty, got %q", got)
	}
}

func TestChapterStatus(t *testing.T) {
	statuses := []ChapterStatus{
		ChapterStatusDraft,
		ChapterStatusScripted,
		ChapterStatusRendering,
		ChapterStatusRendered,
		ChapterStatusFailed,
	}

	for _, status := range statuses {
		if status == "" {
			t.Errorf("empty status found")
		}
	}
}

func TestJobStatusTerminal(t *testing.T) {
	cases := map[JobStatus]bool{
		JobStatusQueued:     false,
		JobStatusInProgress: false,
		JobStatusRendering:  false,
		JobStatusUploading:  false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
	}

	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
