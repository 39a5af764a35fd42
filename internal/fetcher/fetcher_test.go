package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestDriveFileID(t *testing.T) {
	cases := []struct {
		url    string
		wantID string
		wantOK bool
	}{
		{"https://drive.google.com/file/d/1AbC-xyz_9/view?usp=sharing", "1AbC-xyz_9", true},
		{"https://drive.google.com/open?id=1AbC-xyz_9", "1AbC-xyz_9", true},
		{"https://drive.google.com/uc?export=download&id=zz42", "zz42", true},
		{"https://example.com/file/d/notdrive/view", "", false},
		{"https://example.com/audio.mp3", "", false},
	}

	for _, tc := range cases {
		id, ok := driveFileID(tc.url)
		if ok != tc.wantOK || id != tc.wantID {
			t.Errorf("driveFileID(%q) = (%q, %v), want (%q, %v)", tc.url, id, ok, tc.wantID, tc.wantOK)
		}
	}
}

func TestFetchDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("fake audio bytes"))
	}))
	defer srv.Close()

	// Destination in a not-yet-existing subdirectory — Fetch must create it
	dest := filepath.Join(t.TempDir(), "block_1", "audio.mp3")

	f := New()
	if err := f.Fetch(context.Background(), srv.URL+"/audio.mp3", dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("destination not written: %v", err)
	}
	if string(data) != "fake audio bytes" {
		t.Errorf("unexpected contents: %q", data)
	}
}

func TestFetchDirectNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "audio.mp3")

	f := New()
	err := f.Fetch(context.Background(), srv.URL+"/missing.mp3", dest)
	if err == nil {
		t.Fatal("expected error on 404")
	}

	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed fetch must not leave a file behind")
	}
}

func TestFetchDriveConsentToken(t *testing.T) {
	var confirmedHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "bigfile1" {
			http.Error(w, "unknown file", http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("confirm") == "t0k3n" {
			confirmedHits++
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("big binary payload"))
			return
		}
		// First request: HTML warning page carrying the token
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><a href="/uc?export=download&confirm=t0k3n&id=bigfile1">Download anyway</a></html>`)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "video.mp4")

	f := New()
	f.driveBase = srv.URL

	url := "https://drive.google.com/file/d/bigfile1/view?usp=sharing"
	if err := f.Fetch(context.Background(), url, dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if confirmedHits != 1 {
		t.Errorf("confirmed download hit %d times, want 1", confirmedHits)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "big binary payload" {
		t.Errorf("unexpected contents: %q", data)
	}
}

func TestFetchDriveSmallFileSkipsConfirmation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("confirm") != "" {
			t.Error("small file must not trigger a confirmed retry")
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "image.png")

	f := New()
	f.driveBase = srv.URL

	if err := f.Fetch(context.Background(), "https://drive.google.com/open?id=small1", dest); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "png bytes" {
		t.Errorf("unexpected contents: %q", data)
	}
}
