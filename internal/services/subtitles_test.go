package services

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFormatSRTTime(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.042, "00:01:01,042"},
		{3661.999, "01:01:01,999"},
		{-3, "00:00:00,000"},
	}

	for _, tc := range cases {
		if got := FormatSRTTime(tc.seconds); got != tc.want {
			t.Errorf("FormatSRTTime(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestSRTTimeRoundTrip(t *testing.T) {
	values := []float64{0, 0.001, 0.999, 1.5, 59.999, 60.0, 61.042, 600.25, 3599.5, 3661.999, 7322.128}

	for _, sec := range values {
		formatted := FormatSRTTime(sec)
		parsed, err := ParseSRTTime(formatted)
		if err != nil {
			t.Fatalf("ParseSRTTime(%q) failed: %v", formatted, err)
		}
		if math.Abs(parsed-sec) > 0.001 {
			t.Errorf("round trip %v -> %q -> %v drifted more than 1ms", sec, formatted, parsed)
		}
	}
}

func TestParseSRTTimeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "nope", "00:00:01", "00:00,042", "aa:bb:cc,ddd"} {
		if _, err := ParseSRTTime(s); err == nil {
			t.Errorf("ParseSRTTime(%q) should fail", s)
		}
	}
}

func TestWriteAndParseSRT(t *testing.T) {
	captions := []Caption{
		{Start: 0.5, End: 2.25, Text: "First line"},
		{Start: 2.25, End: 5.0, Text: "Second line\nwith a wrap"},
		{Start: 5.75, End: 9.128, Text: "Third"},
	}

	path := filepath.Join(t.TempDir(), "captions.srt")
	if err := WriteSRT(captions, path); err != nil {
		t.Fatalf("WriteSRT failed: %v", err)
	}

	parsed, err := ParseSRTFile(path)
	if err != nil {
		t.Fatalf("ParseSRTFile failed: %v", err)
	}

	if len(parsed) != len(captions) {
		t.Fatalf("parsed %d captions, want %d", len(parsed), len(captions))
	}

	for i, c := range captions {
		if math.Abs(parsed[i].Start-c.Start) > 0.001 || math.Abs(parsed[i].End-c.End) > 0.001 {
			t.Errorf("caption %d timing drifted: got (%v, %v), want (%v, %v)",
				i, parsed[i].Start, parsed[i].End, c.Start, c.End)
		}
	}

	if parsed[1].Text != "Second line\nwith a wrap" {
		t.Errorf("multi-line text mangled: %q", parsed[1].Text)
	}
}

func TestWriteSRTRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.srt")
	if err := WriteSRT(nil, path); err == nil {
		t.Error("WriteSRT with no captions should fail")
	}
}

func TestParseSRTFileSkipsMalformedBlocks(t *testing.T) {
	content := "1\n00:00:00,000 --> 00:00:02,000\nGood one\n\n" +
		"not a block at all\n\n" +
		"3\nbroken --> timestamps\nBad one\n\n" +
		"4\n00:00:05,000 --> 00:00:06,500\nAnother good one\n"

	path := filepath.Join(t.TempDir(), "mixed.srt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	captions, err := ParseSRTFile(path)
	if err != nil {
		t.Fatalf("ParseSRTFile failed: %v", err)
	}

	if len(captions) != 2 {
		t.Fatalf("parsed %d captions, want 2 (malformed blocks skipped)", len(captions))
	}
	if captions[0].Text != "Good one" || captions[1].Text != "Another good one" {
		t.Errorf("unexpected captions: %+v", captions)
	}
}

func TestParseSRTFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.srt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	captions, err := ParseSRTFile(path)
	if err != nil {
		t.Fatalf("ParseSRTFile on empty file should not error: %v", err)
	}
	if len(captions) != 0 {
		t.Errorf("expected no captions, got %d", len(captions))
	}
}
