package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// SRT subtitle serialization
//
// Captions are written as standard numbered SRT blocks:
//
//   1
//   00:00:01,500 --> 00:00:04,250
//   Some caption text
//
// Timestamps are HH:MM:SS,mmm with truncating math — no rounding — so a
// formatted time never runs ahead of the spoken audio.
// ---------------------------------------------------------------------------

// Caption is one timed subtitle entry, times in seconds.
type Caption struct {
	Start float64
	End   float64
	Text  string
}

// FormatSRTTime converts seconds to the SRT HH:MM:SS,mmm form.
func FormatSRTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	totalMs := int(seconds * 1000)
	hours := totalMs / 3600000
	minutes := (totalMs % 3600000) / 60000
	secs := (totalMs % 60000) / 1000
	millis := totalMs % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseSRTTime converts an SRT HH:MM:SS,mmm timestamp back to float seconds.
func ParseSRTTime(s string) (float64, error) {
	s = strings.TrimSpace(s)

	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid SRT timestamp %q", s)
	}

	hms := strings.Split(parts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid SRT timestamp %q", s)
	}

	hours, err1 := strconv.Atoi(hms[0])
	minutes, err2 := strconv.Atoi(hms[1])
	secs, err3 := strconv.Atoi(hms[2])
	millis, err4 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return 0, fmt.Errorf("invalid SRT timestamp %q", s)
	}

	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}

// WriteSRT serializes captions into a numbered SRT file.
func WriteSRT(captions []Caption, outputPath string) error {
	if len(captions) == 0 {
		return fmt.Errorf("no captions to write")
	}

	var sb strings.Builder
	for i, c := range captions {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", FormatSRTTime(c.Start), FormatSRTTime(c.End)))
		sb.WriteString(strings.TrimSpace(c.Text))
		sb.WriteString("\n\n")
	}

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write SRT file: %w", err)
	}
	return nil
}

// ParseSRTFile reads an SRT file back into captions. Blocks that don't parse
// are skipped rather than failing the whole file — the burner treats captions
// as best-effort all the way down.
func ParseSRTFile(path string) ([]Caption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SRT file: %w", err)
	}

	var captions []Caption

	normalized := strings.ReplaceAll(string(data), "\r\n", "\n")
	for _, block := range strings.Split(normalized, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		// Line 0 is the block index, line 1 the timing row; the index line is
		// sometimes missing in hand-edited files, so find the timing row.
		timingIdx := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx == -1 || timingIdx == len(lines)-1 {
			continue
		}

		timeParts := strings.SplitN(lines[timingIdx], "-->", 2)
		start, err1 := ParseSRTTime(timeParts[0])
		end, err2 := ParseSRTTime(timeParts[1])
		if err1 != nil || err2 != nil {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[timingIdx+1:], "\n"))
		if text == "" {
			continue
		}

		captions = append(captions, Caption{Start: start, End: end, Text: text})
	}

	return captions, nil
}
