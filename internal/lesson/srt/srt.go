package srt

import (
	"fmt"
	"strconv"
	"strings"
)

// Entry is one subtitle block. Index is assigned by Generate, 1-based and
// sequential regardless of the source line ids.
type Entry struct {
	Index   int
	StartMs int
	EndMs   int
	Text    string
}

// FormatTimestamp renders milliseconds as the SRT HH:MM:SS,mmm form.
func FormatTimestamp(ms int) string {
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// Generate renders entries as SRT text, one numbered block per entry.
func Generate(entries []Entry) string {
	var b strings.Builder
	for i, entry := range entries {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("\n")
		b.WriteString(FormatTimestamp(entry.StartMs))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(entry.EndMs))
		b.WriteString("\n")
		b.WriteString(entry.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Parse reads SRT text back into entries. Tolerant of periods in place of
// the millisecond comma and of missing index lines.
func Parse(content string) ([]Entry, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(content), "\n\n")

	var entries []Entry
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 || lines[0] == "" {
			continue
		}

		idx := 0
		index := len(entries) + 1
		if n, err := strconv.Atoi(strings.TrimSpace(lines[idx])); err == nil {
			index = n
			idx++
		}
		if idx >= len(lines) || !strings.Contains(lines[idx], "-->") {
			continue
		}

		parts := strings.SplitN(lines[idx], "-->", 2)
		startMs, err := ParseTimestamp(parts[0])
		if err != nil {
			return nil, err
		}
		endMs, err := ParseTimestamp(parts[1])
		if err != nil {
			return nil, err
		}
		idx++

		entries = append(entries, Entry{
			Index:   index,
			StartMs: startMs,
			EndMs:   endMs,
			Text:    strings.Join(lines[idx:], "\n"),
		})
	}
	return entries, nil
}

// ParseTimestamp converts an SRT timestamp to milliseconds.
func ParseTimestamp(value string) (int, error) {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return hours*3600000 + minutes*60000 + seconds*1000 + millis, nil
}
