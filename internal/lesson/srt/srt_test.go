package srt

import (
	"strings"
	"testing"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		ms   int
		want string
	}{
		{"zero", 0, "00:00:00,000"},
		{"mixed units", 3661500, "01:01:01,500"},
		{"millis only", 42, "00:00:00,042"},
		{"exact minute", 60000, "00:01:00,000"},
		{"over an hour", 7322001, "02:02:02,001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimestamp(tt.ms); got != tt.want {
				t.Errorf("FormatTimestamp(%d) = %q, want %q", tt.ms, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{"comma form", "01:01:01,500", 3661500, false},
		{"period form", "00:00:01.250", 1250, false},
		{"padded", " 00:00:00,000 ", 0, false},
		{"missing millis", "00:00:01", 0, true},
		{"garbage", "abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTimestamp(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	entries := []Entry{
		{StartMs: 300, EndMs: 2800, Text: "Hello there."},
		{StartMs: 3300, EndMs: 5100, Text: "Good morning."},
	}

	got := Generate(entries)
	want := "1\n00:00:00,300 --> 00:00:02,800\nHello there.\n\n" +
		"2\n00:00:03,300 --> 00:00:05,100\nGood morning.\n"
	if got != want {
		t.Errorf("Generate() = %q, want %q", got, want)
	}
}

func TestGenerateEmpty(t *testing.T) {
	if got := Generate(nil); got != "" {
		t.Errorf("Generate(nil) = %q, want empty", got)
	}
}

func TestGenerateIndexesSequential(t *testing.T) {
	entries := []Entry{
		{Index: 7, StartMs: 0, EndMs: 100, Text: "a"},
		{Index: 2, StartMs: 200, EndMs: 300, Text: "b"},
		{Index: 9, StartMs: 400, EndMs: 500, Text: "c"},
	}
	got := Generate(entries)
	for i, prefix := range []string{"1\n", "2\n", "3\n"} {
		blocks := strings.Split(got, "\n\n")
		if !strings.HasPrefix(blocks[i], strings.TrimSuffix(prefix, "\n")+"\n") {
			t.Errorf("block %d does not start with %q:\n%s", i, prefix, blocks[i])
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	entries := []Entry{
		{Index: 1, StartMs: 300, EndMs: 2800, Text: "Hello there."},
		{Index: 2, StartMs: 3300, EndMs: 5100, Text: "Good morning.\nSecond line."},
	}

	parsed, err := Parse(Generate(entries))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(parsed) != len(entries) {
		t.Fatalf("Parse() returned %d entries, want %d", len(parsed), len(entries))
	}
	for i, entry := range entries {
		if parsed[i] != entry {
			t.Errorf("entry %d = %+v, want %+v", i, parsed[i], entry)
		}
	}
}

func TestParseLenient(t *testing.T) {
	content := "00:00:00.300 --> 00:00:02.800\r\nNo index, CRLF, periods.\r\n\r\n" +
		"5\r\n00:00:03,300 --> 00:00:05,100\r\nNumbered block.\r\n"

	parsed, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("Parse() returned %d entries, want 2", len(parsed))
	}
	if parsed[0].StartMs != 300 || parsed[0].EndMs != 2800 {
		t.Errorf("entry 0 window = %d-%d, want 300-2800", parsed[0].StartMs, parsed[0].EndMs)
	}
	if parsed[0].Index != 1 {
		t.Errorf("entry 0 index = %d, want 1", parsed[0].Index)
	}
	if parsed[1].Index != 5 {
		t.Errorf("entry 1 index = %d, want 5", parsed[1].Index)
	}
}
