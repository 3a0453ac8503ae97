package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type item struct {
	ID      string `json:"id" yaml:"id"`
	Entries int    `json:"entries" yaml:"entries"`
}

func TestOutputFormats(t *testing.T) {
	v := []item{{ID: "a", Entries: 2}, {ID: "b", Entries: 0}}

	var buf bytes.Buffer
	if err := Output(v, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"id": "a"`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	if err := Output(v, OutputOptions{Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "id: a") {
		t.Errorf("yaml output = %q", buf.String())
	}

	buf.Reset()
	if err := Output("plain", OutputOptions{Format: FormatRaw, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "plain\n" {
		t.Errorf("raw output = %q", buf.String())
	}

	buf.Reset()
	if err := Output(v, OutputOptions{Format: FormatRaw, Query: `.[].id`, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a\nb\n" {
		t.Errorf("raw list output = %q", buf.String())
	}

	if err := Output(v, OutputOptions{Format: "table", Writer: &buf}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestQuery(t *testing.T) {
	v := []item{{ID: "a", Entries: 2}, {ID: "b", Entries: 0}}

	got, err := Query(v, `map(select(.entries > 0)) | .[0].id`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a" {
		t.Errorf("Query = %v; want a", got)
	}

	got, err = Query(v, `.[].entries`)
	if err != nil {
		t.Fatal(err)
	}
	if list, ok := got.([]any); !ok || len(list) != 2 || list[0] != 2 {
		t.Errorf("Query = %#v", got)
	}

	if _, err := Query(v, `.[`); err == nil {
		t.Error("expected parse error")
	}
	if _, err := Query(v, `.[0].id | error("boom")`); err == nil {
		t.Error("expected runtime error")
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"", "yaml", "JSON", "raw"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error")
	}
}

func TestRendering(t *testing.T) {
	s := NewStyles(DefaultTheme)
	if got := s.ModeBadge("speaking"); !strings.Contains(got, "SPEAKING") {
		t.Errorf("ModeBadge = %q", got)
	}
	line := s.TranscriptLine("assistant", "Start with values.", time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC), 0)
	if !strings.Contains(line, "15:04:05") || !strings.Contains(line, "Start with values.") {
		t.Errorf("TranscriptLine = %q", line)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30.0s"},
	}
	for _, tc := range tests {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q; want %q", tc.d, got, tc.want)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("AIzaSyExample1234"); got != "AIza*********1234" {
		t.Errorf("MaskAPIKey = %q", got)
	}
	if got := MaskAPIKey("short"); got != "*****" {
		t.Errorf("MaskAPIKey = %q", got)
	}
}
