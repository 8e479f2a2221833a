package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "client.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("level=INFO msg=\"line %d\"", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{name: "read all (0)", maxLines: 0, expected: expectedAll},
		{name: "read all (negative)", maxLines: -1, expected: expectedAll},
		{name: "read partial (5)", maxLines: 5, expected: expectedAll[5:]},
		{name: "read exactly all (10)", maxLines: 10, expected: expectedAll},
		{name: "read more than exists (20)", maxLines: 20, expected: expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Read() = %v, want nil", got)
	}
}

func TestParse(t *testing.T) {
	line := `time=2026-10-19T10:00:00.000Z level=WARN msg="api request failed" component=api method=GET path=/posts err="dial tcp: refused"`
	e := Parse(line)

	want := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	if !e.Time.Equal(want) {
		t.Fatalf("Time = %v, want %v", e.Time, want)
	}
	if e.Level != "WARN" {
		t.Fatalf("Level = %q", e.Level)
	}
	if e.Message != "api request failed" {
		t.Fatalf("Message = %q", e.Message)
	}
	if e.Component != "api" {
		t.Fatalf("Component = %q", e.Component)
	}
	wantAttrs := []Attr{
		{Key: "method", Value: "GET"},
		{Key: "path", Value: "/posts"},
		{Key: "err", Value: "dial tcp: refused"},
	}
	if !reflect.DeepEqual(e.Attrs, wantAttrs) {
		t.Fatalf("Attrs = %v, want %v", e.Attrs, wantAttrs)
	}
	if e.Raw != line {
		t.Fatalf("Raw not preserved")
	}
}

func TestParse_EscapedQuotes(t *testing.T) {
	e := Parse(`level=INFO msg="said \"hi\"\nbye"`)
	if e.Message != "said \"hi\"\nbye" {
		t.Fatalf("Message = %q", e.Message)
	}
}

func TestParse_PlainLine(t *testing.T) {
	tests := []string{
		"panic: runtime error",
		"goroutine 1 [running]:",
		`msg="unterminated`,
	}
	for _, line := range tests {
		e := Parse(line)
		if e.Level != "" || e.Component != "" {
			t.Errorf("Parse(%q) = %+v, want plain entry", line, e)
		}
		if e.Message != strings.TrimSpace(line) {
			t.Errorf("Parse(%q).Message = %q", line, e.Message)
		}
	}
}

func TestFilter(t *testing.T) {
	entries := ParseLines([]string{
		"level=DEBUG msg=a component=cache",
		"level=INFO msg=b component=api",
		"",
		"level=WARN msg=c component=api",
		"level=ERROR msg=d component=ui",
		"stray output",
	})
	if len(entries) != 5 {
		t.Fatalf("ParseLines returned %d entries, want 5", len(entries))
	}

	messages := func(es []Entry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.Message)
		}
		return out
	}

	tests := []struct {
		name      string
		level     string
		component string
		want      []string
	}{
		{name: "no filter", want: []string{"a", "b", "c", "d", "stray output"}},
		{name: "warn and above", level: "warn", want: []string{"c", "d", "stray output"}},
		{name: "api only", component: "api", want: []string{"b", "c"}},
		{name: "api errors", level: "ERROR", component: "api", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := messages(Filter(entries, tt.level, tt.component))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevelRank(t *testing.T) {
	if LevelRank("debug") >= LevelRank("INFO") {
		t.Fatal("debug should rank below info")
	}
	if LevelRank("error") <= LevelRank("warn") {
		t.Fatal("error should rank above warn")
	}
	if LevelRank("trace") != LevelRank("info") {
		t.Fatal("unknown level should rank as info")
	}
}
