package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed slog text record.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Attrs     []Attr
	Raw       string
}

// Attr is a key=value pair that is not one of the built-in fields.
type Attr struct {
	Key   string
	Value string
}

// Parse splits a slog text line into its fields. Lines that are not
// key=value records come back with only Raw and Message set.
func Parse(line string) Entry {
	entry := Entry{Raw: line}
	pairs, ok := splitPairs(line)
	if !ok {
		entry.Message = strings.TrimSpace(line)
		return entry
	}
	for _, p := range pairs {
		switch p.Key {
		case "time":
			if t, err := time.Parse(time.RFC3339Nano, p.Value); err == nil {
				entry.Time = t
			}
		case "level":
			entry.Level = strings.ToUpper(p.Value)
		case "msg":
			entry.Message = p.Value
		case "component":
			entry.Component = p.Value
		default:
			entry.Attrs = append(entry.Attrs, p)
		}
	}
	return entry
}

var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// LevelRank orders level names. Unknown levels rank as INFO.
func LevelRank(level string) int {
	if r, ok := levelRank[strings.ToUpper(strings.TrimSpace(level))]; ok {
		return r
	}
	return levelRank["INFO"]
}

// Filter keeps the entries at or above minLevel whose component matches.
// Empty arguments match everything.
func Filter(entries []Entry, minLevel, component string) []Entry {
	min := -1
	if strings.TrimSpace(minLevel) != "" {
		min = LevelRank(minLevel)
	}
	component = strings.TrimSpace(component)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if min >= 0 && e.Level != "" && LevelRank(e.Level) < min {
			continue
		}
		if component != "" && e.Component != component {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ParseLines parses every line.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, Parse(l))
	}
	return out
}

func splitPairs(line string) ([]Attr, bool) {
	var pairs []Attr
	i := 0
	for i < len(line) {
		for i < len(line) && line[i] == ' ' {
			i++
		}
		if i >= len(line) {
			break
		}
		eq := strings.IndexByte(line[i:], '=')
		if eq <= 0 {
			return nil, false
		}
		key := line[i : i+eq]
		if strings.ContainsAny(key, " \"") {
			return nil, false
		}
		i += eq + 1

		var value string
		if i < len(line) && line[i] == '"' {
			end, unquoted, ok := readQuoted(line, i)
			if !ok {
				return nil, false
			}
			value = unquoted
			i = end
		} else {
			end := strings.IndexByte(line[i:], ' ')
			if end < 0 {
				end = len(line) - i
			}
			value = line[i : i+end]
			i += end
		}
		pairs = append(pairs, Attr{Key: key, Value: value})
	}
	return pairs, len(pairs) > 0
}

func readQuoted(line string, start int) (int, string, bool) {
	var b strings.Builder
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if i+1 < len(line) {
				i++
				switch line[i] {
				case 'n':
					b.WriteByte('\n')
				case 't':
					b.WriteByte('\t')
				default:
					b.WriteByte(line[i])
				}
			}
		case '"':
			return i + 1, b.String(), true
		default:
			b.WriteByte(line[i])
		}
	}
	return 0, "", false
}
