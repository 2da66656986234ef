package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"time"
)

// LogEntry is one line of a category log
type LogEntry struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Message   string                 `json:"msg"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogQuery selects entries from a category log
type LogQuery struct {
	Category LogCategory
	Day      time.Time
	Limit    int    // newest N entries, 0 for all
	Contains string // case-insensitive match on message and field values
}

// LogReader reads the category logs written by MultiLogger
type LogReader struct {
	ml *MultiLogger
}

// NewLogReader creates a reader over the files of ml
func NewLogReader(ml *MultiLogger) *LogReader {
	return &LogReader{ml: ml}
}

// ValidCategory reports whether c names a category log
func ValidCategory(c LogCategory) bool {
	return c == CategorySession || c == CategoryError
}

// Read returns entries matching q, oldest first. A missing file yields no
// entries.
func (lr *LogReader) Read(q LogQuery) ([]LogEntry, error) {
	if q.Day.IsZero() {
		q.Day = time.Now()
	}
	_ = lr.ml.Sync()

	file, err := os.Open(lr.ml.CategoryLogPath(q.Category, q.Day))
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	needle := strings.ToLower(q.Contains)
	entries := []LogEntry{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		entries = append(entries, parseEntry(line, q.Category))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[len(entries)-q.Limit:]
	}
	return entries, nil
}

// parseEntry splits a JSON log line into the fixed keys and the rest
func parseEntry(line string, category LogCategory) LogEntry {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{Level: "info", Message: line, Category: string(category)}
	}

	entry := LogEntry{Category: string(category)}
	for key, value := range raw {
		s, _ := value.(string)
		switch key {
		case "ts":
			entry.Timestamp = s
		case "level":
			entry.Level = s
		case "msg":
			entry.Message = s
		case "category":
			entry.Category = s
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]interface{})
			}
			entry.Fields[key] = value
		}
	}
	return entry
}
