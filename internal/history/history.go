// Package history keeps a TSV log of past resolutions.
// Writes are atomic (temp+rename) so a crash never leaves a torn file.
// The log is an audit trail only; resolutions are never served from it.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hypecast/internal/config"
	"hypecast/internal/media"
)

// TSV columns: id, input, path, url, time
const numColumns = 5

// mu serialises read-modify-write cycles within the process.
var mu sync.Mutex

// Load reads the history file and returns all entries, oldest first.
func Load() ([]media.Resolution, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the log at path. A missing file yields no entries.
func LoadFile(path string) ([]media.Resolution, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()

	var entries []media.Resolution
	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			continue // Skip malformed lines
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	return entries, nil
}

// Append adds entries to the history file.
func Append(entries ...media.Resolution) error {
	path, err := config.HistoryPath()
	if err != nil {
		return err
	}
	return AppendFile(path, entries...)
}

// AppendFile adds entries to the log at path, creating it if needed.
func AppendFile(path string, entries ...media.Resolution) error {
	if len(entries) == 0 {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()

	existing, err := LoadFile(path)
	if err != nil {
		return err
	}
	return writeAll(path, append(existing, entries...))
}

// Clear empties the history file.
func Clear() error {
	path, err := config.HistoryPath()
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	return writeAll(path, nil)
}

// writeAll replaces the file at path with entries via temp file + rename.
func writeAll(path string, entries []media.Resolution) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "history-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	writer := bufio.NewWriter(tmpFile)
	for _, e := range entries {
		if _, err := writer.WriteString(formatLine(e) + "\n"); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("writing history: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flushing history: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming history file: %w", err)
	}

	return nil
}

// FormatForDisplay renders one line per entry, newest first.
func FormatForDisplay(entries []media.Resolution) []string {
	items := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		target := e.URL
		if !e.Resolved() {
			target = "(unresolved)"
		}
		items = append(items, fmt.Sprintf("%s  %-8s %-8s %s",
			e.At.Local().Format("2006-01-02 15:04"), e.ID, e.Path, target))
	}
	return items
}

// parseLine parses a TSV line into a Resolution.
func parseLine(line string) (media.Resolution, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < numColumns {
		return media.Resolution{}, fmt.Errorf("expected %d columns, got %d", numColumns, len(fields))
	}

	at, err := time.Parse(time.RFC3339, fields[4])
	if err != nil {
		return media.Resolution{}, fmt.Errorf("parsing time: %w", err)
	}

	return media.Resolution{
		ID:    fields[0],
		Input: fields[1],
		Path:  media.ParsePath(fields[2]),
		URL:   fields[3],
		At:    at,
	}, nil
}

// formatLine converts a Resolution to a TSV line. Tabs and newlines in
// free-form fields are flattened to spaces.
func formatLine(e media.Resolution) string {
	return strings.Join([]string{
		e.ID,
		clean(e.Input),
		e.Path.String(),
		clean(e.URL),
		e.At.UTC().Format(time.RFC3339),
	}, "\t")
}

func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
}
