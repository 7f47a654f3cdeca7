package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pharmacy-ops/config"
	"pharmacy-ops/internal/util"

	"go.uber.org/zap"
)

// TimeLayout is the timestamp format used in every data file
const TimeLayout = "2006-01-02 15:04:05"

// archiveLayout is appended to archived membership file names
const archiveLayout = "20060102_150405"

// Store persists collections as line-oriented, comma-separated files.
// Current-state collections are rewritten whole; event logs are appended.
type Store struct {
	dir    string
	files  config.StorageConfig
	logger *zap.Logger
}

// NewStore creates the data directory if needed and returns a store over it
func NewStore(files config.StorageConfig, logger *zap.Logger) (*Store, error) {
	if files.DataDir == "" {
		return nil, fmt.Errorf("data directory is not configured")
	}
	if err := os.MkdirAll(files.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{dir: files.DataDir, files: files, logger: logger}, nil
}

// Dir returns the data directory
func (s *Store) Dir() string {
	return s.dir
}

// Path resolves a file name inside the data directory
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Exists reports whether a data file is present
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// rewrite replaces a file with the given lines. The content goes to a
// temporary file first and is renamed over the target, so readers see either
// the old or the new snapshot.
func (s *Store) rewrite(name string, lines []string) error {
	start := time.Now()
	defer func() {
		util.StoreWriteLatency.WithLabelValues(name, "rewrite").Observe(time.Since(start).Seconds())
	}()

	target := s.Path(name)

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := bufio.NewWriter(tmp)
	for _, line := range lines {
		if _, err := w.WriteString(line + "\n"); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// appendLines adds records to the end of a log file in a single write
func (s *Store) appendLines(name string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	start := time.Now()
	defer func() {
		util.StoreWriteLatency.WithLabelValues(name, "append").Observe(time.Since(start).Seconds())
	}()

	f, err := os.OpenFile(s.Path(name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}

	payload := strings.Join(lines, "\n") + "\n"
	if _, err := f.WriteString(payload); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", name, err)
	}
	return f.Close()
}

// readLines returns the non-blank lines of a file. A missing file reads as empty.
func (s *Store) readLines(name string) ([]string, error) {
	f, err := os.Open(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return lines, nil
}

// maxLeadingID returns the largest ID in the first field of any record in the
// file, including records that do not otherwise decode
func (s *Store) maxLeadingID(name string) (int64, error) {
	lines, err := s.readLines(name)
	if err != nil {
		return 0, err
	}

	var highest int64
	for _, line := range lines {
		field, _, _ := strings.Cut(line, ",")
		id, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err == nil && id > highest {
			highest = id
		}
	}
	return highest, nil
}

// skip logs a malformed record and lets the load continue
func (s *Store) skip(file string, lineNo int, line string, reason error) {
	util.MalformedRecordsTotal.WithLabelValues(file).Inc()
	s.logger.Warn("Skipping malformed record",
		zap.String("file", file),
		zap.Int("line", lineNo),
		zap.String("record", line),
		zap.Error(reason))
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}

// FormatTime renders a timestamp in the data file layout
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime reads a timestamp written by FormatTime, in local time
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.Local)
}
