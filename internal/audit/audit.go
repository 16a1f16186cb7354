// Package audit keeps an append-only trail of session events.
//
// Events are written as JSON lines to one file per day
// (audit-2006-01-02.log) so the trail can be rotated or shipped with
// ordinary tooling. Tokens are never recorded, only their fingerprints.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened to the session.
type EventType string

const (
	EventLogin   EventType = "session.login"
	EventLogout  EventType = "session.logout"
	EventRestore EventType = "session.restore"
)

// Results recorded on events.
const (
	ResultSuccess   = "success"
	ResultDenied    = "denied"
	ResultPurged    = "purged"
	ResultCancelled = "cancelled"
	ResultError     = "error"
)

const dateLayout = "2006-01-02"

// Event is one audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`

	// Actor is the GitHub handle, when known.
	Actor        string `json:"actor,omitempty"`
	Organization string `json:"organization,omitempty"`
	Role         string `json:"role,omitempty"`

	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
	Code   string `json:"code,omitempty"`

	TokenFingerprint string `json:"token_fp,omitempty"`
}

// Logger appends events to daily files under a directory.
type Logger struct {
	mu sync.Mutex

	dir         string
	currentFile *os.File
	currentDate string

	now func() time.Time
}

// NewLogger creates dir if needed and opens today's file.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	l := &Logger{dir: dir, now: time.Now}
	if err := l.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return l, nil
}

// Dir returns the directory the logger writes to.
func (l *Logger) Dir() string {
	return l.dir
}

// Log stamps and appends event. The write is synced before Log returns.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	if err := l.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate audit file: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := l.currentFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := l.currentFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit file: %w", err)
	}
	return nil
}

// Filter selects events in Query. Zero fields match everything.
type Filter struct {
	Since  time.Time
	Until  time.Time
	Type   EventType
	Actor  string
	Result string

	// Limit keeps only the most recent matches.
	Limit int
}

// Matches checks if an event matches the filter
func (f Filter) Matches(event *Event) bool {
	if !f.Since.IsZero() && event.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && event.Timestamp.After(f.Until) {
		return false
	}
	if f.Type != "" && event.Type != f.Type {
		return false
	}
	if f.Actor != "" && !strings.EqualFold(event.Actor, f.Actor) {
		return false
	}
	if f.Result != "" && event.Result != f.Result {
		return false
	}
	return true
}

// Query returns matching events, oldest first.
func (l *Logger) Query(filter Filter) ([]*Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	files, err := l.logFiles(filter.Since, filter.Until)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit files: %w", err)
	}

	events := []*Event{}
	for _, file := range files {
		fileEvents, err := readLogFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read audit file %s: %w", file, err)
		}
		for _, event := range fileEvents {
			if filter.Matches(event) {
				events = append(events, event)
			}
		}
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

// Close closes the current file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentFile == nil {
		return nil
	}
	err := l.currentFile.Close()
	l.currentFile = nil
	return err
}

func (l *Logger) rotateIfNeeded() error {
	date := l.now().UTC().Format(dateLayout)
	if l.currentDate == date && l.currentFile != nil {
		return nil
	}

	if l.currentFile != nil {
		if err := l.currentFile.Close(); err != nil {
			return err
		}
		l.currentFile = nil
	}

	name := filepath.Join(l.dir, "audit-"+date+".log")
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	l.currentFile = file
	l.currentDate = date
	return nil
}

// logFiles lists daily files between start and end, oldest first.
func (l *Logger) logFiles(start, end time.Time) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(l.dir, "audit-*.log"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	filtered := []string{}
	for _, file := range files {
		date := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), "audit-"), ".log")
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			continue
		}
		if !start.IsZero() && day.Before(start.UTC().Truncate(24*time.Hour)) {
			continue
		}
		if !end.IsZero() && day.After(end.UTC()) {
			continue
		}
		filtered = append(filtered, file)
	}
	return filtered, nil
}

// readLogFile parses one JSON line per event. Lines that do not parse are
// skipped so a torn final write does not hide the rest of the trail.
func readLogFile(name string) ([]*Event, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	events := []*Event{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err == nil {
			events = append(events, &event)
		}
	}
	return events, scanner.Err()
}
