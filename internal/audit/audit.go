// Package audit writes an append-only trail of transaction events, one JSON
// document per line.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

type Entry struct {
	EntityType string         `json:"entity_type"`
	EntityID   *string        `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Log appends entries to a single file. A nil *Log is a disabled sink;
// Append on it is a no-op, so callers never branch on configuration.
type Log struct {
	mu   sync.Mutex
	path string
}

func NewLog(path string) *Log {
	if path == "" {
		return nil
	}
	return &Log{path: path}
}

func (l *Log) Append(e Entry) error {
	if l == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(b, '\n'))
	return err
}
