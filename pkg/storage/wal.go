package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
)

// EventLog records every applied book event.
type EventLog interface {
	Append(ev orderbook.Event) error
}

type NopWAL struct{}

func NewNopWAL() *NopWAL                          { return &NopWAL{} }
func (w *NopWAL) Append(_ orderbook.Event) error { return nil }

// FileWAL appends one JSON line per event.
type FileWAL struct {
	mu  sync.Mutex
	f   *os.File
	now func() time.Time
}

func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileWAL{f: f, now: time.Now}, nil
}

type walEntry struct {
	Timestamp int64           `json:"ts"`
	Event     orderbook.Event `json:"event"`
}

func (w *FileWAL) Append(ev orderbook.Event) error {
	line, err := json.Marshal(walEntry{Timestamp: w.now().UnixMilli(), Event: ev})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.f, string(line))
	return err
}

func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

var _ EventLog = (*NopWAL)(nil)
var _ EventLog = (*FileWAL)(nil)
