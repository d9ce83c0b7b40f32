// Package journal appends outcome and tribute entries to the mission log as JSON lines.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"solana-survival-agent/internal/domain"
)

// Entry kinds.
const (
	KindOutcome = "outcome"
	KindTribute = "tribute"
)

// Entry is one line of the mission log.
type Entry struct {
	Kind    string                `json:"kind"`
	Time    time.Time             `json:"time"`
	Outcome *domain.ActionOutcome `json:"outcome,omitempty"`
	Tribute *domain.TributeRecord `json:"tribute,omitempty"`
}

// Journal is an append-only JSONL file.
type Journal struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// Open creates/opens the journal at path with owner-only permissions.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{
		path: path,
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// RecordOutcome appends a cycle outcome.
func (j *Journal) RecordOutcome(o domain.ActionOutcome) error {
	return j.write(Entry{Kind: KindOutcome, Time: o.FinishedAt, Outcome: &o})
}

// RecordTribute appends a tribute transfer.
func (j *Journal) RecordTribute(r domain.TributeRecord) error {
	return j.write(Entry{Kind: KindTribute, Time: r.CreatedAt, Tribute: &r})
}

func (j *Journal) write(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return errors.New("journal closed")
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if err := j.enc.Encode(e); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	return nil
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}

// Tail returns up to the last n entries of the journal at path, oldest first.
// Lines that do not decode are skipped.
func Tail(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
		if n > 0 && len(entries) > n {
			entries = entries[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return entries, nil
}
