// Package cronfile keeps the scheduled-job registry in a flat JSON file.
// The file has no transactional guarantee against concurrent writers;
// running multiple scheduler processes against one registry is unsupported.
package cronfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

type Action string

const (
	ActionRunning Action = "RUNNING"
	ActionStop    Action = "STOP"
)

// Record describes one scheduled advancement job.
type Record struct {
	OrderID         string    `json:"orderId,omitempty"`
	UserEmail       string    `json:"userEmail,omitempty"`
	AllPossible     bool      `json:"allPossible,omitempty"`
	MinuteFrequency int       `json:"minuteFrequency"`
	MaxDelayMinutes int       `json:"maxDelayMinutes"`
	StartedAt       time.Time `json:"startedAt"`
	Action          Action    `json:"action,omitempty"`
}

type Registry struct {
	path string
}

func New(path string) *Registry {
	return &Registry{path: path}
}

func (r *Registry) read() (map[string]Record, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Record{}, nil
		}
		return nil, fmt.Errorf("failed to read cron registry: %w", err)
	}

	records := map[string]Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse cron registry: %w", err)
	}
	return records, nil
}

func (r *Registry) write(records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cron registry: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cron registry: %w", err)
	}
	return nil
}

func (r *Registry) Get(key string) (Record, bool, error) {
	records, err := r.read()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := records[key]
	return rec, ok, nil
}

func (r *Registry) Put(key string, rec Record) error {
	records, err := r.read()
	if err != nil {
		return err
	}
	records[key] = rec
	return r.write(records)
}

func (r *Registry) Delete(key string) error {
	records, err := r.read()
	if err != nil {
		return err
	}
	delete(records, key)
	return r.write(records)
}

// MarkStop flags one job; its driver removes the record and terminates on
// the next tick.
func (r *Registry) MarkStop(key string) error {
	records, err := r.read()
	if err != nil {
		return err
	}
	rec, ok := records[key]
	if !ok {
		return fmt.Errorf("no cron job registered under %q", key)
	}
	rec.Action = ActionStop
	records[key] = rec
	return r.write(records)
}

// MarkStopAll flags every registered job.
func (r *Registry) MarkStopAll() error {
	records, err := r.read()
	if err != nil {
		return err
	}
	for key, rec := range records {
		rec.Action = ActionStop
		records[key] = rec
	}
	return r.write(records)
}

func (r *Registry) Keys() ([]string, error) {
	records, err := r.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	return keys, nil
}
