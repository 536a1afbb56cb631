package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"news-impact-alerts/internal/schema"
)

const (
	eventsFileName      = "events.json"
	validationsFileName = "validations.json"
)

// Backup mirrors both collections to plain JSON files on every write. The
// file format is the persisted contract: two ordered JSON arrays.
type Backup struct {
	dir string
}

// NewBackup prepares the mirror directory.
func NewBackup(dir string) (*Backup, error) {
	if dir == "" {
		return nil, errors.New("backup dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Backup{dir: dir}, nil
}

// WriteEvents replaces the events mirror with the given snapshot.
func (b *Backup) WriteEvents(events []schema.Event) error {
	return b.writeFile(eventsFileName, events)
}

// WriteValidations replaces the validations mirror with the given snapshot.
func (b *Backup) WriteValidations(validations []schema.Validation) error {
	return b.writeFile(validationsFileName, validations)
}

// LoadEvents reads the events mirror. A missing file is an empty collection.
func (b *Backup) LoadEvents() ([]schema.Event, error) {
	var events []schema.Event
	if err := b.readFile(eventsFileName, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// LoadValidations reads the validations mirror.
func (b *Backup) LoadValidations() ([]schema.Validation, error) {
	var validations []schema.Validation
	if err := b.readFile(validationsFileName, &validations); err != nil {
		return nil, err
	}
	return validations, nil
}

func (b *Backup) writeFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	path := filepath.Join(b.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func (b *Backup) readFile(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(b.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
