package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"synkcal/internal/core"
)

// File stores per-user reminder settings in a single JSON file keyed by
// email. It backs the settings-management surface; the dispatch flow only
// reads from it.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) GetReminderSettings(ctx context.Context, userKey string) ([]core.ReminderSetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	byUser, err := f.load()
	if err != nil {
		return nil, err
	}
	return byUser[userKey], nil
}

func (f *File) UpdateReminderSettings(ctx context.Context, userKey string, settings []core.ReminderSetting) error {
	for _, setting := range settings {
		if err := setting.Timing.Validate(); err != nil {
			return fmt.Errorf("invalid reminder setting for %s: %w", userKey, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	byUser, err := f.load()
	if err != nil {
		return err
	}
	if len(settings) == 0 {
		delete(byUser, userKey)
	} else {
		byUser[userKey] = settings
	}
	return f.save(byUser)
}

func (f *File) load() (map[string][]core.ReminderSetting, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]core.ReminderSetting), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	byUser := make(map[string][]core.ReminderSetting)
	if err := json.Unmarshal(data, &byUser); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return byUser, nil
}

func (f *File) save(byUser map[string][]core.ReminderSetting) error {
	data, err := json.MarshalIndent(byUser, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return os.WriteFile(f.path, data, 0644)
}
