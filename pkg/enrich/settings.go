// Package enrich runs AI assistance over a local note collection: automatic
// classification, memory extraction, and merge suggestions, each triggered a
// short settle delay after an edit.
package enrich

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings controls which automations run and holds the user's API key.
// Stored as a small JSON file next to the notes snapshot.
type Settings struct {
	GeminiKey    string `json:"geminiKey,omitempty"`
	AutoClassify bool   `json:"autoClassify"`
	AutoMemory   bool   `json:"autoMemory"`
	AutoMerge    bool   `json:"autoMerge"`
}

// DefaultSettings enables every automation but carries no key.
func DefaultSettings() Settings {
	return Settings{
		AutoClassify: true,
		AutoMemory:   true,
		AutoMerge:    true,
	}
}

// LoadSettings reads settings from path. A missing file returns defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	return settings, nil
}

// SaveSettings writes settings to path, creating parent directories.
func SaveSettings(path string, settings Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
