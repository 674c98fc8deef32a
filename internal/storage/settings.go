package storage

import (
	"encoding/json"
	"fmt"
)

// Settings is the on-disk configuration for the reranker, conventionally
// stored in settings.json next to the binary. API keys may also come from
// the environment, so they are not required here.
type Settings struct {
	Model           string   `json:"model"`
	ContextSize     int      `json:"context_size"`
	WindowSize      int      `json:"window_size"`
	StepSize        int      `json:"step_size"`
	ApiKeys         []string `json:"api_keys"`
	ApiBase         string   `json:"api_base"`
	SiteURL         string   `json:"site_url"`
	SiteName        string   `json:"site_name"`
	HistoryFilePath string   `json:"history_file_path"`
}

const DefaultContextSize = 8192

func LoadSettings(filePath string) (Settings, error) {
	var settings Settings

	byteValue, err := ReadFromFile(filePath)
	if err != nil {
		return settings, fmt.Errorf("error reading settings file: %w", err)
	}

	err = json.Unmarshal(byteValue, &settings)
	if err != nil {
		return settings, fmt.Errorf("error decoding settings JSON: %w", err)
	}

	if settings.Model == "" {
		return settings, fmt.Errorf("model is missing in settings file (expected provider/model format)")
	}
	if settings.ContextSize <= 0 {
		settings.ContextSize = DefaultContextSize
	}

	return settings, nil
}
