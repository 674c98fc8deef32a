package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjteo/rankrouter/internal/data"
)

func TestCheckFileExistence(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "testfile.txt")

	assert.False(t, CheckFileExistence(filePath))

	require.NoError(t, WriteToFile(filePath, []byte("hello")))
	assert.True(t, CheckFileExistence(filePath))
}

func TestWriteAndReadFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "testfile.txt")

	require.NoError(t, WriteToFile(filePath, []byte("Hello, World!")))

	byteVal, err := ReadFromFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(byteVal))
}

func TestReadFromFile_Missing(t *testing.T) {
	_, err := ReadFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "settings.json")
	content := `{
		"model": "google/gemma-3-27b-it",
		"context_size": 8192,
		"window_size": 20,
		"step_size": 10,
		"api_keys": ["sk-one", "sk-two"],
		"site_url": "https://example.com",
		"site_name": "Example"
	}`
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))

	settings, err := LoadSettings(filePath)
	require.NoError(t, err)

	assert.Equal(t, "google/gemma-3-27b-it", settings.Model)
	assert.Equal(t, 8192, settings.ContextSize)
	assert.Equal(t, []string{"sk-one", "sk-two"}, settings.ApiKeys)
	assert.Equal(t, "https://example.com", settings.SiteURL)
	assert.Equal(t, "Example", settings.SiteName)
}

func TestLoadSettings_MissingModel(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(filePath, []byte(`{"api_keys": ["sk-one"]}`), 0644))

	_, err := LoadSettings(filePath)
	assert.Error(t, err)
}

func TestLoadSettings_DefaultContextSize(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(filePath, []byte(`{"model": "openai/gpt-4o"}`), 0644))

	settings, err := LoadSettings(filePath)
	require.NoError(t, err)
	assert.Equal(t, DefaultContextSize, settings.ContextSize)
}

func TestInvocationHistoryRoundTrip(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "history.json")

	// Missing file reads as empty history.
	invocations, err := ReadInvocationHistory(filePath)
	require.NoError(t, err)
	assert.Empty(t, invocations)

	first := []data.InferenceInvocation{
		{ID: "inv-1", Method: "rank_gpt", Prompt: "p1", Response: "[1] > [2]", InputTokens: 10, OutputTokens: 5},
	}
	require.NoError(t, AppendInvocationHistory(filePath, first))

	second := []data.InferenceInvocation{
		{ID: "inv-2", Method: "rank_gpt", Prompt: "p2", Response: "[2] > [1]", InputTokens: 12, OutputTokens: 5},
	}
	require.NoError(t, AppendInvocationHistory(filePath, second))

	invocations, err = ReadInvocationHistory(filePath)
	require.NoError(t, err)
	require.Len(t, invocations, 2)
	assert.Equal(t, "inv-1", invocations[0].ID)
	assert.Equal(t, "inv-2", invocations[1].ID)
}

func TestAppendInvocationHistory_NoRecords(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, AppendInvocationHistory(filePath, nil))
	assert.False(t, CheckFileExistence(filePath))
}
