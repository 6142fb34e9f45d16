package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceassistant/assistant/client/internal/updatemanager"
)

func TestReadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	assert.Equal(t, DefaultDescriptorURL, cfg.DescriptorURL)
	assert.Equal(t, updatemanager.DefaultAssetName, cfg.AssetName)
	assert.Equal(t, Duration(updatemanager.DefaultCheckTimeout), cfg.CheckTimeout)
	assert.Equal(t, Duration(updatemanager.DefaultDownloadTimeout), cfg.DownloadTimeout)
	assert.Equal(t, Duration(DefaultCheckInterval), cfg.CheckInterval)
	assert.False(t, cfg.KeepBackup)

	read, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, read)
}

func TestReadConfigKeepsDisabledChecks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"DescriptorURL": "https://example.com/version.json", "CheckInterval": "0s", "CheckTimeout": "3s"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/version.json", cfg.DescriptorURL)
	assert.Zero(t, cfg.CheckInterval)
	assert.Equal(t, Duration(3*time.Second), cfg.CheckTimeout)
	assert.Equal(t, Duration(updatemanager.DefaultDownloadTimeout), cfg.DownloadTimeout)
}

func TestUpdateOrCreateConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	_, err := ReadConfig(path)
	require.NoError(t, err)

	interval := time.Hour
	keep := true
	cfg, err := UpdateOrCreateConfig(ConfigInput{
		ConfigPath:    path,
		DescriptorURL: "http://localhost:8080/version.json",
		CheckInterval: &interval,
		KeepBackup:    &keep,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/version.json", cfg.DescriptorURL)
	assert.Equal(t, Duration(time.Hour), cfg.CheckInterval)
	assert.True(t, cfg.KeepBackup)

	read, err := ReadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, read)

	_, err = UpdateOrCreateConfig(ConfigInput{ConfigPath: path, DescriptorURL: "ftp://example.com/version.json"})
	assert.Error(t, err)
}

func TestDurationJSON(t *testing.T) {
	bs, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(bs))

	testCases := []struct {
		input    string
		expected Duration
		wantErr  bool
	}{
		{input: `"10s"`, expected: Duration(10 * time.Second)},
		{input: `1000000000`, expected: Duration(time.Second)},
		{input: `"soon"`, wantErr: true},
		{input: `true`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tc.input), &d)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d)
		})
	}
}

func TestUpdateManagerConfig(t *testing.T) {
	cfg := &Config{
		DescriptorURL:   "https://example.com/version.json",
		AssetName:       "app.bin",
		CheckTimeout:    Duration(time.Second),
		DownloadTimeout: Duration(time.Minute),
		CheckInterval:   Duration(time.Hour),
	}

	umc := cfg.UpdateManagerConfig("1.0.0", "/opt/app/app.bin", "/opt/app")
	assert.Equal(t, "https://example.com/version.json", umc.DescriptorURL)
	assert.Equal(t, "1.0.0", umc.CurrentVersion)
	assert.Equal(t, time.Hour, umc.CheckInterval)
	assert.Equal(t, "/opt/app", umc.WorkDir)
}
