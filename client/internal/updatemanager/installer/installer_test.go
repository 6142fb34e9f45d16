package installer

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactPath(t *testing.T) {
	testCases := []struct {
		target   string
		expected string
	}{
		{target: "/opt/app/app.bin", expected: filepath.Join("/work", "app_new.tmp")},
		{target: "/opt/app/VoiceAssistant.exe", expected: filepath.Join("/work", "VoiceAssistant_new.tmp")},
		{target: "/opt/app/assistant", expected: filepath.Join("/work", "assistant_new.tmp")},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ArtifactPath("/work", tc.target), tc.target)
	}

	assert.Equal(t, "/opt/app/app.bin.bak", BackupPath("/opt/app/app.bin"))
}

func TestRunInstallation(t *testing.T) {
	dir := t.TempDir()
	updaterPath := filepath.Join(dir, updaterBinary)
	require.NoError(t, os.WriteFile(updaterPath, []byte("updater"), 0o755))

	var started *exec.Cmd
	inst := NewWithUpdater(updaterPath, dir)
	inst.startFn = func(cmd *exec.Cmd) (int, error) {
		started = cmd
		return 4242, nil
	}

	err := inst.RunInstallation(Handoff{
		ArtifactPath: "app_new.tmp",
		TargetPath:   "app.bin",
		SessionID:    "session-1",
		Version:      "1.1.0",
	})
	require.NoError(t, err)
	require.NotNil(t, started)

	assert.Equal(t, []string{updaterPath, "app_new.tmp", "app.bin"}, started.Args)
	assert.Equal(t, dir, started.Dir)
	assert.Contains(t, started.Env, EnvParentPID+"="+strconv.Itoa(os.Getpid()))
	assert.Contains(t, started.Env, EnvSession+"=session-1")
	assert.Contains(t, started.Env, EnvVersion+"=1.1.0")
}

func TestRunInstallationFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing updater", func(t *testing.T) {
		inst := NewWithUpdater(filepath.Join(dir, "nope"), dir)
		inst.startFn = func(cmd *exec.Cmd) (int, error) {
			t.Fatal("updater must not be started")
			return 0, nil
		}
		err := inst.RunInstallation(Handoff{ArtifactPath: "a", TargetPath: "b"})
		assert.Error(t, err)
	})

	t.Run("start error", func(t *testing.T) {
		updaterPath := filepath.Join(dir, updaterBinary)
		require.NoError(t, os.WriteFile(updaterPath, []byte("updater"), 0o755))

		inst := NewWithUpdater(updaterPath, dir)
		inst.startFn = func(cmd *exec.Cmd) (int, error) {
			return 0, errors.New("access denied")
		}
		err := inst.RunInstallation(Handoff{ArtifactPath: "a", TargetPath: "b"})
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("missing paths", func(t *testing.T) {
		inst := NewWithUpdater(filepath.Join(dir, updaterBinary), dir)
		assert.Error(t, inst.RunInstallation(Handoff{TargetPath: "b"}))
		assert.Error(t, inst.RunInstallation(Handoff{ArtifactPath: "a"}))
	})
}

func TestStartDetached(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a posix shell")
	}

	dir := t.TempDir()
	marker := filepath.Join(dir, "started")
	pid, err := StartDetached("/bin/sh", dir, "-c", "touch started")
	require.NoError(t, err)
	assert.Greater(t, pid, 0)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}
