package installer

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"
)

const (
	EnvParentPID = "VA_UPDATER_PARENT_PID"
	EnvSession   = "VA_UPDATER_SESSION"
	EnvVersion   = "VA_UPDATER_VERSION"
)

// Handoff is what the running application passes on to the updater process
type Handoff struct {
	ArtifactPath string
	TargetPath   string
	SessionID    string
	Version      string
}

// Installer launches the updater binary shipped next to the application
type Installer struct {
	updaterPath string
	workDir     string

	startFn func(cmd *exec.Cmd) (int, error)
}

// New used by the application, the updater is expected next to the running executable
func New(workDir string) (*Installer, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	return NewWithUpdater(filepath.Join(filepath.Dir(exe), updaterBinary), workDir), nil
}

// NewWithUpdater uses an explicit updater binary, e.g. from the config file
func NewWithUpdater(updaterPath, workDir string) *Installer {
	return &Installer{
		updaterPath: updaterPath,
		workDir:     workDir,
		startFn:     startDetached,
	}
}

// UpdaterPath returns the updater binary the installer will launch
func (u *Installer) UpdaterPath() string {
	return u.updaterPath
}

// CheckUpdater verifies the updater binary can be started
func (u *Installer) CheckUpdater() error {
	info, err := os.Stat(u.updaterPath)
	if err != nil {
		return fmt.Errorf("cannot find updater at %s: %w", u.updaterPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("updater path %s is a directory", u.updaterPath)
	}
	return nil
}

// RunInstallation starts the updater process detached from the running application.
// The caller is expected to exit right after this returns nil.
func (u *Installer) RunInstallation(h Handoff) error {
	if h.ArtifactPath == "" || h.TargetPath == "" {
		return errors.New("artifact and target path are required")
	}
	if err := u.CheckUpdater(); err != nil {
		return err
	}

	updateCmd := exec.Command(u.updaterPath, h.ArtifactPath, h.TargetPath)
	updateCmd.Dir = u.workDir
	updateCmd.Env = append(os.Environ(),
		EnvParentPID+"="+strconv.Itoa(os.Getpid()),
		EnvSession+"="+h.SessionID,
		EnvVersion+"="+h.Version,
	)

	log.Infof("starting updater process: %s", updateCmd.String())
	pid, err := u.startFn(updateCmd)
	if err != nil {
		return fmt.Errorf("start updater: %w", err)
	}

	log.Infof("updater started with PID %d", pid)
	return nil
}

// StartDetached starts path in dir as a process that outlives the caller
func StartDetached(path string, dir string, args ...string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	return startDetached(cmd)
}

func startDetached(cmd *exec.Cmd) (int, error) {
	// no stdio is inherited, the child must not keep handles of the parent open
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	// Configure the process to run in a separate session/process group
	// so it survives the parent being stopped
	setDetachedProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	pid := cmd.Process.Pid

	// Release the process so the OS can fully detach it
	if err := cmd.Process.Release(); err != nil {
		log.Warnf("failed to release process %d: %v", pid, err)
	}

	return pid, nil
}
