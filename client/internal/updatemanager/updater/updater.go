package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/client/internal/updatemanager/installer"
	"github.com/voiceassistant/assistant/util"
)

const (
	DefaultParentTimeout  = 10 * time.Second
	DefaultReleaseTimeout = 15 * time.Second
	defaultPollInterval   = 200 * time.Millisecond
	maxRetryInterval      = 2 * time.Second
)

// Options tune the replace protocol
type Options struct {
	// KeepBackup leaves <target>.bak in place after a successful update
	KeepBackup bool
	// ParentTimeout bounds the wait for the requesting application to exit
	ParentTimeout time.Duration
	// ReleaseTimeout bounds the retries of the backup rename while the executable is locked
	ReleaseTimeout time.Duration
	PollInterval   time.Duration
}

// Updater replaces the application executable with a downloaded artifact
type Updater struct {
	session *Session
	opts    Options
	results *installer.ResultHandler

	mu    sync.Mutex
	state State

	renameFn    func(oldPath, newPath string) error
	moveFn      func(src, dst string) error
	pidExistsFn func(ctx context.Context, pid int32) (bool, error)
	startFn     func(path, dir string) error
	nowFn       func() time.Time
}

func New(session *Session, opts Options) *Updater {
	if opts.ParentTimeout <= 0 {
		opts.ParentTimeout = DefaultParentTimeout
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = DefaultReleaseTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	return &Updater{
		session:     session,
		opts:        opts,
		results:     installer.NewResultHandler(session.WorkDir),
		state:       StateIdle,
		renameFn:    os.Rename,
		moveFn:      moveFile,
		pidExistsFn: process.PidExistsWithContext,
		startFn:     relaunchDetached,
		nowFn:       time.Now,
	}
}

// State returns the step the updater is in or ended in
func (u *Updater) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

func (u *Updater) setState(s State) {
	u.mu.Lock()
	prev := u.state
	u.state = s
	u.mu.Unlock()
	log.Debugf("updater state %s -> %s", prev, s)
}

// Run executes the replace protocol. The returned error wraps
// ErrPreDestructive, ErrRolledBack or ErrRollbackFailed.
// A failed relaunch is not an error.
func (u *Updater) Run(ctx context.Context) error {
	log.Infof("replacing %s with %s (session %s, version %s)",
		u.session.TargetPath, u.session.ArtifactPath, u.session.ID, u.session.Version)

	if err := u.waitForRelease(ctx); err != nil {
		u.setState(StateFailed)
		log.Errorf("update aborted, %s was not modified: %v", u.session.TargetPath, err)
		return fmt.Errorf("%w: %v", ErrPreDestructive, err)
	}

	if err := u.backup(ctx); err != nil {
		u.setState(StateFailed)
		log.Errorf("update aborted, %s was not modified: %v", u.session.TargetPath, err)
		return fmt.Errorf("%w: %v", ErrPreDestructive, err)
	}

	if err := u.replace(); err != nil {
		return u.rollback(err)
	}
	log.Infof("replacement done")

	u.cleanup()
	u.relaunch()

	u.setState(StateDone)
	return nil
}

// waitForRelease gives the parent a bounded time to exit. Only the backup
// rename proves the executable is released, so a parent outliving the budget
// is logged and the rename retries decide.
func (u *Updater) waitForRelease(ctx context.Context) error {
	u.setState(StateWaitForRelease)

	if _, err := os.Stat(u.session.ArtifactPath); err != nil {
		return fmt.Errorf("artifact not available: %w", err)
	}
	if _, err := os.Stat(u.session.TargetPath); err != nil {
		return fmt.Errorf("target not available: %w", err)
	}

	pid := u.session.ParentPID
	if pid == 0 {
		log.Debugf("parent process unknown, relying on rename retries")
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, u.opts.ParentTimeout)
	defer cancel()

	ticker := time.NewTicker(u.opts.PollInterval)
	defer ticker.Stop()

	for {
		exists, err := u.pidExistsFn(waitCtx, pid)
		if err != nil && waitCtx.Err() == nil {
			log.Warnf("failed to check parent process %d: %v", pid, err)
			return nil
		}
		if err == nil && !exists {
			log.Infof("parent process %d exited", pid)
			return nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnf("parent process %d still running after %s, trying to take over the executable anyway", pid, u.opts.ParentTimeout)
			return nil
		case <-ticker.C:
		}
	}
}

// backup renames the target out of the way. It is the last step before
// anything destructive happens, a failure leaves the target untouched.
func (u *Updater) backup(ctx context.Context) error {
	u.setState(StateBackup)

	if err := os.Remove(u.session.BackupPath); err == nil {
		log.Infof("removed stale backup %s", u.session.BackupPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale backup %s: %w", u.session.BackupPath, err)
	}

	var attempts int
	operation := func() error {
		attempts++
		err := u.renameFn(u.session.TargetPath, u.session.BackupPath)
		if errors.Is(err, os.ErrNotExist) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		log.Warnf("executable %s is still in use, retrying in %v: %v", u.session.TargetPath, next, err)
	}

	if err := backoff.RetryNotify(operation, u.releaseBackOff(ctx), notify); err != nil {
		return fmt.Errorf("rename %s to %s failed after %d attempts: %w", u.session.TargetPath, u.session.BackupPath, attempts, err)
	}

	log.Infof("backed up %s to %s", u.session.TargetPath, u.session.BackupPath)
	return nil
}

func (u *Updater) releaseBackOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(&backoff.ExponentialBackOff{
		InitialInterval:     u.opts.PollInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         maxRetryInterval,
		MaxElapsedTime:      u.opts.ReleaseTimeout,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, ctx)
}

func (u *Updater) replace() error {
	u.setState(StateReplace)

	archive, err := isZipArchive(u.session.ArtifactPath)
	if err != nil {
		return err
	}

	if archive {
		log.Infof("extracting %s into %s", u.session.ArtifactPath, filepath.Dir(u.session.TargetPath))
		if err := extractZip(u.session.ArtifactPath, filepath.Dir(u.session.TargetPath), selfExecutable()); err != nil {
			return fmt.Errorf("extract %s: %w", u.session.ArtifactPath, err)
		}
		if !util.FileExists(u.session.TargetPath) {
			return fmt.Errorf("archive %s does not contain %s", u.session.ArtifactPath, filepath.Base(u.session.TargetPath))
		}
	} else if err := u.moveFn(u.session.ArtifactPath, u.session.TargetPath); err != nil {
		return fmt.Errorf("move %s to %s: %w", u.session.ArtifactPath, u.session.TargetPath, err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(u.session.TargetPath, 0o755); err != nil {
			return fmt.Errorf("set permissions on %s: %w", u.session.TargetPath, err)
		}
	}

	return nil
}

// rollback restores the backup after a failed replace
func (u *Updater) rollback(cause error) error {
	u.setState(StateRollback)
	log.Errorf("replace failed, restoring %s: %v", u.session.BackupPath, cause)

	var merr *multierror.Error
	merr = multierror.Append(merr, cause)

	if err := os.Remove(u.session.TargetPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		merr = multierror.Append(merr, fmt.Errorf("remove partial %s: %w", u.session.TargetPath, err))
	}

	if err := u.renameFn(u.session.BackupPath, u.session.TargetPath); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("restore %s to %s: %w", u.session.BackupPath, u.session.TargetPath, err))
		u.setState(StateFailed)
		log.Errorf("ROLLBACK FAILED, the application cannot be started. "+
			"Recover manually by renaming %s to %s. Artifact: %s. Errors: %v",
			u.session.BackupPath, u.session.TargetPath, u.session.ArtifactPath, merr)
		return fmt.Errorf("%w: %v", ErrRollbackFailed, merr.ErrorOrNil())
	}

	u.setState(StateFailed)
	log.Warnf("previous executable restored to %s", u.session.TargetPath)
	return fmt.Errorf("%w: %v", ErrRolledBack, cause)
}

func (u *Updater) cleanup() {
	u.setState(StateCleanup)

	if u.opts.KeepBackup {
		log.Infof("keeping backup %s", u.session.BackupPath)
	} else if err := util.RemoveFile(u.session.BackupPath); err != nil {
		log.Warnf("failed to remove backup: %v", err)
	}

	result := installer.Result{
		Version:    u.session.Version,
		SessionID:  u.session.ID,
		ReplacedAt: u.nowFn(),
	}
	if err := u.results.Write(result); err != nil {
		log.Errorf("failed to write completion flag: %v", err)
	}

	// an extracted archive stays behind
	if err := util.RemoveFile(u.session.ArtifactPath); err != nil {
		log.Warnf("failed to remove artifact: %v", err)
	}
}

func (u *Updater) relaunch() {
	u.setState(StateRelaunch)

	if err := u.startFn(u.session.TargetPath, u.session.WorkDir); err != nil {
		log.Errorf("failed to relaunch %s, it has been updated and can be started manually: %v", u.session.TargetPath, err)
		return
	}
	log.Infof("app restarted")
}

func relaunchDetached(path, dir string) error {
	pid, err := installer.StartDetached(path, dir)
	if err != nil {
		return err
	}
	log.Debugf("relaunched %s with PID %d", path, pid)
	return nil
}

func selfExecutable() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return exe
}
