package updatemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/client/internal/updatemanager/downloader"
	"github.com/voiceassistant/assistant/client/internal/updatemanager/installer"
	"github.com/voiceassistant/assistant/version"
)

const (
	DefaultAssetName       = "VoiceAssistant.exe"
	DefaultCheckTimeout    = 10 * time.Second
	DefaultDownloadTimeout = 5 * time.Minute
)

// Installer hands the downloaded artifact over to the updater process
type Installer interface {
	CheckUpdater() error
	RunInstallation(h installer.Handoff) error
}

// Config describes where updates come from and what they replace
type Config struct {
	DescriptorURL  string
	AssetName      string
	CurrentVersion string
	// TargetPath is the executable that gets replaced, usually os.Executable()
	TargetPath string
	// WorkDir receives the downloaded artifact and the completion flag
	WorkDir string

	CheckTimeout    time.Duration
	DownloadTimeout time.Duration
	// CheckInterval enables background checks after Start, 0 disables them
	CheckInterval time.Duration
	RetryDelay    time.Duration
}

type UpdateManager struct {
	cfg        Config
	installer  Installer
	notifier   Notifier
	terminator Terminator

	hooksMu        sync.Mutex
	preHandoff     []func()
	handoffAborted []func()

	handoffMu sync.Mutex
	handedOff bool

	listenerMu    sync.Mutex
	onUpdate      func(*Release)
	lastAnnounced string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewUpdateManager(cfg Config, inst Installer, notifier Notifier) *UpdateManager {
	if cfg.AssetName == "" {
		cfg.AssetName = DefaultAssetName
	}
	if cfg.CurrentVersion == "" {
		cfg.CurrentVersion = version.AssistantVersion()
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = DefaultDownloadTimeout
	}
	if notifier == nil {
		notifier = logNotifier{}
	}

	return &UpdateManager{
		cfg:        cfg,
		installer:  inst,
		notifier:   notifier,
		terminator: ExitTerminator,
	}
}

// WithTerminator replaces the default os.Exit based termination
func (u *UpdateManager) WithTerminator(t Terminator) *UpdateManager {
	u.terminator = t
	return u
}

// AddPreHandoffHook registers cleanup that must finish before the updater starts,
// e.g. closing the UI or the log file
func (u *UpdateManager) AddPreHandoffHook(fn func()) {
	u.hooksMu.Lock()
	defer u.hooksMu.Unlock()
	u.preHandoff = append(u.preHandoff, fn)
}

// AddHandoffAbortedHook registers work that undoes the pre-handoff hooks when
// the updater could not be started, e.g. reopening the log file
func (u *UpdateManager) AddHandoffAbortedHook(fn func()) {
	u.hooksMu.Lock()
	defer u.hooksMu.Unlock()
	u.handoffAborted = append(u.handoffAborted, fn)
}

// SetOnUpdateListener is called by background checks once per newly found release
func (u *UpdateManager) SetOnUpdateListener(fn func(*Release)) {
	u.listenerMu.Lock()
	defer u.listenerMu.Unlock()
	u.onUpdate = fn
}

// CheckForUpdate fetches the version descriptor and returns the announced
// release if it is newer than the running version. Any failure is logged and
// reported as no update.
func (u *UpdateManager) CheckForUpdate(ctx context.Context) *Release {
	if u.cfg.DescriptorURL == "" {
		log.Debugf("no version descriptor configured, skipping update check")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.CheckTimeout)
	defer cancel()

	d, err := fetchDescriptor(ctx, u.cfg.DescriptorURL)
	if err != nil {
		log.Warnf("failed to fetch version descriptor: %v", err)
		return nil
	}

	release, err := d.release(u.cfg.DescriptorURL, u.cfg.AssetName)
	if err != nil {
		log.Warnf("failed to read version descriptor: %v", err)
		return nil
	}

	if !version.IsNewer(release.Version, u.cfg.CurrentVersion) {
		log.Debugf("current version (%s) is equal to or higher than available version (%s)", u.cfg.CurrentVersion, release.Version)
		return nil
	}

	log.Infof("update available, current version: %s, available version: %s", u.cfg.CurrentVersion, release.Version)
	return release
}

// Download fetches the release artifact into the working directory and
// returns the session the install step needs
func (u *UpdateManager) Download(ctx context.Context, release *Release) (*Session, error) {
	if release == nil || release.ArtifactLocation == "" {
		return nil, &DownloadError{Err: ErrNoArtifact}
	}

	session := newSession(*release, u.cfg.WorkDir, u.cfg.TargetPath)
	if sameFile(session.ArtifactPath, session.TargetPath) {
		return nil, &DownloadError{
			Location: release.ArtifactLocation,
			Err:      fmt.Errorf("artifact path %s collides with the executable", session.ArtifactPath),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.DownloadTimeout)
	defer cancel()

	log.Infof("downloading version %s from %s", release.Version, release.ArtifactLocation)
	if err := downloader.DownloadToFile(ctx, u.cfg.RetryDelay, release.ArtifactLocation, session.ArtifactPath); err != nil {
		return nil, &DownloadError{Location: release.ArtifactLocation, Err: err}
	}

	return session, nil
}

// RequestInstall launches the updater and terminates the application.
// Once called it cannot be cancelled. It returns only if the updater could not
// be started, the application keeps running in that case.
func (u *UpdateManager) RequestInstall(session *Session) error {
	if session == nil {
		return errors.New("no update session")
	}

	u.handoffMu.Lock()
	defer u.handoffMu.Unlock()

	if u.handedOff {
		return ErrHandoffStarted
	}

	if err := u.installer.CheckUpdater(); err != nil {
		u.removeArtifact(session)
		return err
	}

	log.Infof("handing update session %s over to the updater", session.ID)

	u.hooksMu.Lock()
	hooks := u.preHandoff
	aborted := u.handoffAborted
	u.hooksMu.Unlock()
	for _, hook := range hooks {
		hook()
	}

	if err := u.installer.RunInstallation(session.handoff()); err != nil {
		for _, hook := range aborted {
			hook()
		}
		log.Errorf("failed to start the updater, keep running: %v", err)
		u.removeArtifact(session)
		return err
	}

	u.handedOff = true
	u.terminator.Terminate(0)
	return nil
}

// Run is the interactive update flow: check, confirm, download, install
func (u *UpdateManager) Run(ctx context.Context, confirmer Confirmer) error {
	release := u.CheckForUpdate(ctx)
	if release == nil {
		u.notifier.Notify("No Update", "You're already on the latest version.")
		return nil
	}

	msg := fmt.Sprintf("Version %s is available.\n\nChangelog:\n%s\n\nInstall now?", release.Version, release.Changelog)
	if confirmer != nil && !confirmer.Confirm("Update Available", msg) {
		log.Infof("update to %s declined", release.Version)
		return nil
	}

	session, err := u.Download(ctx, release)
	if err != nil {
		u.notifier.Notify("Update Error", fmt.Sprintf("Download failed:\n%v", err))
		return err
	}

	if err := u.RequestInstall(session); err != nil {
		u.notifier.Notify("Update Error", fmt.Sprintf("Could not start the updater:\n%v", err))
		return err
	}
	return nil
}

// Start runs background checks every CheckInterval until ctx is done or Stop is called
func (u *UpdateManager) Start(ctx context.Context) {
	if u.cancel != nil {
		log.Errorf("UpdateManager already started")
		return
	}
	if u.cfg.CheckInterval <= 0 {
		log.Debugf("background update checks disabled")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	u.cancel = cancel

	u.wg.Add(1)
	go u.updateLoop(ctx)
}

func (u *UpdateManager) Stop() {
	if u.cancel == nil {
		return
	}

	u.cancel()
	u.wg.Wait()
	u.cancel = nil
}

func (u *UpdateManager) updateLoop(ctx context.Context) {
	defer u.wg.Done()

	ticker := time.NewTicker(u.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		u.handleUpdate(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (u *UpdateManager) handleUpdate(ctx context.Context) {
	release := u.CheckForUpdate(ctx)
	if release == nil {
		return
	}

	u.listenerMu.Lock()
	defer u.listenerMu.Unlock()

	if release.Version == u.lastAnnounced {
		log.Tracef("release %s already announced", release.Version)
		return
	}
	u.lastAnnounced = release.Version

	if u.onUpdate != nil {
		u.onUpdate(release)
	}
}

func (u *UpdateManager) removeArtifact(session *Session) {
	if err := os.Remove(session.ArtifactPath); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to remove update artifact %s: %v", session.ArtifactPath, err)
	}
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

type logNotifier struct{}

func (logNotifier) Notify(title, message string) {
	log.Infof("%s: %s", title, message)
}
