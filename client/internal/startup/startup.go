// Package startup runs the update related work of an application start
package startup

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/client/internal/updatemanager"
	"github.com/voiceassistant/assistant/client/internal/updatemanager/installer"
	"github.com/voiceassistant/assistant/util"
)

const updatedTitle = "Updated"

// ConsumeCompletionFlag tells the user about an update the updater finished
// before this start. The flag is deleted, a second call is a no-op.
func ConsumeCompletionFlag(workDir, currentVersion string, notifier updatemanager.Notifier) (bool, error) {
	result, found, err := installer.NewResultHandler(workDir).Consume()
	if !found {
		return false, err
	}
	if err != nil {
		log.Errorf("failed to remove completion flag, the update may be announced again: %v", err)
	}

	updatedTo := currentVersion
	if updatedTo == "" {
		updatedTo = result.Version
	}
	if result.Version != "" && result.Version != currentVersion {
		log.Warnf("completion flag announces %s but %s is running", result.Version, currentVersion)
	}

	log.Infof("update to %s completed (session %s, replaced at %s)", updatedTo, result.SessionID, result.ReplacedAt)
	notifier.Notify(updatedTitle, fmt.Sprintf("Application updated to %s!", updatedTo))
	return true, err
}

// RemoveLeftovers deletes a stale downloaded artifact and, after a finished
// update, the backup of the previous executable
func RemoveLeftovers(workDir, targetPath string, updated, keepBackup bool) {
	if err := util.RemoveFile(installer.ArtifactPath(workDir, targetPath)); err != nil {
		log.Warnf("failed to remove stale update artifact: %v", err)
	}

	if !updated || keepBackup {
		return
	}
	if err := util.RemoveFile(installer.BackupPath(targetPath)); err != nil {
		log.Warnf("failed to remove backup: %v", err)
	}
}
