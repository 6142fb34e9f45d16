package updatemanager

import (
	"github.com/google/uuid"

	"github.com/voiceassistant/assistant/client/internal/updatemanager/installer"
)

// Session holds the state of one update attempt. It is created when a
// download starts and handed over to the updater process by RequestInstall.
type Session struct {
	ID           string
	Release      Release
	ArtifactPath string
	TargetPath   string
}

func newSession(release Release, workDir, targetPath string) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Release:      release,
		ArtifactPath: installer.ArtifactPath(workDir, targetPath),
		TargetPath:   targetPath,
	}
}

func (s *Session) handoff() installer.Handoff {
	return installer.Handoff{
		ArtifactPath: s.ArtifactPath,
		TargetPath:   s.TargetPath,
		SessionID:    s.ID,
		Version:      s.Release.Version,
	}
}
