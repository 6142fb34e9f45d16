package updater

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/client/internal/updatemanager/installer"
)

// Session is the updater side of one update attempt
type Session struct {
	ArtifactPath string
	TargetPath   string
	BackupPath   string
	// WorkDir receives the completion flag, the relaunched application starts in it
	WorkDir string
	// ParentPID is the application that requested the update, 0 if unknown
	ParentPID int32
	ID        string
	Version   string
}

// NewSession builds a session from the two command line arguments and the
// environment the application passed along
func NewSession(artifactPath, targetPath string) (*Session, error) {
	if artifactPath == "" || targetPath == "" {
		return nil, errors.New("artifact and target path are required")
	}

	artifact, err := filepath.Abs(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact path: %w", err)
	}
	target, err := filepath.Abs(targetPath)
	if err != nil {
		return nil, fmt.Errorf("resolve target path: %w", err)
	}
	if artifact == target {
		return nil, fmt.Errorf("artifact and target are the same file: %s", target)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	s := &Session{
		ArtifactPath: artifact,
		TargetPath:   target,
		BackupPath:   installer.BackupPath(target),
		WorkDir:      workDir,
		ID:           os.Getenv(installer.EnvSession),
		Version:      os.Getenv(installer.EnvVersion),
		ParentPID:    parentPID(),
	}
	return s, nil
}

// parentPID is only known when the application started us, a manual run
// relies on the backup rename retries alone
func parentPID() int32 {
	value := os.Getenv(installer.EnvParentPID)
	if value == "" {
		return 0
	}

	pid, err := strconv.ParseInt(value, 10, 32)
	if err != nil || pid <= 0 {
		log.Warnf("ignoring invalid %s value %q", installer.EnvParentPID, value)
		return 0
	}
	return int32(pid)
}
