package installer

import (
	"path/filepath"
	"strings"
)

const (
	backupSuffix   = ".bak"
	artifactSuffix = "_new.tmp"
)

// BackupPath is where the updater keeps the previous executable while replacing it
func BackupPath(targetPath string) string {
	return targetPath + backupSuffix
}

// ArtifactPath is the temp file a download for targetPath lands in,
// e.g. app.bin -> <workDir>/app_new.tmp
func ArtifactPath(workDir, targetPath string) string {
	base := filepath.Base(targetPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(workDir, stem+artifactSuffix)
}
