//go:build !windows

package updater

import (
	"errors"
	"os"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/util"
)

// moveFile moves src over dst, copying across filesystems when needed
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	log.Debugf("%s and %s are on different filesystems, copying", src, dst)
	if err := util.CopyFileContents(src, dst); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if err := os.Remove(src); err != nil {
		log.Warnf("failed to remove %s after copy: %v", src, err)
	}
	return nil
}
