package updater

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// moveFile moves src over dst, copying across volumes when needed
func moveFile(src, dst string) error {
	from, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return fmt.Errorf("convert %s: %w", src, err)
	}
	to, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return fmt.Errorf("convert %s: %w", dst, err)
	}

	return windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_COPY_ALLOWED|windows.MOVEFILE_WRITE_THROUGH)
}
