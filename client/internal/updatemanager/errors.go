package updatemanager

import (
	"errors"
	"fmt"
)

var (
	// ErrHandoffStarted is returned when an install was already requested
	ErrHandoffStarted = errors.New("update handoff already started")
	// ErrNoArtifact is returned when the release does not name anything to download
	ErrNoArtifact = errors.New("release has no artifact location")
)

// DownloadError reports a failed artifact download. No partial artifact is left behind.
type DownloadError struct {
	Location string
	Err      error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Location, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}
