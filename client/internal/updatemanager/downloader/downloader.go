package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/version"
)

const (
	userAgent         = "VoiceAssistant updater/%s"
	DefaultRetryDelay = 3 * time.Second
)

// ErrEmptyPayload is returned when the server answered 200 with no body
var ErrEmptyPayload = errors.New("downloaded payload is empty")

// DownloadToFile downloads url into dstFile. An existing dstFile is removed
// first. On failure the partial file is removed as well.
func DownloadToFile(ctx context.Context, retryDelay time.Duration, url, dstFile string) (err error) {
	log.Debugf("starting download from %s", url)

	if err := os.Remove(dstFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove existing file %q: %w", dstFile, err)
	}

	out, err := os.Create(dstFile)
	if err != nil {
		return fmt.Errorf("failed to create destination file %q: %w", dstFile, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Warnf("error closing file %q: %v", dstFile, cerr)
		}
		if err != nil {
			if rerr := os.Remove(dstFile); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
				log.Warnf("failed to remove partial download %q: %v", dstFile, rerr)
			}
		}
	}()

	// First attempt
	err = downloadToFileOnce(ctx, url, out)
	if err == nil {
		log.Infof("successfully downloaded file to %s", dstFile)
		return nil
	}

	// If retryDelay is 0, don't retry
	if retryDelay == 0 || errors.Is(err, ErrEmptyPayload) {
		return err
	}

	log.Warnf("download failed, retrying after %v: %v", retryDelay, err)

	// Sleep before retry
	if sleepErr := sleepWithContext(ctx, retryDelay); sleepErr != nil {
		return fmt.Errorf("download cancelled during retry delay: %w", sleepErr)
	}

	// Truncate file before retry
	if err = out.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate file on retry: %w", err)
	}
	if _, err = out.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek to beginning of file: %w", err)
	}

	// Second attempt
	if err = downloadToFileOnce(ctx, url, out); err != nil {
		return fmt.Errorf("download failed after retry: %w", err)
	}

	log.Infof("successfully downloaded file to %s", dstFile)
	return nil
}

// DownloadToMemory fetches url and returns at most limit bytes of its body
func DownloadToMemory(ctx context.Context, url string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// Add User-Agent header
	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, version.AssistantVersion()))
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func downloadToFileOnce(ctx context.Context, url string, out *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	// Add User-Agent header
	req.Header.Set("User-Agent", fmt.Sprintf(userAgent, version.AssistantVersion()))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write response body to file: %w", err)
	}
	if n == 0 {
		return ErrEmptyPayload
	}

	if err := out.Sync(); err != nil {
		return fmt.Errorf("failed to sync downloaded file: %w", err)
	}

	return nil
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	select {
	case <-time.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
