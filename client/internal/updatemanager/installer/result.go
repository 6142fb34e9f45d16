package installer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/voiceassistant/assistant/util"
)

const (
	resultFile = "just_updated.flag"
)

// Result is the informational content of the completion flag.
// Its presence alone means the executable has been replaced.
type Result struct {
	Version    string
	SessionID  string
	ReplacedAt time.Time
}

// ResultHandler handles the completion flag the updater leaves for the next start
type ResultHandler struct {
	resultFile string
}

// NewResultHandler creates a handler for the flag in the given working directory
func NewResultHandler(workDir string) *ResultHandler {
	return &ResultHandler{
		resultFile: filepath.Join(workDir, resultFile),
	}
}

// Path returns the location of the flag file
func (rh *ResultHandler) Path() string {
	return rh.resultFile
}

// Exists reports whether a replace happened since the flag was last consumed
func (rh *ResultHandler) Exists() bool {
	return util.FileExists(rh.resultFile)
}

// Write writes the flag atomically, readers never observe a partial file
func (rh *ResultHandler) Write(result Result) error {
	log.Infof("write out completion flag to: %s", rh.resultFile)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "version=%s\n", result.Version)
	fmt.Fprintf(&buf, "session=%s\n", result.SessionID)
	fmt.Fprintf(&buf, "replaced_at=%s\n", result.ReplacedAt.UTC().Format(time.RFC3339))

	return util.WriteBytesAtomic(context.Background(), rh.resultFile, buf.Bytes())
}

// Consume reads and deletes the flag. found is false when no flag exists.
// A flag with unreadable content still counts as found.
func (rh *ResultHandler) Consume() (result Result, found bool, err error) {
	result, err = rh.read()
	if errors.Is(err, os.ErrNotExist) {
		return Result{}, false, nil
	}
	if err != nil {
		log.Warnf("completion flag %s is not readable: %v", rh.resultFile, err)
	}

	if cerr := rh.Cleanup(); cerr != nil {
		return result, true, cerr
	}
	return result, true, nil
}

// Cleanup removes the flag file if it exists
func (rh *ResultHandler) Cleanup() error {
	err := os.Remove(rh.resultFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	log.Debugf("delete completion flag: %s", rh.resultFile)
	return nil
}

func (rh *ResultHandler) read() (Result, error) {
	data, err := os.ReadFile(rh.resultFile)
	if err != nil {
		return Result{}, err
	}

	var result Result
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "version":
			result.Version = value
		case "session":
			result.SessionID = value
		case "replaced_at":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				result.ReplacedAt = t
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("invalid flag content: %w", err)
	}

	return result, nil
}
