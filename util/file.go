package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// WriteJson writes JSON config object to a file creating parent directories if required
// The output JSON is pretty-formatted
func WriteJson(ctx context.Context, file string, obj interface{}) error {
	// make it pretty
	bs, err := json.MarshalIndent(obj, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	return WriteBytesAtomic(ctx, file, bs)
}

// WriteBytesAtomic writes bytes to a file through a temp file in the same
// directory and a rename, so readers never see a partial file.
func WriteBytesAtomic(ctx context.Context, file string, bs []byte) error {
	configDir, configFileName, err := prepareConfigFileDir(file)
	if err != nil {
		return err
	}

	return writeBytes(ctx, file, configDir, configFileName, bs)
}

func writeBytes(ctx context.Context, file string, configDir string, configFileName string, bs []byte) error {
	if ctx.Err() != nil {
		return fmt.Errorf("write bytes start: %w", ctx.Err())
	}

	tempFile, err := os.CreateTemp(configDir, ".*"+configFileName)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	tempFileName := tempFile.Name()

	if err := os.Chmod(tempFileName, 0o644); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempFileName)
		return fmt.Errorf("set temp file permissions: %w", err)
	}

	_, err = tempFile.Write(bs)
	if err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempFileName)
		return fmt.Errorf("write: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempFileName)
		return fmt.Errorf("close %s: %w", tempFileName, err)
	}

	defer func() {
		if _, err := os.Stat(tempFileName); err == nil {
			if err := os.Remove(tempFileName); err != nil {
				log.Warnf("failed to remove temp file %s: %v", tempFileName, err)
			}
		}
	}()

	// Check context again
	if ctx.Err() != nil {
		return fmt.Errorf("after temp file: %w", ctx.Err())
	}

	if err = os.Rename(tempFileName, file); err != nil {
		return fmt.Errorf("move %s to %s: %w", tempFileName, file, err)
	}

	return nil
}

// ReadJson reads JSON config file and maps to a provided interface
func ReadJson(file string, res interface{}) (interface{}, error) {

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bs, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(bs, &res)
	if err != nil {
		return nil, err
	}

	return res, nil
}

// RemoveFile removes the specified file if it exists
func RemoveFile(file string) error {
	if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove file %s: %w", file, err)
	}

	return nil
}

// CopyFileContents copies src into dst, creating or truncating dst, and syncs it to disk
func CopyFileContents(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return
	}
	defer func() {
		cErr := out.Close()
		if err == nil {
			err = cErr
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		return
	}
	err = out.Sync()
	return
}

func prepareConfigFileDir(file string) (string, string, error) {
	configDir, configFileName := filepath.Split(file)
	if configDir == "" {
		return filepath.Dir(file), configFileName, nil
	}

	err := os.MkdirAll(configDir, 0o750)
	if err != nil {
		return "", "", err
	}

	return configDir, configFileName, err
}
