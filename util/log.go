package util

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/voiceassistant/assistant/formatter"
)

// ConsoleLog is the log file value that keeps the output on stderr
const ConsoleLog = "console"

var logCloser io.Closer

// InitLog parses and sets log-level input
func InitLog(logLevel string, logPath string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		log.Errorf("Failed parsing log-level %s: %s", logLevel, err)
		return err
	}

	if logPath != "" && logPath != ConsoleLog {
		lumberjackLogger := &lumberjack.Logger{
			// Log file absolute path, os agnostic
			Filename:   filepath.ToSlash(logPath),
			MaxSize:    5, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(io.Writer(lumberjackLogger))
		logCloser = lumberjackLogger
	} else {
		log.SetOutput(os.Stderr)
		logCloser = nil
	}

	formatter.SetTextFormatter(log.StandardLogger())
	log.SetLevel(level)
	return nil
}

// CloseLog releases the log file opened by InitLog. Output falls back to stderr.
// The update handoff calls it so the updater never races a half written log.
func CloseLog() error {
	if logCloser == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logCloser.Close()
	logCloser = nil
	return err
}
