package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voiceassistant/assistant/client/internal/updatemanager/updater"
	"github.com/voiceassistant/assistant/util"
	"github.com/voiceassistant/assistant/version"
)

const (
	logLevelFlag       = "log-level"
	logFileFlag        = "log-file"
	keepBackupFlag     = "keep-backup"
	releaseTimeoutFlag = "release-timeout"
	parentTimeoutFlag  = "parent-timeout"

	defaultLogFile = "updater.log"
)

var (
	logLevel       string
	logFile        string
	keepBackup     bool
	releaseTimeout time.Duration
	parentTimeout  time.Duration

	// usageDelay keeps the usage message readable when the updater was
	// started by double click
	usageDelay = 3 * time.Second

	rootCmd = &cobra.Command{
		Use:           "updater <artifact_path> <target_path>",
		Short:         "Replaces the voice assistant executable with a downloaded update and restarts it",
		Args:          validateArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func init() {
	// assigned here to avoid an initialization cycle through rootCmd
	rootCmd.RunE = runUpdate

	rootCmd.PersistentFlags().StringVarP(&logLevel, logLevelFlag, "l", "info", "sets the updater log level")
	rootCmd.PersistentFlags().StringVar(&logFile, logFileFlag, defaultLogFile, "sets the updater log path. If console is specified the log will be output to stderr")
	rootCmd.PersistentFlags().BoolVar(&keepBackup, keepBackupFlag, false, "keep <target>.bak after a successful update")
	rootCmd.PersistentFlags().DurationVar(&releaseTimeout, releaseTimeoutFlag, updater.DefaultReleaseTimeout, "how long to retry taking over a locked executable")
	rootCmd.PersistentFlags().DurationVar(&parentTimeout, parentTimeoutFlag, updater.DefaultParentTimeout, "how long to wait for the application to exit")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})
}

func validateArgs(_ *cobra.Command, args []string) error {
	if len(args) != 2 {
		return &usageError{msg: fmt.Sprintf("expected 2 arguments, got %d", len(args))}
	}
	return nil
}

// execute runs the updater and maps the outcome to the process exit code
func execute(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	var uerr *usageError
	if errors.As(err, &uerr) {
		rootCmd.PrintErrln("Error:", uerr.msg)
		rootCmd.PrintErr(rootCmd.UsageString())
		time.Sleep(usageDelay)
		return updater.ExitUsage
	}

	return updater.ExitCode(err)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	util.SetFlagsFromEnvVars(rootCmd)

	if err := util.InitLog(logLevel, logFile); err != nil {
		return fmt.Errorf("%w: init log: %v", updater.ErrPreDestructive, err)
	}
	defer func() {
		_ = util.CloseLog()
	}()

	log.Infof("updater %s started with %v", version.AssistantVersion(), args)

	session, err := updater.NewSession(args[0], args[1])
	if err != nil {
		log.Errorf("invalid update request: %v", err)
		return fmt.Errorf("%w: %v", updater.ErrPreDestructive, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	setupCloseHandler(ctx, cancel)

	u := updater.New(session, updater.Options{
		KeepBackup:     keepBackup,
		ParentTimeout:  parentTimeout,
		ReleaseTimeout: releaseTimeout,
	})

	err = u.Run(ctx)
	log.Infof("updater finished in state %s with exit code %d", u.State(), updater.ExitCode(err))
	return err
}

// setupCloseHandler cancels the update while it is still safe to do so
func setupCloseHandler(ctx context.Context, cancel context.CancelFunc) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(termCh)
		select {
		case <-ctx.Done():
		case <-termCh:
			log.Info("shutdown signal received")
			cancel()
		}
	}()
}
