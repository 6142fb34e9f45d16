package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voiceassistant/assistant/client/internal"
	"github.com/voiceassistant/assistant/client/internal/startup"
	"github.com/voiceassistant/assistant/client/internal/updatemanager"
	"github.com/voiceassistant/assistant/client/internal/updatemanager/installer"
	"github.com/voiceassistant/assistant/util"
	"github.com/voiceassistant/assistant/version"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
	logFileFlag  = "log-file"

	defaultConfigFile = "config.json"
	defaultLogFile    = "assistant.log"

	// keepBackupFlag is a flag of the updater, which inherits our environment
	keepBackupFlag = "keep-backup"
)

var (
	configPath string
	logLevel   string
	logFile    string

	rootCmd = &cobra.Command{
		Use:          "assistant",
		Short:        "Voice assistant",
		Long:         "Voice assistant. Without a subcommand it announces finished updates and checks for new releases in the background.",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// assigned here to avoid an initialization cycle through rootCmd
	rootCmd.RunE = runAssistant

	rootCmd.PersistentFlags().StringVarP(&configPath, configFlag, "c", defaultConfigFile, "config file location")
	rootCmd.PersistentFlags().StringVarP(&logLevel, logLevelFlag, "l", "info", "sets the log level")
	rootCmd.PersistentFlags().StringVar(&logFile, logFileFlag, defaultLogFile, "sets the log path. If console is specified the log will be output to stderr")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(versionCmd)

	updateCmd.Flags().BoolVarP(&assumeYes, yesFlag, "y", false, "install a found update without asking")
}

// application bundles what the commands share
type application struct {
	config     *internal.Config
	manager    *updatemanager.UpdateManager
	notifier   updatemanager.Notifier
	workDir    string
	targetPath string
}

func setupApplication(cmd *cobra.Command) (*application, error) {
	util.SetFlagsFromEnvVars(rootCmd)
	util.SetFlagsFromEnvVars(cmd)

	if err := util.InitLog(logLevel, logFile); err != nil {
		return nil, fmt.Errorf("failed initializing log %v", err)
	}

	cfg, err := internal.ReadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	targetPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}

	var inst *installer.Installer
	if cfg.UpdaterPath != "" {
		inst = installer.NewWithUpdater(cfg.UpdaterPath, workDir)
	} else if inst, err = installer.New(workDir); err != nil {
		return nil, err
	}

	if cfg.KeepBackup {
		if err := os.Setenv(util.FlagNameToEnvVar(keepBackupFlag), "true"); err != nil {
			log.Warnf("failed to pass keep backup setting to the updater: %v", err)
		}
	}

	notifier := newConsoleNotifier(cmd.OutOrStdout())
	manager := updatemanager.NewUpdateManager(
		cfg.UpdateManagerConfig(version.AssistantVersion(), targetPath, workDir),
		inst,
		notifier,
	)
	manager.AddPreHandoffHook(func() {
		log.Infof("closing log before handing over to the updater")
		if err := util.CloseLog(); err != nil {
			log.Warnf("failed to close log file: %v", err)
		}
	})
	manager.AddHandoffAbortedHook(func() {
		if err := util.InitLog(logLevel, logFile); err != nil {
			log.Errorf("failed to reopen log file: %v", err)
		}
	})

	return &application{
		config:     cfg,
		manager:    manager,
		notifier:   notifier,
		workDir:    workDir,
		targetPath: targetPath,
	}, nil
}

func runAssistant(cmd *cobra.Command, _ []string) error {
	app, err := setupApplication(cmd)
	if err != nil {
		return err
	}

	log.Infof("starting voice assistant %s", version.AssistantVersion())

	updated, err := startup.ConsumeCompletionFlag(app.workDir, version.AssistantVersion(), app.notifier)
	if err != nil {
		log.Errorf("failed to consume completion flag: %v", err)
	}
	startup.RemoveLeftovers(app.workDir, app.targetPath, updated, app.config.KeepBackup)

	app.manager.SetOnUpdateListener(func(release *updatemanager.Release) {
		app.notifier.Notify("Update Available",
			fmt.Sprintf("Version %s is available. Run \"%s update\" to install it.", release.Version, rootCmd.Name()))
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	SetupCloseHandler(ctx, cancel)

	app.manager.Start(ctx)
	<-ctx.Done()
	app.manager.Stop()

	log.Info("voice assistant stopped")
	return nil
}

// SetupCloseHandler handles SIGTERM signal and exits with success
func SetupCloseHandler(ctx context.Context, cancel context.CancelFunc) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		done := ctx.Done()
		select {
		case <-done:
		case <-termCh:
		}

		log.Info("shutdown signal received")
		cancel()
	}()
}
