package util

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is prepended to flag names to build their environment variable
const EnvPrefix = "VA_"

// SetFlagsFromEnvVars reads and updates flag values from environment variables with prefix VA_.
// The updater inherits the environment of the application, so a setting
// exported by the application reaches the updater flags as well.
func SetFlagsFromEnvVars(cmd *cobra.Command) {
	setFlags := func(flags *pflag.FlagSet) {
		flags.VisitAll(func(f *pflag.Flag) {
			envName := FlagNameToEnvVar(f.Name)

			value, present := os.LookupEnv(envName)
			if !present {
				return
			}
			if err := flags.Set(f.Name, value); err != nil {
				log.Infof("unable to configure flag %s using variable %s, err: %v", f.Name, envName, err)
			}
		})
	}

	setFlags(cmd.PersistentFlags())
	setFlags(cmd.Flags())
}

// FlagNameToEnvVar converts a flag name to its environment variable,
// e.g. keep-backup -> VA_KEEP_BACKUP
func FlagNameToEnvVar(cmdFlag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(cmdFlag, "-", "_"))
}
