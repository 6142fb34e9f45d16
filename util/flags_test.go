package util_test

import (
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/voiceassistant/assistant/util"
)

var _ = Describe("Flags", func() {

	Describe("Environment variable names", func() {
		It("should upper case the flag and replace dashes", func() {
			Expect(util.FlagNameToEnvVar("keep-backup")).To(Equal("VA_KEEP_BACKUP"))
			Expect(util.FlagNameToEnvVar("log-file")).To(Equal("VA_LOG_FILE"))
		})
	})

	Describe("Setting flags from the environment", func() {
		var (
			cmd        *cobra.Command
			keepBackup bool
			logFile    string
		)

		BeforeEach(func() {
			keepBackup = false
			cmd = &cobra.Command{Use: "updater"}
			cmd.PersistentFlags().StringVar(&logFile, "log-file", "updater.log", "")
			cmd.Flags().BoolVar(&keepBackup, "keep-backup", false, "")
		})

		AfterEach(func() {
			Expect(os.Unsetenv("VA_KEEP_BACKUP")).To(Succeed())
			Expect(os.Unsetenv("VA_LOG_FILE")).To(Succeed())
		})

		It("should override persistent and local flags", func() {
			Expect(os.Setenv("VA_KEEP_BACKUP", "true")).To(Succeed())
			Expect(os.Setenv("VA_LOG_FILE", "console")).To(Succeed())

			util.SetFlagsFromEnvVars(cmd)

			Expect(keepBackup).To(BeTrue())
			Expect(logFile).To(Equal("console"))
		})

		It("should keep defaults and ignore invalid values", func() {
			Expect(os.Setenv("VA_KEEP_BACKUP", "maybe")).To(Succeed())

			util.SetFlagsFromEnvVars(cmd)

			Expect(keepBackup).To(BeFalse())
			Expect(logFile).To(Equal("updater.log"))
		})
	})
})
