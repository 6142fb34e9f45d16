package cmd

import (
	"github.com/spf13/cobra"

	"github.com/voiceassistant/assistant/version"
)

var (
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "prints the voice assistant version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.AssistantVersion())
		},
	}
)
