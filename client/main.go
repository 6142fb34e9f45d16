package main

import (
	"os"

	"github.com/voiceassistant/assistant/client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
