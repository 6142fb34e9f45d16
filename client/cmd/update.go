package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const yesFlag = "yes"

var (
	assumeYes bool

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "downloads and installs a newer release, then restarts the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := setupApplication(cmd)
			if err != nil {
				return err
			}

			// on success the process ends inside Run
			return app.manager.Run(cmd.Context(), newPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout(), assumeYes))
		},
	}
)

// promptConfirmer asks on the terminal
type promptConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newPromptConfirmer(in io.Reader, out io.Writer, assumeYes bool) *promptConfirmer {
	return &promptConfirmer{
		in:        bufio.NewReader(in),
		out:       out,
		assumeYes: assumeYes,
	}
}

func (p *promptConfirmer) Confirm(title, message string) bool {
	_, _ = fmt.Fprintf(p.out, "%s\n\n%s [y/N] ", title, message)
	if p.assumeYes {
		_, _ = fmt.Fprintln(p.out, "y")
		return true
	}

	answer, err := p.in.ReadString('\n')
	if err != nil && answer == "" {
		_, _ = fmt.Fprintln(p.out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
