package check

import (
	"github.com/spf13/cobra"
)

func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "commands to check a session archive",
	}

	cmd.AddCommand(NewCheckLapsCmd())
	cmd.AddCommand(NewCheckFramesCmd())

	return cmd
}
