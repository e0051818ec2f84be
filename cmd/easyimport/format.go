package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/easyimport/internal/ui"
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Describe the outline file format",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		noPager, _ := cmd.Flags().GetBool("no-pager")
		if err := ui.ToPager(ui.RenderMarkdown(ui.FormatGuide()), ui.PagerOptions{NoPager: noPager}); err != nil {
			FatalError("%v", err)
		}
	},
}

func init() {
	formatCmd.Flags().Bool("no-pager", false, "Print directly instead of using a pager")
	rootCmd.AddCommand(formatCmd)
}
