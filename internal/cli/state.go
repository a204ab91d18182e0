package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Dump the full in-memory view: chats, messages, tags and flags",
		Run:   runState,
	}
	cmd.Flags().StringP("tags", "t", "", "Tag filter to apply (comma-separated)")
	cmd.Flags().String("active", "", "Chat to activate first")

	RootCmd.AddCommand(cmd)
}

func runState(cmd *cobra.Command, args []string) {
	tags, _ := cmd.Flags().GetString("tags")
	active, _ := cmd.Flags().GetString("active")

	a := mustOpen(cmd)
	defer a.Close()

	if err := a.tl.Preload(cmd.Context(), nil); err != nil {
		a.fail("load histories", err)
	}
	if active != "" {
		activate(cmd.Context(), a, active)
	}
	a.tl.SetFilter(splitList(tags))
	printJSON(a.tl.Snapshot())
}
