package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every chat, message, known tag and context",
		Run:   runClear,
	}
	cmd.Flags().Bool("yes", false, "Confirm")

	RootCmd.AddCommand(cmd)
}

func runClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("refusing to erase all chats without --yes"))
	}

	a := mustOpen(cmd)
	defer a.Close()

	if err := a.tl.ClearAll().Wait(cmd.Context()); err != nil {
		a.fail("clear", err)
	}
	fmt.Println(`{"ok":true}`)
}
