package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export chats, messages, tags and contexts as JSON",
		Long:  "Export the database as JSON. Restrict to one chat with --chat.",
		Run:   runExport,
	}

	cmd.Flags().String("chat", "", "Only this chat")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	chatID, _ := cmd.Flags().GetString("chat")

	a := mustOpen(cmd)
	defer a.Close()

	if err := a.writer.Flush(cmd.Context()); err != nil {
		a.fail("flush", err)
	}
	e, err := a.store.ExportAll(cmd.Context(), chatID)
	if err != nil {
		a.fail("export", err)
	}
	printJSON(e)
}
