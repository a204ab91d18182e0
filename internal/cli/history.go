package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatcore/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history [chat-id]",
		Short: "Show a chat's messages and mark it read",
		Args:  cobra.ExactArgs(1),
		Run:   runHistory,
	}
	cmd.Flags().Bool("no-system", false, "Hide system messages")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	noSystem, _ := cmd.Flags().GetBool("no-system")

	a := mustOpen(cmd)
	defer a.Close()

	activate(cmd.Context(), a, args[0])
	msgs := a.tl.Messages(args[0])
	if noSystem {
		kept := msgs[:0]
		for _, m := range msgs {
			if m.Role != model.RoleSystem {
				kept = append(kept, m)
			}
		}
		msgs = kept
	}

	if textOutput() {
		for _, m := range msgs {
			marker := ""
			if m.Thinking != nil {
				marker = fmt.Sprintf(" [thinking: %s]", m.Thinking.ConfidenceLevel)
			}
			fmt.Printf("%s %-6s %s%s\n", m.Timestamp.Format("2006-01-02 15:04"), m.Role, strings.TrimSpace(m.Content), marker)
		}
		return
	}
	printJSON(msgs)
}
