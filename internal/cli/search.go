package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search delivered messages by substring",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("chat", "", "Only this chat")
	cmd.Flags().String("role", "", "Only this role: user, ai, system")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	chatID, _ := cmd.Flags().GetString("chat")
	role, _ := cmd.Flags().GetString("role")
	limit, _ := cmd.Flags().GetInt("limit")

	if role != "" && !model.ValidRoles[model.Role(role)] {
		exitErr("search", fmt.Errorf("invalid role %q", role))
	}

	a := mustOpen(cmd)
	defer a.Close()

	msgs, err := a.store.Search(cmd.Context(), store.SearchParams{
		ChatID: chatID,
		Query:  strings.Join(args, " "),
		Role:   model.Role(role),
		Limit:  limit,
	})
	if err != nil {
		a.fail("search", err)
	}

	if textOutput() {
		for _, m := range msgs {
			fmt.Printf("%s %s %-6s %s\n", m.ChatID, m.ID, m.Role, strings.TrimSpace(m.Content))
		}
		return
	}
	printJSON(msgs)
}
