package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatcore/internal/model"
)

func init() {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Create, list and manage chats",
	}

	newCmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Create an empty chat",
		Run:   runChatNew,
	}
	newCmd.Flags().String("context", "", "Comma-separated context ids to attach")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List chats, most recently active first",
		Run:   runChatList,
	}
	listCmd.Flags().StringP("tags", "t", "", "Only chats carrying all of these tags (comma-separated)")
	listCmd.Flags().BoolP("all", "a", false, "Include archived chats")

	renameCmd := &cobra.Command{
		Use:   "rename [chat-id] [title]",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		Run:   runChatRename,
	}

	archiveCmd := &cobra.Command{
		Use:   "archive [chat-id]",
		Short: "Archive a chat",
		Args:  cobra.ExactArgs(1),
		Run:   runChatArchive,
	}
	archiveCmd.Flags().Bool("undo", false, "Unarchive instead")

	rmCmd := &cobra.Command{
		Use:   "rm [chat-id]",
		Short: "Delete a chat and its messages",
		Args:  cobra.ExactArgs(1),
		Run:   runChatRm,
	}

	chatCmd.AddCommand(newCmd, listCmd, renameCmd, archiveCmd, rmCmd)
	RootCmd.AddCommand(chatCmd)
}

func runChatNew(cmd *cobra.Command, args []string) {
	ctxFlag, _ := cmd.Flags().GetString("context")

	a := mustOpen(cmd)
	defer a.Close()

	contextIDs := splitList(ctxFlag)
	if len(contextIDs) > 0 {
		found, err := a.store.Contexts(cmd.Context(), contextIDs)
		if err != nil {
			a.fail("load contexts", err)
		}
		if len(found) != len(contextIDs) {
			a.fail("chat new", fmt.Errorf("unknown context id in %q", ctxFlag))
		}
	}

	c := a.tl.CreateChat(strings.Join(args, " "), contextIDs)
	printJSON(c)
}

func runChatList(cmd *cobra.Command, args []string) {
	tags, _ := cmd.Flags().GetString("tags")
	all, _ := cmd.Flags().GetBool("all")

	a := mustOpen(cmd)
	defer a.Close()

	var chats []model.Chat
	if all {
		chats = a.tl.Chats()
	} else {
		a.tl.SetFilter(splitList(tags))
		chats = a.tl.FilteredChats()
	}

	if textOutput() {
		for _, c := range chats {
			flags := ""
			if c.IsArchived {
				flags += " [archived]"
			}
			if c.UnreadCount > 0 {
				flags += fmt.Sprintf(" (%d unread)", c.UnreadCount)
			}
			fmt.Printf("%s  %s%s\n", c.ID, c.Title, flags)
		}
		return
	}
	printJSON(chats)
}

func runChatRename(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.tl.RenameChat(args[0], strings.Join(args[1:], " ")); err != nil {
		a.fail("rename", err)
	}
	c, _ := a.tl.Chat(args[0])
	printJSON(c)
}

func runChatArchive(cmd *cobra.Command, args []string) {
	undo, _ := cmd.Flags().GetBool("undo")

	a := mustOpen(cmd)
	defer a.Close()

	if err := a.tl.ArchiveChat(args[0], !undo); err != nil {
		a.fail("archive", err)
	}
	c, _ := a.tl.Chat(args[0])
	printJSON(c)
}

func runChatRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	o, err := a.tl.DeleteChat(args[0])
	if err != nil {
		a.fail("rm", err)
	}
	if err := o.Wait(cmd.Context()); err != nil {
		a.fail("rm", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}

// activate loads a chat's history or exits.
func activate(ctx context.Context, a *app, chatID string) {
	if err := a.tl.Activate(ctx, chatID); err != nil {
		a.fail("activate", err)
	}
}
