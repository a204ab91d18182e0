package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Tag chats and filter by tag",
	}

	addCmd := &cobra.Command{
		Use:   "add [chat-id] [tag...]",
		Short: "Add tags to a chat",
		Args:  cobra.MinimumNArgs(2),
		Run:   runTagAdd,
	}
	rmCmd := &cobra.Command{
		Use:   "rm [chat-id] [tag...]",
		Short: "Remove tags from a chat",
		Args:  cobra.MinimumNArgs(2),
		Run:   runTagRm,
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every known tag",
		Run:   runTagList,
	}
	filterCmd := &cobra.Command{
		Use:   "filter [tag...]",
		Short: "List non-archived chats carrying all the given tags",
		Run:   runTagFilter,
	}

	tagCmd.AddCommand(addCmd, rmCmd, listCmd, filterCmd)
	RootCmd.AddCommand(tagCmd)
}

func runTagAdd(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	for _, tag := range args[1:] {
		if err := a.tl.AddTag(args[0], tag); err != nil {
			a.fail("tag add", err)
		}
	}
	c, _ := a.tl.Chat(args[0])
	printJSON(c)
}

func runTagRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	for _, tag := range args[1:] {
		if err := a.tl.RemoveTag(args[0], tag); err != nil {
			a.fail("tag rm", err)
		}
	}
	c, _ := a.tl.Chat(args[0])
	printJSON(c)
}

func runTagList(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	tags := a.tl.KnownTags()
	if textOutput() {
		for _, t := range tags {
			fmt.Println(t)
		}
		return
	}
	printJSON(tags)
}

func runTagFilter(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	a.tl.SetFilter(args)
	printJSON(map[string]interface{}{
		"filter": a.tl.Filter(),
		"chats":  a.tl.FilteredChats(),
	})
}
