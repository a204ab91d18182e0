package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatcore/internal/contextdoc"
	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/store"
)

func init() {
	contextCmd := &cobra.Command{
		Use:   "context",
		Short: "Manage reference contexts that can be attached to turns",
	}

	addCmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Store a context",
		Long:  "Store a context. Content can be a positional arg, a --file, or piped via stdin.",
		Run:   runContextAdd,
	}
	addCmd.Flags().String("title", "", "Title (default: file name)")
	addCmd.Flags().String("description", "", "Short description")
	addCmd.Flags().String("type", "note", "Type: note, document, code, ...")
	addCmd.Flags().String("category", "", "Category")
	addCmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	addCmd.Flags().String("file", "", "Read content from a file")
	addCmd.Flags().Bool("split", false, "Split a large markdown document into several contexts")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List contexts",
		Run:   runContextList,
	}
	listCmd.Flags().String("category", "", "Filter by category")
	listCmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated)")
	listCmd.Flags().IntP("limit", "l", 50, "Max results")

	showCmd := &cobra.Command{
		Use:   "show [context-id...]",
		Short: "Show contexts with their content",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContextShow,
	}

	rmCmd := &cobra.Command{
		Use:   "rm [context-id]",
		Short: "Delete a context",
		Args:  cobra.ExactArgs(1),
		Run:   runContextRm,
	}

	contextCmd.AddCommand(addCmd, listCmd, showCmd, rmCmd)
	RootCmd.AddCommand(contextCmd)
}

func runContextAdd(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	typ, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	tagsStr, _ := cmd.Flags().GetString("tags")
	file, _ := cmd.Flags().GetString("file")
	split, _ := cmd.Flags().GetBool("split")

	var content string
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			exitErr("read file", err)
		}
		content = string(b)
		if title == "" {
			title = filepath.Base(file)
		}
	} else {
		var err error
		if content, err = readContent(args); err != nil {
			exitErr("read stdin", err)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("context add", fmt.Errorf("content is required (positional arg, --file or stdin)"))
	}

	a := mustOpen(cmd)
	defer a.Close()

	base := model.Context{
		Title:       title,
		Description: description,
		Type:        typ,
		Tags:        splitList(tagsStr),
		Category:    category,
	}
	var contexts []model.Context
	if split {
		contexts = contextdoc.Contexts(content, base, a.ids, contextdoc.DefaultOptions())
	} else {
		base.ID = a.ids.NewID()
		base.Content = content
		contexts = []model.Context{base}
	}

	for _, c := range contexts {
		if err := a.store.SaveContext(cmd.Context(), c); err != nil {
			a.fail("context add", err)
		}
	}
	printJSON(contexts)
}

func runContextList(cmd *cobra.Command, args []string) {
	category, _ := cmd.Flags().GetString("category")
	tagsStr, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")

	a := mustOpen(cmd)
	defer a.Close()

	contexts, err := a.store.ListContexts(cmd.Context(), store.ContextListParams{
		Category: category,
		Tags:     splitList(tagsStr),
		Limit:    limit,
	})
	if err != nil {
		a.fail("context list", err)
	}

	if textOutput() {
		for _, c := range contexts {
			fmt.Printf("%s  %s  (%s, %d bytes)\n", c.ID, c.Title, c.Type, len(c.Content))
		}
		return
	}
	printJSON(contexts)
}

func runContextShow(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	contexts, err := a.store.Contexts(cmd.Context(), args)
	if err != nil {
		a.fail("context show", err)
	}
	if len(contexts) == 0 {
		a.fail("context show", fmt.Errorf("no context found for %s", strings.Join(args, ", ")))
	}
	printJSON(contexts)
}

func runContextRm(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.store.DeleteContext(cmd.Context(), args[0]); err != nil {
		a.fail("context rm", err)
	}
	fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
}
