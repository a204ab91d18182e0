package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatcore/internal/orchestrator"
)

func init() {
	cmd := &cobra.Command{
		Use:   "send [chat-id] [content]",
		Short: "Send a message and wait for the AI reply",
		Long: "Send a message to a chat and wait for the AI reply. Content can follow the chat id or be piped via stdin.\n" +
			"With --new the chat is created first and every argument is content.",
		Run: runSend,
	}
	cmd.Flags().String("context", "", "Comma-separated context ids to attach to this turn")
	cmd.Flags().Bool("new", false, "Start a new chat")

	RootCmd.AddCommand(cmd)
}

func runSend(cmd *cobra.Command, args []string) {
	ctxFlag, _ := cmd.Flags().GetString("context")
	newChat, _ := cmd.Flags().GetBool("new")

	if !newChat && len(args) == 0 {
		exitErr("send", fmt.Errorf("chat id is required (or use --new)"))
	}

	var chatID string
	if !newChat {
		chatID, args = args[0], args[1:]
	}
	content, err := readContent(args)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(content) == "" {
		exitErr("send", orchestrator.ErrEmptyContent)
	}

	a := mustOpen(cmd)
	defer a.Close()

	contexts, err := a.store.Contexts(cmd.Context(), splitList(ctxFlag))
	if err != nil {
		a.fail("load contexts", err)
	}

	if newChat {
		chatID = a.tl.CreateChat("", nil).ID
	}
	activate(cmd.Context(), a, chatID)

	o, err := a.newOrchestrator()
	if err != nil {
		a.fail("responder", err)
	}
	turn, err := o.Send(cmd.Context(), chatID, content, contexts)
	if err != nil {
		a.fail("send", err)
	}
	if turn.Persisted != nil {
		if err := turn.Persisted.Wait(cmd.Context()); err != nil {
			a.log.Warn("reply not saved", "chat_id", chatID, "message_id", turn.Message.ID, "error", err)
		}
	}

	if textOutput() {
		fmt.Println(strings.TrimSpace(turn.Message.Content))
		return
	}
	printJSON(turn)
}
