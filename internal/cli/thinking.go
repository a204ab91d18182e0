package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "thinking [message-id]",
		Short: "Show the thinking record behind an AI message",
		Args:  cobra.ExactArgs(1),
		Run:   runThinking,
	}

	RootCmd.AddCommand(cmd)
}

func runThinking(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	if err := a.tl.Preload(cmd.Context(), nil); err != nil {
		a.fail("load histories", err)
	}
	rec, ok := a.tl.ThinkingFor(args[0])
	if !ok {
		a.fail("thinking", fmt.Errorf("no thinking recorded for message %s", args[0]))
	}

	if !textOutput() {
		printJSON(rec)
		return
	}
	fmt.Printf("confidence: %s\n", rec.ConfidenceLevel)
	for _, x := range rec.Assumptions {
		fmt.Printf("assume   [%s] %s\n", x.Confidence, x.Text)
	}
	for _, x := range rec.Uncertainties {
		fmt.Printf("unsure   [%s] %s\n", x.Priority, x.Question)
	}
	for _, x := range rec.ReasoningChain {
		fmt.Printf("step %d   [%s] %s\n", x.Step, x.Confidence, x.Description)
	}
	for _, x := range rec.SuggestedContexts {
		fmt.Printf("suggest  %s\n", x)
	}
}
