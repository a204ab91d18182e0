package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	a := mustOpen(cmd)
	defer a.Close()

	stats, err := a.store.Stats(cmd.Context(), a.cfg.Storage.DBPath)
	if err != nil {
		a.fail("stats", err)
	}
	printJSON(stats)
}
