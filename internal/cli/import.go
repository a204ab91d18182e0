package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatcore/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import chats from JSON",
		Long:  "Import chats from JSON on stdin. Expects the format produced by export.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	var e store.Export
	if err := json.Unmarshal(data, &e); err != nil {
		exitErr("parse json", err)
	}

	a := mustOpen(cmd)
	defer a.Close()

	imported, err := a.store.Import(cmd.Context(), &e)
	if err != nil {
		a.fail("import", err)
	}

	fmt.Printf(`{"ok":true,"chats":%d,"messages":%d}`+"\n", len(e.Chats), imported)
}
