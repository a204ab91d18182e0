// Package cli implements the chatcore CLI commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/chatcore/internal/config"
	"github.com/rcliao/chatcore/internal/ids"
	"github.com/rcliao/chatcore/internal/logging"
	"github.com/rcliao/chatcore/internal/orchestrator"
	"github.com/rcliao/chatcore/internal/persist"
	"github.com/rcliao/chatcore/internal/responder"
	"github.com/rcliao/chatcore/internal/store"
	"github.com/rcliao/chatcore/internal/timeline"
)

var (
	dbPath     string
	configPath string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "chatcore",
	Short: "Chat timelines with an AI responder",
	Long:  "Keeps per-chat message timelines in SQLite, sends turns to an AI responder and records its thinking.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $CHATCORE_DB or ~/.chatcore/chatcore.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.chatcore/config.toml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// app is everything one command invocation needs, wired from config.
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	store  *store.SQLiteStore
	writer *persist.Writer
	ids    ids.Generator
	tl     *timeline.Timeline

	closeOnce sync.Once
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Storage.DBPath = dbPath
	}

	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	s, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	w := persist.NewWriter(s, log, persist.WriterOptions{QueueSize: cfg.Timeline.WriteQueue})
	gen := ids.NewULID()
	a := &app{cfg: cfg, log: log, store: s, writer: w, ids: gen, tl: timeline.New(w, gen, log)}
	if err := a.tl.Load(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// mustOpen opens the app or exits.
func mustOpen(cmd *cobra.Command) *app {
	a, err := openApp(cmd.Context())
	if err != nil {
		exitErr("open", err)
	}
	return a
}

// Close drains pending writes before closing the database. Safe to call
// more than once.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		a.writer.Close()
		if err := a.store.Close(); err != nil {
			a.log.Warn("close store", "error", err)
		}
		a.log.Sync()
	})
}

// fail reports err and exits once queued writes have reached storage;
// os.Exit would otherwise skip the deferred Close.
func (a *app) fail(msg string, err error) {
	a.Close()
	exitErr(msg, err)
}

func (a *app) newOrchestrator() (*orchestrator.Orchestrator, error) {
	policy, err := orchestrator.ParseOrphanPolicy(a.cfg.Timeline.OrphanPolicy)
	if err != nil {
		return nil, err
	}
	r := responder.NewHTTPResponder(responder.HTTPOptions{
		URL:               a.cfg.Responder.URL,
		APIKey:            a.cfg.Responder.APIKey,
		Timeout:           time.Duration(a.cfg.Responder.TimeoutSecs) * time.Second,
		RequestsPerMinute: a.cfg.Responder.RequestsPerMinute,
	}, a.log)
	return orchestrator.New(a.tl, a.writer, r, a.log, orchestrator.Options{OrphanPolicy: policy}), nil
}

var osExit = os.Exit

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	osExit(1)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func textOutput() bool {
	return formatFlag == "text"
}

// readContent takes content from args, or from stdin when it is piped.
func readContent(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
