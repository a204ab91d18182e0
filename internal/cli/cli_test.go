package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/chatcore/internal/model"
	"github.com/rcliao/chatcore/internal/orchestrator"
)

// useTempApp points the global flags at a fresh database and a config whose
// responder is srv.
func useTempApp(t *testing.T, srv *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("[responder]\nurl = %q\nrequests_per_minute = 0\n\n[timeline]\norphan_policy = \"resurrect\"\n", srv.URL)
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o600))

	prevDB, prevCfg := dbPath, configPath
	dbPath, configPath = filepath.Join(dir, "chat.db"), cfg
	t.Cleanup(func() { dbPath, configPath = prevDB, prevCfg })
}

func TestTurnSurvivesRestart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response": "Hello back", "thinking": {"confidenceLevel": "high",
			"reasoningChain": ["read greeting", "answer"], "suggestedContexts": ["greetings"]}}`))
	}))
	defer srv.Close()
	useTempApp(t, srv)
	ctx := context.Background()

	a, err := openApp(ctx)
	require.NoError(t, err)
	chat := a.tl.CreateChat("", nil)
	require.NoError(t, a.tl.AddTag(chat.ID, "Work"))
	o, err := a.newOrchestrator()
	require.NoError(t, err)
	turn, err := o.Send(ctx, chat.ID, "Hello", nil)
	require.NoError(t, err)
	require.Equal(t, orchestrator.Persisted, turn.State)
	a.Close()

	b, err := openApp(ctx)
	require.NoError(t, err)
	defer b.Close()

	reloaded, ok := b.tl.Chat(chat.ID)
	require.True(t, ok)
	assert.Equal(t, "Hello", reloaded.Title)
	assert.Equal(t, []string{"Work"}, reloaded.Tags)
	assert.Equal(t, []string{"Work"}, b.tl.KnownTags())
	require.NotNil(t, reloaded.LastMessage)
	assert.Equal(t, turn.MessageID, reloaded.LastMessage.ID)

	require.NoError(t, b.tl.Activate(ctx, chat.ID))
	msgs := b.tl.Messages(chat.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.StatusDelivered, msgs[0].Status)
	assert.Equal(t, "Hello back", msgs[1].Content)
	require.NotNil(t, msgs[1].Thinking)
	assert.Equal(t, model.ConfidenceHigh, msgs[1].Thinking.ConfidenceLevel)
	assert.Len(t, msgs[1].Thinking.ReasoningChain, 2)
	assert.Equal(t, []string{"greetings"}, msgs[1].Thinking.SuggestedContexts)

	rec, ok := b.tl.ThinkingFor(turn.MessageID)
	require.True(t, ok)
	assert.Equal(t, 2, rec.ReasoningChain[1].Step)
}

func TestResponderDownFallsBackAndPersists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	useTempApp(t, srv)
	ctx := context.Background()

	a, err := openApp(ctx)
	require.NoError(t, err)
	chat := a.tl.CreateChat("", nil)
	o, err := a.newOrchestrator()
	require.NoError(t, err)
	turn, err := o.Send(ctx, chat.ID, "Hello", nil)
	require.NoError(t, err)
	a.Close()

	b, err := openApp(ctx)
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.tl.Activate(ctx, chat.ID))

	m, ok := b.tl.Find(turn.MessageID)
	require.True(t, ok)
	assert.Equal(t, orchestrator.FallbackContent, m.Content)
	assert.Equal(t, model.ConfidenceLow, m.Thinking.ConfidenceLevel)
}

func TestFailSavesQueuedWritesBeforeExit(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	useTempApp(t, srv)
	ctx := context.Background()

	var codes []int
	prevExit := osExit
	osExit = func(code int) { codes = append(codes, code) }
	t.Cleanup(func() { osExit = prevExit })

	a, err := openApp(ctx)
	require.NoError(t, err)
	chat := a.tl.CreateChat("", nil)
	a.fail("activate", errors.New("boom"))
	a.Close()
	assert.Equal(t, []int{1}, codes)

	b, err := openApp(ctx)
	require.NoError(t, err)
	defer b.Close()
	_, ok := b.tl.Chat(chat.ID)
	assert.True(t, ok, "chat created before the failure was lost")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b,"))
	assert.Nil(t, splitList(""))
}
