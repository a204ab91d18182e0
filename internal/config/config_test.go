package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "drop", cfg.Timeline.OrphanPolicy)
	assert.Equal(t, "chatcore.db", filepath.Base(cfg.Storage.DBPath))
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[storage]
db_path = "/tmp/chats.db"

[responder]
url = "https://ai.example.com/respond"
requests_per_minute = 0

[timeline]
orphan_policy = "resurrect"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/chats.db", cfg.Storage.DBPath)
	assert.Equal(t, "https://ai.example.com/respond", cfg.Responder.URL)
	assert.Equal(t, 0, cfg.Responder.RequestsPerMinute)
	assert.Equal(t, 60, cfg.Responder.TimeoutSecs, "unset keys keep defaults")
	assert.Equal(t, "resurrect", cfg.Timeline.OrphanPolicy)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadMalformed(t *testing.T) {
	_, err := Load(writeConfig(t, "[storage\n"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CHATCORE_DB", "/data/env.db")
	t.Setenv("CHATCORE_API_KEY", "sk-env")
	t.Setenv("CHATCORE_ORPHAN_POLICY", "resurrect")
	t.Setenv("CHATCORE_LOG_MODE", "prod")

	cfg, err := Load(writeConfig(t, "[storage]\ndb_path = \"/data/file.db\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "/data/env.db", cfg.Storage.DBPath)
	assert.Equal(t, "sk-env", cfg.Responder.APIKey)
	assert.Equal(t, "resurrect", cfg.Timeline.OrphanPolicy)
	assert.Equal(t, "prod", cfg.Log.Mode)
}

func TestValidateCollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Responder.URL = "ftp://example.com"
	cfg.Log.Mode = "loud"
	cfg.Timeline.OrphanPolicy = "keep"

	err := cfg.Validate()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := []string{}
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{"responder.url", "log.mode", "timeline.orphan_policy"}, fields)
}
