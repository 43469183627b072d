package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"PORT", "LOG_LEVEL", "LOG_FILE", "SQL_ALLOW_NON_SELECT",
	} {
		t.Setenv(key, "")
	}
	// run from an empty directory so no stray .env is picked up
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data/database.db", cfg.Database.URL)
	assert.True(t, cfg.Database.ReadOnly)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.NotNil(t, cfg.LLM.Seed)
	assert.Equal(t, int64(42), *cfg.LLM.Seed)
	assert.Equal(t, 3, cfg.Agent.MaxIterations)
	assert.Equal(t, 5, cfg.Agent.FewShotK)
	assert.Equal(t, 3, cfg.Agent.TopK)
	assert.Equal(t, "regex", cfg.SQL.Extractor)
	assert.False(t, cfg.SQL.AllowNonSelect)
	assert.Equal(t, "8080", cfg.Server.Port)

	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	assert.NoError(t, cfg.ValidateStore())
}

func TestYAMLThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  url: from-yaml.db
llm:
  api_key: yaml-key
  seed: 7
agent:
  max_iterations: 5
sql:
  extractor: parser
  defaults:
    Client: Nobody
server:
  port: "9000"
`), 0o644))

	t.Setenv("PORT", "9100")
	t.Setenv("SQL_ALLOW_NON_SELECT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-yaml.db", cfg.Database.URL)
	assert.Equal(t, "yaml-key", cfg.LLM.APIKey)
	assert.Equal(t, int64(7), *cfg.LLM.Seed)
	assert.Equal(t, 5, cfg.Agent.MaxIterations)
	assert.Equal(t, "parser", cfg.SQL.Extractor)
	assert.Equal(t, "Nobody", cfg.SQL.Defaults["Client"])
	assert.Equal(t, "9100", cfg.Server.Port)
	assert.True(t, cfg.SQL.AllowNonSelect)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Agent.TopK)
	assert.NoError(t, cfg.Validate())
}

func TestDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("DATABASE_URL=dotenv.db\n"), 0o644))
	// godotenv never overrides variables that are already set
	os.Unsetenv("DATABASE_URL")
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dotenv.db", cfg.Database.URL)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("agent: [oops"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("SQL_ALLOW_NON_SELECT", "maybe")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidateStore(t *testing.T) {
	cfg := Default()
	cfg.SQL.Extractor = "ai"
	assert.Error(t, cfg.ValidateStore())

	cfg = Default()
	cfg.Agent.MaxIterations = 0
	assert.Error(t, cfg.ValidateStore())

	cfg = Default()
	cfg.Database.URL = " "
	assert.Error(t, cfg.ValidateStore())
}
