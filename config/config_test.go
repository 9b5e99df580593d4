package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/store"
	"github.com/smallnest/agentdesk/store/badger"
	"github.com/smallnest/agentdesk/store/file"
	"github.com/smallnest/agentdesk/store/memory"
	"github.com/smallnest/agentdesk/store/redis"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "AGENTDESK_MODEL", "AGENTDESK_BASE_URL",
		"AGENTDESK_PROVIDER", "AGENTDESK_ADDR", "AGENTDESK_MODE", "AGENTDESK_LOG_LEVEL", "AGENTDESK_STORE",
		"AGENTDESK_STORE_DIR", "AGENTDESK_STORE_DSN", "AGENTDESK_REDIS_ADDR", "AGENTDESK_REDIS_PASSWORD",
		"AGENTDESK_TEMPERATURE", "AGENTDESK_MAX_ITERATIONS", "AGENTDESK_RECURSION_LIMIT", "AGENTDESK_MAX_CHECKPOINTS",
		"AGENTDESK_RETRIES",
	} {
		t.Setenv(k, "")
	}
}

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, llm.DefaultModel, cfg.LLM.Model)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 10, cfg.Agents.MaxIterations)
	assert.Equal(t, 25, cfg.Agents.RecursionLimit)
	assert.Zero(t, cfg.LLM.Temperature)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "agentdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: 127.0.0.1:9000
llm:
  provider: go-openai
  model: gpt-4o
  temperature: 0.2
store:
  driver: redis
  redis:
    addr: localhost:6379
    ttl: 24h
log:
  level: debug
agents:
  max_iterations: 4
  retries: 2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, llm.ProviderGoOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 24*time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, 4, cfg.Agents.MaxIterations)
	assert.Equal(t, 25, cfg.Agents.RecursionLimit)
	assert.Equal(t, 2, cfg.Agents.Retries)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"OPENAI_API_KEY":           "sk-test",
		"OPENAI_MODEL":             "gpt-4.1-mini",
		"AGENTDESK_MODEL":          "",
		"OPENAI_BASE_URL":          "http://gateway/v1",
		"AGENTDESK_STORE":          DriverSqlite,
		"AGENTDESK_STORE_DSN":      "agentdesk.db",
		"AGENTDESK_TEMPERATURE":    "0.7",
		"AGENTDESK_MAX_ITERATIONS": "3",
		"AGENTDESK_RETRIES":        "1",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLM.Model)
	assert.Equal(t, "http://gateway/v1", cfg.LLM.BaseURL)
	assert.Equal(t, DriverSqlite, cfg.Store.Driver)
	assert.Equal(t, "agentdesk.db", cfg.Store.DSN)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 3, cfg.Agents.MaxIterations)
	assert.Equal(t, 1, cfg.Agents.Retries)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnv_AgentdeskWins(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookupFrom(map[string]string{
		"OPENAI_MODEL":    "a",
		"AGENTDESK_MODEL": "b",
	})))
	assert.Equal(t, "b", cfg.LLM.Model)
}

func TestApplyEnv_InvalidNumbers(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{"AGENTDESK_MAX_ITERATIONS": "many"}))
	assert.ErrorContains(t, err, "AGENTDESK_MAX_ITERATIONS")

	err = cfg.applyEnv(lookupFrom(map[string]string{"AGENTDESK_TEMPERATURE": "hot"}))
	assert.ErrorContains(t, err, "AGENTDESK_TEMPERATURE")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Temperature = 3
	cfg.Store.Driver = DriverPostgres
	cfg.Log.Level = "loud"
	cfg.Agents.MaxIterations = 0
	cfg.Agents.Retries = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"llm.provider", "temperature", "store.dsn", "log level", "max_iterations", "agents.retries"} {
		assert.ErrorContains(t, err, want)
	}

	cfg = Default()
	cfg.Store.Driver = "etcd"
	assert.ErrorContains(t, cfg.Validate(), `unknown store.driver "etcd"`)

	cfg = Default()
	cfg.Server.Addr = ""
	cfg.Server.Mode = "prod"
	cfg.LLM.BaseURL = "not a url"
	cfg.Store.Driver = DriverBadger
	cfg.Store.Dir = ""
	err = cfg.Validate()
	for _, want := range []string{"server.addr is required", "server.mode", "llm.base_url", "store.dir is required for the badger driver"} {
		assert.ErrorContains(t, err, want)
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
export AGENTDESK_DOTENV_A="quoted value"
AGENTDESK_DOTENV_B=plain
AGENTDESK_DOTENV_C=from-file
`), 0o600))
	t.Setenv("AGENTDESK_DOTENV_C", "from-env")
	t.Cleanup(func() {
		os.Unsetenv("AGENTDESK_DOTENV_A")
		os.Unsetenv("AGENTDESK_DOTENV_B")
	})

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "quoted value", os.Getenv("AGENTDESK_DOTENV_A"))
	assert.Equal(t, "plain", os.Getenv("AGENTDESK_DOTENV_B"))
	assert.Equal(t, "from-env", os.Getenv("AGENTDESK_DOTENV_C"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "none")))

	bad := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(bad, []byte("BAD-KEY=1\n"), 0o600))
	assert.ErrorContains(t, LoadDotEnv(bad), bad)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := OpenStore(ctx, StoreConfig{Driver: DriverMemory})
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &memory.MemoryCheckpointStore{}, s)

	s, closeFn, err = OpenStore(ctx, StoreConfig{Driver: DriverFile, Dir: t.TempDir()})
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &file.FileCheckpointStore{}, s)

	s, closeFn, err = OpenStore(ctx, StoreConfig{Driver: DriverBadger, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &badger.BadgerCheckpointStore{}, s)
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "c1", Metadata: map[string]any{store.MetadataExecutionID: "t1"}}))
	closeFn()

	mr := miniredis.RunT(t)
	s, closeFn, err = OpenStore(ctx, StoreConfig{Driver: DriverRedis, Redis: RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	assert.IsType(t, &redis.RedisCheckpointStore{}, s)
	require.NoError(t, s.Save(ctx, &store.Checkpoint{ID: "c1", Metadata: map[string]any{store.MetadataExecutionID: "t1"}}))
	closeFn()

	_, _, err = OpenStore(ctx, StoreConfig{Driver: "etcd"})
	assert.ErrorContains(t, err, "unknown store driver")
}
