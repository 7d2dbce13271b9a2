package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dyluth/koorda/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `version: "1.0"
koordinator:
  base_url: "http://koordinator.local:8080/"
  workspace: "BusinessAnalysts"
  namespace: "POPUP_USER"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "koorda.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	config, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	k := config.Koordinator
	assert.Equal(t, "http://koordinator.local:8080/pollingservice", k.Polling)
	assert.Equal(t, "http://koordinator.local:8080/workflowsservice", k.Workflows)
	assert.Equal(t, "http://koordinator.local:8080/monitoringservice", k.Monitoring)
	assert.Equal(t, "http://koordinator.local:8080/taskstatusservice", k.TaskStatus)
	assert.Equal(t, "http://koordinator.local:8080/bot", k.Bot)
	assert.Equal(t, 10*time.Second, k.Timeout)

	assert.Equal(t, 500*time.Millisecond, config.Bridge.PollInterval)
	assert.Equal(t, 7*time.Second, config.Bridge.ReplyTimeout)
	assert.Equal(t, []string{"text"}, config.Bridge.AcceptedTypes)
	assert.Equal(t, "alexa_sessionId", config.Bridge.CorrelationAttribute)

	assert.Equal(t, StoreRedis, config.Store.Backend)
	assert.Equal(t, "redis://localhost:6379/0", config.Store.RedisURL)
	assert.Equal(t, "default", config.Store.Instance)
	assert.Equal(t, snapshot.DefaultTTL, config.Store.TTL)

	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.False(t, config.Launch.AwaitConfirmation)
}

func TestLoad_FullConfig(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"
koordinator:
  polling_url: "http://polling:7000"
  workflows_url: "http://workflows:7060"
  monitoring_url: "http://monitoring:8079"
  task_status_url: "http://taskstatus:9999"
  bot_url: "http://bot:9009"
  workspace: "Ops"
  namespace: "OPS_USER"
  timeout: 3s
bridge:
  poll_interval: 250ms
  reply_timeout: 5s
  feed_limit: 20
  accepted_types: ["text", "card"]
store:
  backend: file
  dir: "/var/lib/koorda"
  ttl: 10m
server:
  addr: "127.0.0.1:9090"
logging:
  level: debug
  format: console
launch:
  await_confirmation: true
resolver:
  plausibility_slack: 2
timezone: "Europe/Paris"
`))
	require.NoError(t, err)

	assert.Equal(t, "http://polling:7000", config.Koordinator.Polling)
	assert.Equal(t, 3*time.Second, config.Koordinator.Timeout)
	assert.Equal(t, 250*time.Millisecond, config.Bridge.PollInterval)
	assert.Equal(t, []string{"text", "card"}, config.Bridge.AcceptedTypes)
	assert.Equal(t, StoreFile, config.Store.Backend)
	assert.Equal(t, "/var/lib/koorda", config.Store.Dir)
	assert.Equal(t, 10*time.Minute, config.Store.TTL)
	assert.True(t, config.Launch.AwaitConfirmation)
	assert.Equal(t, 2, config.Resolver.PlausibilitySlack)

	loc, err := config.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())

	opts := config.ClientOptions()
	assert.Equal(t, "http://bot:9009", opts.Endpoints.Bot)
	assert.Equal(t, "Ops", opts.Workspace)
	assert.Equal(t, 20, opts.FeedLimit)

	logCfg := config.LogConfig()
	assert.Equal(t, "console", logCfg.Format)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("KOORDA_KOORDINATOR_WORKSPACE", "FromEnv")
	t.Setenv("KOORDA_BRIDGE_REPLY_TIMEOUT", "2s")
	t.Setenv("KOORDA_BRIDGE_ACCEPTED_TYPES", "text,notification")
	t.Setenv("KOORDA_REDIS_URL", "redis://cache:6380/2")
	t.Setenv("KOORDA_LAUNCH_AWAIT_CONFIRMATION", "true")

	config, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "FromEnv", config.Koordinator.Workspace)
	assert.Equal(t, 2*time.Second, config.Bridge.ReplyTimeout)
	assert.Equal(t, []string{"text", "notification"}, config.Bridge.AcceptedTypes)
	assert.True(t, config.Launch.AwaitConfirmation)

	opts, err := config.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	t.Setenv("KOORDA_KOORDINATOR_BASE_URL", "http://koordinator:8080")
	t.Setenv("KOORDA_KOORDINATOR_WORKSPACE", "BusinessAnalysts")
	t.Setenv("KOORDA_KOORDINATOR_NAMESPACE", "POPUP_USER")

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "http://koordinator:8080/monitoringservice", config.Koordinator.Monitoring)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/koorda.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"
koordinator:
  - this is invalid
    yaml syntax
`))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate_Errors(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Koordinator: KoordinatorConfig{
				BaseURL:   "http://koordinator:8080",
				Workspace: "BusinessAnalysts",
				Namespace: "POPUP_USER",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unsupported version",
			mutate:  func(c *Config) { c.Version = "2.0" },
			wantErr: "unsupported version: 2.0",
		},
		{
			name:    "missing workspace",
			mutate:  func(c *Config) { c.Koordinator.Workspace = "" },
			wantErr: "koordinator.workspace: failed 'required'",
		},
		{
			name:    "missing service urls",
			mutate:  func(c *Config) { c.Koordinator.BaseURL = "" },
			wantErr: "koordinator.polling_url: failed 'required'",
		},
		{
			name:    "malformed service url",
			mutate:  func(c *Config) { c.Koordinator.Bot = "not a url" },
			wantErr: "koordinator.bot_url: failed 'url'",
		},
		{
			name:    "unknown store backend",
			mutate:  func(c *Config) { c.Store.Backend = "etcd" },
			wantErr: "store.backend: failed 'oneof=redis file'",
		},
		{
			name:    "negative feed limit",
			mutate:  func(c *Config) { c.Bridge.FeedLimit = -1 },
			wantErr: "bridge.feed_limit: failed 'gte=0'",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr: "Mars/Olympus",
		},
		{
			name:    "bad redis url",
			mutate:  func(c *Config) { c.Store.RedisURL = "http://cache" },
			wantErr: "store.redis_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, valid().Validate())
}

func TestValidate_FileStoreDefaultsDir(t *testing.T) {
	c := &Config{
		Koordinator: KoordinatorConfig{BaseURL: "http://k", Workspace: "w", Namespace: "n"},
		Store:       StoreConfig{Backend: StoreFile},
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, filepath.Join(os.TempDir(), "koorda"), c.Store.Dir)
	assert.Empty(t, c.Store.RedisURL)
}
