package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoadConfigFromFile 测试从配置文件加载配置
func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
database:
  driver: "sqlite"
  path: "/tmp/anp.db"
orchestrator:
  completion_delay: "1500ms"
  max_command_length: 200
  seed: false
webhooks:
  - url: "http://hooks.local/tasks"
    method: "POST"
    headers:
      X-Token: "abc"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/anp.db", cfg.Database.Path)
	assert.Equal(t, 1500*time.Millisecond, cfg.Orchestrator.CompletionDelay)
	assert.Equal(t, 200, cfg.Orchestrator.MaxCommandLength)
	assert.False(t, cfg.Orchestrator.Seed)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, "http://hooks.local/tasks", cfg.Webhooks[0].URL)
	assert.Len(t, cfg.Webhooks[0].Headers, 1)
}

// TestLoadConfigDefaults 测试默认值
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Orchestrator.CompletionDelay)
	assert.Equal(t, 0, cfg.Orchestrator.MaxCommandLength, "length limit is opt-in")
	assert.True(t, cfg.Orchestrator.Seed)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.False(t, cfg.Tracing.Enabled)
}

// TestLoadConfigFromEnv 测试环境变量覆盖配置
func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_ORCHESTRATOR_COMPLETION_DELAY", "250ms")
	t.Setenv("APP_LOG_LEVEL", "error")

	cfg, err := config.Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Orchestrator.CompletionDelay)
	assert.Equal(t, "error", cfg.Log.Level)
}

// TestLoadConfigInvalid 测试非法配置
func TestLoadConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown driver":  "database:\n  driver: mysql\n",
		"negative delay":  "orchestrator:\n  completion_delay: -1s\n",
		"bad port":        "server:\n  port: 70000\n",
		"webhook no url":  "webhooks:\n  - method: POST\n",
		"postgres no db":  "database:\n  driver: postgres\n  dbname: \"\"\n",
		"negative length": "orchestrator:\n  max_command_length: -5\n",
		"bad sql log":     "database:\n  log_level: verbose\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

// TestLoadConfigMissingFile 测试指定的配置文件不存在
func TestLoadConfigMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestIsProduction 测试环境判断
func TestIsProduction(t *testing.T) {
	assert.False(t, config.IsProduction(nil))
	assert.True(t, config.IsProduction(&config.Config{Env: "production"}))
	assert.False(t, config.IsProduction(config.Default()))
}

// TestConfigWatcher 测试配置文件变更回调
func TestConfigWatcher(t *testing.T) {
	path := writeConfig(t, "orchestrator:\n  completion_delay: 3s\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)

	watcher := config.NewConfigWatcher(cfg, path, nil)
	var (
		mu      sync.Mutex
		updated *config.Config
	)
	watcher.OnConfigChange(func(c *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		updated = c
	})
	require.NoError(t, watcher.Start())
	defer watcher.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("orchestrator:\n  completion_delay: 1s\n"), 0644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return updated != nil && updated.Orchestrator.CompletionDelay == time.Second
	}, 3*time.Second, 50*time.Millisecond)
	assert.Eventually(t, func() bool {
		return watcher.GetConfig().Orchestrator.CompletionDelay == time.Second
	}, time.Second, 20*time.Millisecond)
}
