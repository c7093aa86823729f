package cmd_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/AlexandrinoANP/ANP/cmd"
	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig 在临时目录写入使用 SQLite 的配置文件
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "hub.db")
	content := fmt.Sprintf(`
database:
  driver: sqlite
  path: %s
orchestrator:
  completion_delay: 20ms
  seed: true
log:
  level: warn
  output: file
  file: %s
`, dbPath, filepath.Join(dir, "logs", "hub.log"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := cmd.GetRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// TestRootCommand 测试根命令帮助信息
func TestRootCommand(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "hub-anp")
	for _, sub := range []string{"server", "migrate", "submit", "tasks", "console"} {
		assert.Contains(t, out, sub)
	}
}

// TestMigrateCommand 测试迁移创建表
func TestMigrateCommand(t *testing.T) {
	configPath, dbPath := writeConfig(t)

	out, err := run(t, "migrate", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Database migrations completed successfully!")

	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: dbPath})
	require.NoError(t, err)
	defer database.Close(db)
	for _, table := range []string{"tasks", "state_history", "events", "audit_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

// TestSubmitAndTasksCommands 测试一次性提交与历史查询
func TestSubmitAndTasksCommands(t *testing.T) {
	configPath, _ := writeConfig(t)

	out, err := run(t, "submit", "--config", configPath, "Adicionar", "lead", "Maria", "no", "CRM")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "crm")
	assert.Contains(t, out, "Adicionar lead Maria no CRM")
	assert.Contains(t, out, "->")

	out, err = run(t, "tasks", "--config", configPath, "--category", "crm")
	require.NoError(t, err)
	assert.Contains(t, out, "Adicionar lead Maria no CRM")
	assert.Contains(t, out, "1 of 1 tasks")

	out, err = run(t, "tasks", "--config", configPath, "--category", "")
	require.NoError(t, err)
	assert.Contains(t, out, "4 of 4 tasks", "seed plus the submitted task")
}

// TestSubmitCommand_Empty 测试空命令被拒绝
func TestSubmitCommand_Empty(t *testing.T) {
	configPath, _ := writeConfig(t)

	_, err := run(t, "submit", "--config", configPath, "   ")
	assert.Error(t, err)
}

// TestTasksCommand_InvalidStatus 测试非法过滤条件
func TestTasksCommand_InvalidStatus(t *testing.T) {
	configPath, _ := writeConfig(t)

	_, err := run(t, "tasks", "--config", configPath, "--status", "unknown")
	assert.Error(t, err)
}
