package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/database"
	"github.com/AlexandrinoANP/ANP/internal/integration"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/repository"
	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB 创建迁移好的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

type fixture struct {
	db       *gorm.DB
	orch     *orchestrator.Orchestrator
	executor *orchestrator.ManualExecutor
	tasks    service.TaskService
	queries  service.QueryService
	stats    service.StatisticsService
	audit    service.AuditLogService
}

func newFixture(t *testing.T, seed []orchestrator.Task) *fixture {
	db := setupTestDB(t)
	store := integration.NewTaskStore(db, nil)
	loaded, err := store.LoadOrSeed(context.Background(), seed)
	require.NoError(t, err)

	executor := orchestrator.NewManualExecutor()
	orch, err := orchestrator.New(executor, orchestrator.WithSeed(loaded), orchestrator.WithStore(store))
	require.NoError(t, err)

	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	return &fixture{
		db:       db,
		orch:     orch,
		executor: executor,
		tasks:    service.NewTaskService(orch, audit, nil),
		queries: service.NewQueryService(orch,
			repository.NewStateHistoryRepository(db),
			repository.NewEventRepository(db)),
		stats: service.NewStatisticsService(db),
		audit: audit,
	}
}

// TestTaskService_Submit 测试提交命令并记录审计日志
func TestTaskService_Submit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := service.WithRequestInfo(context.Background(), service.RequestInfo{
		RequestID: "req-1", IP: "10.0.0.1", UserAgent: "test",
	})

	resp, err := f.tasks.Submit(ctx, &service.SubmitCommandRequest{Command: "Criar post sobre IA para Instagram"})
	require.NoError(t, err)
	assert.Equal(t, resp.TaskID, resp.Task.ID)
	assert.Equal(t, orchestrator.CategorySocial, resp.Task.Category)
	assert.Equal(t, orchestrator.StatusProcessing, resp.Task.Status)

	logs, err := f.audit.Recent(10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, service.AuditActionSubmit, logs[0].Action)
	assert.Equal(t, service.ActorAPI, logs[0].Actor)
	assert.Equal(t, resp.TaskID, logs[0].ResourceID)
	assert.Equal(t, "req-1", logs[0].RequestID)
	assert.Equal(t, "10.0.0.1", logs[0].IP)
}

// TestTaskService_SubmitRejected 测试被拒绝的提交
func TestTaskService_SubmitRejected(t *testing.T) {
	f := newFixture(t, nil)
	ctx := service.WithRequestInfo(context.Background(), service.RequestInfo{Actor: service.ActorCLI})

	_, err := f.tasks.Submit(ctx, &service.SubmitCommandRequest{Command: "   "})
	assert.ErrorIs(t, err, orchestrator.ErrEmptyCommand)

	_, err = f.tasks.Submit(ctx, &service.SubmitCommandRequest{Command: "Agendar reunião"})
	require.NoError(t, err)
	_, err = f.tasks.Submit(ctx, &service.SubmitCommandRequest{Command: "Enviar email"})
	assert.ErrorIs(t, err, orchestrator.ErrBusy)

	logs, err := f.audit.Recent(10)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	actions := map[string]int{}
	for _, l := range logs {
		actions[l.Action]++
		assert.Equal(t, service.ActorCLI, l.Actor)
	}
	assert.Equal(t, 2, actions[service.AuditActionReject])
	assert.Equal(t, 1, actions[service.AuditActionSubmit])
	assert.Equal(t, 1, f.orch.Len())
}

// TestRejectReason 测试拒绝原因映射
func TestRejectReason(t *testing.T) {
	assert.Equal(t, "empty", service.RejectReason(orchestrator.ErrEmptyCommand))
	assert.Equal(t, "busy", service.RejectReason(orchestrator.ErrBusy))
	assert.Equal(t, "too_long", service.RejectReason(orchestrator.ErrCommandTooLong))
	assert.Equal(t, "other", service.RejectReason(context.Canceled))
}

// TestTaskService_SubmitAndWait 测试提交并等待完成
func TestTaskService_SubmitAndWait(t *testing.T) {
	f := newFixture(t, nil)

	done := make(chan *orchestrator.Task, 1)
	go func() {
		task, err := f.tasks.SubmitAndWait(context.Background(), &service.SubmitCommandRequest{Command: "Adicionar lead no CRM"})
		assert.NoError(t, err)
		done <- task
	}()

	require.Eventually(t, func() bool { return f.executor.Pending() == 1 }, time.Second, 5*time.Millisecond)
	f.executor.CompleteNext(nil)

	select {
	case task := <-done:
		require.NotNil(t, task)
		assert.Equal(t, orchestrator.StatusCompleted, task.Status)
		assert.Equal(t, orchestrator.CategoryCRM, task.Category)
	case <-time.After(2 * time.Second):
		t.Fatal("SubmitAndWait did not return")
	}
}

// TestTaskService_SubmitAndWaitImmediate 测试同步完成的执行器
func TestTaskService_SubmitAndWaitImmediate(t *testing.T) {
	orch, err := orchestrator.New(orchestrator.ImmediateExecutor{})
	require.NoError(t, err)
	svc := service.NewTaskService(orch, nil, nil)

	task, err := svc.SubmitAndWait(context.Background(), &service.SubmitCommandRequest{Command: "Gerar conteúdo"})
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusCompleted, task.Status)
}

// TestTaskService_SubmitAndWaitCanceled 测试等待被取消
func TestTaskService_SubmitAndWaitCanceled(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.tasks.SubmitAndWait(ctx, &service.SubmitCommandRequest{Command: "Agendar meeting"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, f.orch.Busy())
}

// TestTaskService_Status 测试编排器状态
func TestTaskService_Status(t *testing.T) {
	f := newFixture(t, orchestrator.DefaultSeed(time.Now()))

	status := f.tasks.Status()
	assert.False(t, status.Busy)
	assert.Equal(t, 3, status.Total)
	assert.Equal(t, 1, status.ByStatus["processing"])
	assert.Equal(t, 2, status.ByStatus["completed"])

	resp, err := f.tasks.Submit(context.Background(), &service.SubmitCommandRequest{Command: "Publicar story"})
	require.NoError(t, err)
	status = f.tasks.Status()
	assert.True(t, status.Busy)
	assert.Equal(t, resp.TaskID, status.InFlightTaskID)
	assert.Equal(t, 4, status.Total)

	_, err = f.tasks.Get("missing")
	assert.ErrorIs(t, err, orchestrator.ErrTaskNotFound)
}

// TestQueryService_ListTasks 测试过滤与分页
func TestQueryService_ListTasks(t *testing.T) {
	f := newFixture(t, orchestrator.DefaultSeed(time.Now()))

	all, total, err := f.queries.ListTasks(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "seed-3", all[0].ID)

	completed := orchestrator.StatusCompleted
	tasks, total, err := f.queries.ListTasks(&service.ListTasksFilter{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "seed-1", tasks[0].ID)

	social := orchestrator.CategorySocial
	tasks, total, err = f.queries.ListTasks(&service.ListTasksFilter{Category: &social})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, tasks, 1)

	page, total, err := f.queries.ListTasks(&service.ListTasksFilter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "seed-2", page[0].ID)

	empty, _, err := f.queries.ListTasks(&service.ListTasksFilter{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// TestQueryService_GetHistory 测试状态历史查询
func TestQueryService_GetHistory(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.tasks.Submit(context.Background(), &service.SubmitCommandRequest{Command: "Enviar relatório por email"})
	require.NoError(t, err)
	f.executor.CompleteNext(nil)

	histories, err := f.queries.GetHistory(resp.TaskID)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, "processing", histories[0].ToState)
	assert.Equal(t, "completed", histories[1].ToState)

	_, err = f.queries.GetHistory("missing")
	assert.ErrorIs(t, err, orchestrator.ErrTaskNotFound)

	events, err := f.queries.GetEvents(resp.TaskID)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestStatisticsService 测试统计
func TestStatisticsService(t *testing.T) {
	f := newFixture(t, orchestrator.DefaultSeed(time.Now()))

	_, err := f.tasks.Submit(context.Background(), &service.SubmitCommandRequest{Command: "Adicionar contato"})
	require.NoError(t, err)
	f.executor.CompleteNext(assert.AnError)

	summary, err := f.stats.GetSummary()
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.Total)

	byState := map[string]int64{}
	for _, s := range summary.ByState {
		byState[s.State] = s.Count
	}
	assert.Equal(t, int64(2), byState["completed"])
	assert.Equal(t, int64(1), byState["error"])
	assert.Equal(t, int64(1), byState["processing"])
	assert.InDelta(t, 66.67, summary.SuccessRate, 0.01)

	byCategory := map[string]int64{}
	for _, c := range summary.ByCategory {
		byCategory[c.Category] = c.Count
	}
	assert.Equal(t, int64(1), byCategory["crm"])
	assert.NotEmpty(t, summary.ByDate)
}
