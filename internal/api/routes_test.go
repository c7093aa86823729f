package api_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/api"
	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/container"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixedResult = "Conteúdo gerado e publicado"

type testServer struct {
	router   *gin.Engine
	ctr      *container.Container
	executor *orchestrator.ManualExecutor
}

// setupTestServer 基于内存数据库和手动执行器创建完整路由
func setupTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = ":memory:"
	cfg.Orchestrator.EventWorkers = 1
	cfg.RateLimit.Enabled = false

	executor := orchestrator.NewManualExecutor()
	ctr, err := container.NewContainer(cfg, nil,
		container.WithExecutor(executor),
		container.WithResultPicker(orchestrator.FixedPicker(fixedResult)))
	require.NoError(t, err)
	t.Cleanup(func() { ctr.Close() })

	return &testServer{
		router:   api.SetupRoutes(cfg, ctr),
		ctr:      ctr,
		executor: executor,
	}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var resp struct {
		Code int             `json:"code"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	assert.Equal(t, 0, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

type taskBody struct {
	ID          string `json:"id"`
	Command     string `json:"command"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Result      string `json:"result"`
	StatusLabel string `json:"status_label"`
}

// TestSubmitCommand 测试提交命令到完成的完整流程
func TestSubmitCommand(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/commands", gin.H{"command": "  Criar post sobre IA para Instagram  "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var submitted struct {
		TaskID string   `json:"task_id"`
		Task   taskBody `json:"task"`
	}
	decodeData(t, w, &submitted)
	require.NotEmpty(t, submitted.TaskID)
	assert.Equal(t, "Criar post sobre IA para Instagram", submitted.Task.Command)
	assert.Equal(t, "social", submitted.Task.Category)
	assert.Equal(t, "processing", submitted.Task.Status)
	assert.Equal(t, "Processando", submitted.Task.StatusLabel)
	assert.Empty(t, submitted.Task.Result)

	// 执行中再次提交被拒绝
	w = s.do(http.MethodPost, "/api/v1/commands", gin.H{"command": "Agendar reunião"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/api/v1/orchestrator/status", nil)
	var status struct {
		Busy           bool   `json:"busy"`
		InFlightTaskID string `json:"in_flight_task_id"`
		Total          int    `json:"total"`
	}
	decodeData(t, w, &status)
	assert.True(t, status.Busy)
	assert.Equal(t, submitted.TaskID, status.InFlightTaskID)
	assert.Equal(t, 4, status.Total)

	require.True(t, s.executor.CompleteNext(nil))

	w = s.do(http.MethodGet, "/api/v1/tasks/"+submitted.TaskID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var task taskBody
	decodeData(t, w, &task)
	assert.Equal(t, "completed", task.Status)
	assert.Equal(t, fixedResult, task.Result)
	assert.Equal(t, "Concluído", task.StatusLabel)

	w = s.do(http.MethodGet, "/api/v1/tasks/"+submitted.TaskID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history []struct {
		FromState string `json:"from_state"`
		ToState   string `json:"to_state"`
	}
	decodeData(t, w, &history)
	require.Len(t, history, 2)
	assert.Equal(t, "processing", history[0].ToState)
	assert.Equal(t, "processing", history[1].FromState)
	assert.Equal(t, "completed", history[1].ToState)

	w = s.do(http.MethodGet, "/api/v1/tasks/"+submitted.TaskID+"/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []struct {
		Type string `json:"type"`
	}
	decodeData(t, w, &events)
	assert.Len(t, events, 2)

	// 完成后可以再次提交
	w = s.do(http.MethodPost, "/api/v1/commands", gin.H{"command": "Agendar reunião"})
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestSubmitCommand_Invalid 测试非法命令
func TestSubmitCommand_Invalid(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"empty", gin.H{"command": ""}, http.StatusBadRequest},
		{"whitespace", gin.H{"command": "   \n\t"}, http.StatusBadRequest},
		{"malformed", "not-an-object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/commands", tt.body)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	// 拒绝不改变历史
	assert.Equal(t, 3, s.ctr.Orchestrator().Len())
	assert.False(t, s.ctr.Orchestrator().Busy())
}

// TestSubmitCommand_EnglishMessage 测试错误消息本地化
func TestSubmitCommand_EnglishMessage(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodPost, "/api/v1/commands?lang=en", gin.H{"command": " "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Command cannot be empty", resp.Message)
}

// TestGetTask_Errors 测试任务不存在和 ID 非法
func TestGetTask_Errors(t *testing.T) {
	s := setupTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/tasks/unknown", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/tasks/bad%20id", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/tasks/unknown/history", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/tasks/unknown/events", nil).Code)
}

// TestListTasks 测试任务列表过滤与分页
func TestListTasks(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodGet, "/api/v1/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Data       []taskBody         `json:"data"`
		Pagination api.PaginationInfo `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 3)
	// 新到旧
	assert.Equal(t, "seed-3", page.Data[0].ID)
	assert.Equal(t, "seed-2", page.Data[2].ID)
	assert.Equal(t, int64(3), page.Pagination.Total)

	w = s.do(http.MethodGet, "/api/v1/tasks?status=completed&page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "seed-1", page.Data[0].ID)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPage)

	w = s.do(http.MethodGet, "/api/v1/tasks?category=calendar", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, "Processando", page.Data[0].StatusLabel)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/tasks?status=unknown", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/tasks?category=unknown", nil).Code)
}

// TestDashboardEndpoints 测试快捷命令、集成状态和统计
func TestDashboardEndpoints(t *testing.T) {
	s := setupTestServer(t)

	var suggestions []string
	decodeData(t, s.do(http.MethodGet, "/api/v1/commands/suggestions", nil), &suggestions)
	assert.Equal(t, orchestrator.QuickCommands, suggestions)

	var integrations []api.Integration
	decodeData(t, s.do(http.MethodGet, "/api/v1/integrations", nil), &integrations)
	require.Len(t, integrations, 4)
	assert.Equal(t, "OpenAI GPT", integrations[0].Name)
	assert.True(t, integrations[0].Connected)
	assert.Equal(t, "Conectado", integrations[0].StatusLabel)
	assert.Equal(t, "Google Calendar", integrations[3].Name)
	assert.False(t, integrations[3].Connected)

	var stats struct {
		Total   int64 `json:"total"`
		ByState []struct {
			State string `json:"state"`
			Count int64  `json:"count"`
		} `json:"by_state"`
	}
	decodeData(t, s.do(http.MethodGet, "/api/v1/statistics", nil), &stats)
	assert.Equal(t, int64(3), stats.Total)
	assert.NotEmpty(t, stats.ByState)
}

// TestHealthAndMetrics 测试健康检查和指标端点
func TestHealthAndMetrics(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, false, health["busy"])

	s.do(http.MethodGet, "/api/v1/tasks", nil)
	w = s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api_requests_total")
}

// TestSSE_StreamsTaskEvents 测试 SSE 推送任务事件
func TestSSE_StreamsTaskEvents(t *testing.T) {
	s := setupTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	resp, err := http.Get(server.URL + "/sse/tasks")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
				lines <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(lines)
	}()

	next := func() map[string]interface{} {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed")
			var msg map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(line), &msg))
			return msg
		case <-time.After(3 * time.Second):
			t.Fatal("no sse message")
			return nil
		}
	}

	assert.Equal(t, "connected", next()["type"])

	w := s.do(http.MethodPost, "/api/v1/commands", gin.H{"command": "Adicionar lead no CRM"})
	require.Equal(t, http.StatusOK, w.Code)
	created := next()
	assert.Equal(t, string(orchestrator.EventTaskCreated), created["type"])

	require.True(t, s.executor.CompleteNext(nil))
	completed := next()
	assert.Equal(t, string(orchestrator.EventTaskCompleted), completed["type"])
	assert.Equal(t, created["task_id"], completed["task_id"])
}
