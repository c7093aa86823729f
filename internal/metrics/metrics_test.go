package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// TestRecordCommandMetrics 测试命令相关指标
func TestRecordCommandMetrics(t *testing.T) {
	before := testutil.ToFloat64(commandsSubmittedTotal.WithLabelValues("social"))
	RecordCommandSubmitted("social")
	assert.Equal(t, before+1, testutil.ToFloat64(commandsSubmittedTotal.WithLabelValues("social")))

	before = testutil.ToFloat64(commandsRejectedTotal.WithLabelValues("busy"))
	RecordCommandRejected("busy")
	assert.Equal(t, before+1, testutil.ToFloat64(commandsRejectedTotal.WithLabelValues("busy")))

	before = testutil.ToFloat64(taskCompletionsTotal.WithLabelValues("completed"))
	RecordTaskCompletion("social", "completed", 3)
	assert.Equal(t, before+1, testutil.ToFloat64(taskCompletionsTotal.WithLabelValues("completed")))
}

// TestSetOrchestratorBusy 测试提交锁指标
func TestSetOrchestratorBusy(t *testing.T) {
	SetOrchestratorBusy(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(orchestratorBusy))
	SetOrchestratorBusy(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(orchestratorBusy))
}

// TestCollector 测试收集器写入状态分布
func TestCollector(t *testing.T) {
	c := NewCollector(nil, func() map[string]int {
		return map[string]int{"processing": 1, "completed": 4}
	}, 10*time.Millisecond)
	c.Start()
	defer c.Stop()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(tasksByState.WithLabelValues("completed")) == 4
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(tasksByState.WithLabelValues("processing")))
}

// TestUpdateDatabaseConnections_Nil 测试空连接
func TestUpdateDatabaseConnections_Nil(t *testing.T) {
	assert.Error(t, UpdateDatabaseConnections(nil))
}

// TestHandler 测试指标端点输出
func TestHandler(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/tasks", http.StatusOK, 0.01)
	RecordCommandSubmitted("content")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "api_requests_total"))
	assert.True(t, strings.Contains(body, "commands_submitted_total"))
}
