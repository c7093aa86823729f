package model_test

import (
	"testing"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"github.com/stretchr/testify/assert"
)

// TestTableNames 测试表名
func TestTableNames(t *testing.T) {
	assert.Equal(t, "tasks", model.TaskModel{}.TableName())
	assert.Equal(t, "state_history", model.StateHistoryModel{}.TableName())
	assert.Equal(t, "events", model.EventModel{}.TableName())
	assert.Equal(t, "audit_logs", model.AuditLogModel{}.TableName())
}

// TestTaskModelValidation 测试任务模型验证
func TestTaskModelValidation(t *testing.T) {
	tm := &model.TaskModel{ID: "task-001", Command: "Criar post", Category: "social", State: "processing"}
	assert.NoError(t, tm.Validate())

	tm.Command = ""
	assert.Error(t, tm.Validate())

	assert.Error(t, (&model.TaskModel{Command: "x", Category: "content", State: "processing"}).Validate())
	assert.Error(t, (&model.TaskModel{ID: "t", Command: "x", State: "processing"}).Validate())
	assert.Error(t, (&model.TaskModel{ID: "t", Command: "x", Category: "content"}).Validate())
}

// TestStateHistoryModelValidation 测试状态历史验证
func TestStateHistoryModelValidation(t *testing.T) {
	shm := &model.StateHistoryModel{ID: "h-1", TaskID: "task-001", ToState: "processing", Operator: "system"}
	assert.NoError(t, shm.Validate())

	assert.True(t, shm.IsCreation())

	shm.FromState = "processing"
	assert.Error(t, shm.Validate())

	shm.FromState = ""
	shm.Operator = ""
	assert.Error(t, shm.Validate())
}

// TestEventModelValidation 测试事件模型验证与默认状态
func TestEventModelValidation(t *testing.T) {
	em := &model.EventModel{ID: "e-1", TaskID: "task-001", Type: "task.created", Data: []byte(`{}`)}
	assert.NoError(t, em.Validate())
	assert.Equal(t, model.EventStatusPending, em.Status)

	em.Data = nil
	assert.Error(t, em.Validate())
}

// TestAuditLogModelValidation 测试审计日志验证
func TestAuditLogModelValidation(t *testing.T) {
	alm := &model.AuditLogModel{ID: "a-1", Actor: "api", Action: "reject", ResourceType: "task"}
	assert.NoError(t, alm.Validate())

	alm.Actor = ""
	assert.Error(t, alm.Validate())
}
