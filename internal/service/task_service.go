package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexandrinoANP/ANP/internal/metrics"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/sirupsen/logrus"
)

// TaskService 命令任务服务接口
type TaskService interface {
	Submit(ctx context.Context, req *SubmitCommandRequest) (*SubmitCommandResponse, error)
	SubmitAndWait(ctx context.Context, req *SubmitCommandRequest) (*orchestrator.Task, error)
	Get(id string) (*orchestrator.Task, error)
	Status() *OrchestratorStatus
}

// SubmitCommandRequest 提交命令请求
type SubmitCommandRequest struct {
	Command string `json:"command" example:"Criar post sobre IA para Instagram"` // 自然语言命令
}

// SubmitCommandResponse 提交命令响应
type SubmitCommandResponse struct {
	TaskID string            `json:"task_id"`
	Task   orchestrator.Task `json:"task"`
}

// OrchestratorStatus 编排器状态
type OrchestratorStatus struct {
	Busy           bool           `json:"busy"`
	InFlightTaskID string         `json:"in_flight_task_id,omitempty"`
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
}

type taskService struct {
	orch        *orchestrator.Orchestrator
	auditLogSvc AuditLogService
	log         logrus.FieldLogger
}

// NewTaskService 创建任务服务,同时订阅任务事件更新业务指标
func NewTaskService(orch *orchestrator.Orchestrator, auditLogSvc AuditLogService, logger logrus.FieldLogger) TaskService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &taskService{
		orch:        orch,
		auditLogSvc: auditLogSvc,
		log:         logger,
	}
	orch.AddListener(s.observe)
	return s
}

// Submit 提交命令
func (s *taskService) Submit(ctx context.Context, req *SubmitCommandRequest) (*SubmitCommandResponse, error) {
	id, err := s.orch.Submit(ctx, req.Command)
	if err != nil {
		metrics.RecordCommandRejected(RejectReason(err))
		s.audit(ctx, AuditActionReject, "", map[string]string{
			"command": req.Command,
			"error":   err.Error(),
		})
		return nil, err
	}

	task, err := s.orch.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get accepted task: %w", err)
	}

	metrics.RecordCommandSubmitted(string(task.Category))
	s.audit(ctx, AuditActionSubmit, id, map[string]string{
		"task_id":  id,
		"command":  task.Command,
		"category": string(task.Category),
	})

	return &SubmitCommandResponse{TaskID: id, Task: task}, nil
}

// SubmitAndWait 提交命令并等待任务进入终态
func (s *taskService) SubmitAndWait(ctx context.Context, req *SubmitCommandRequest) (*orchestrator.Task, error) {
	// 先订阅,执行器同步完成时也不会漏掉事件
	events, cancel := s.orch.Subscribe(8)
	defer cancel()

	resp, err := s.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	if task, err := s.orch.Get(resp.TaskID); err == nil && task.Status.IsTerminal() {
		return &task, nil
	}

	for {
		select {
		case evt, ok := <-events:
			if !ok {
				return nil, errors.New("event subscription closed")
			}
			if evt.Task.ID == resp.TaskID && evt.Task.Status.IsTerminal() {
				task := evt.Task
				return &task, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Get 获取任务详情
func (s *taskService) Get(id string) (*orchestrator.Task, error) {
	task, err := s.orch.Get(id)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Status 编排器状态
func (s *taskService) Status() *OrchestratorStatus {
	inflight, busy := s.orch.InFlight()
	counts := s.orch.CountByStatus()

	status := &OrchestratorStatus{
		Busy:           busy,
		InFlightTaskID: inflight,
		ByStatus:       make(map[string]int, len(counts)),
	}
	for st, n := range counts {
		status.ByStatus[string(st)] = n
		status.Total += n
	}
	return status
}

// observe 任务事件回调
func (s *taskService) observe(evt orchestrator.TaskEvent) {
	switch evt.Type {
	case orchestrator.EventTaskCreated:
		metrics.SetOrchestratorBusy(true)
	case orchestrator.EventTaskCompleted, orchestrator.EventTaskFailed:
		metrics.RecordTaskCompletion(
			string(evt.Task.Category),
			string(evt.Task.Status),
			evt.Time.Sub(evt.Task.CreatedAt).Seconds(),
		)
		metrics.SetOrchestratorBusy(s.orch.Busy())
	}
}

func (s *taskService) audit(ctx context.Context, action, resourceID string, details interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	if err := s.auditLogSvc.RecordAction(ctx, action, "task", resourceID, details); err != nil {
		s.log.WithError(err).WithField("action", action).Warn("failed to record audit log")
	}
}

// RejectReason 拒绝原因,用作指标标签
func RejectReason(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyCommand):
		return "empty"
	case errors.Is(err, orchestrator.ErrBusy):
		return "busy"
	case errors.Is(err, orchestrator.ErrCommandTooLong):
		return "too_long"
	default:
		return "other"
	}
}
