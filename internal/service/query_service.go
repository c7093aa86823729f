package service

import (
	"fmt"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/repository"
	"github.com/AlexandrinoANP/ANP/internal/utils"
)

// QueryService 查询服务接口
type QueryService interface {
	ListTasks(filter *ListTasksFilter) ([]orchestrator.Task, int64, error)
	GetHistory(taskID string) ([]*StateHistory, error)
	GetEvents(taskID string) ([]*TaskEventRecord, error)
}

// ListTasksFilter 任务列表查询过滤器
type ListTasksFilter struct {
	Status   *orchestrator.Status
	Category *orchestrator.Category
	Page     int
	PageSize int
}

// StateHistory 状态历史
type StateHistory struct {
	ID         string `json:"id"`
	TaskID     string `json:"task_id"`
	FromState  string `json:"from_state,omitempty"`
	ToState    string `json:"to_state"`
	Transition string `json:"transition"`
	Reason     string `json:"reason,omitempty"`
	Operator   string `json:"operator"`
	CreatedAt  string `json:"created_at"`
}

// TaskEventRecord 持久化的事件及投递状态
type TaskEventRecord struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	CreatedAt  string `json:"created_at"`
}

// queryService 查询服务实现
// 任务列表读编排器内存中的历史,状态历史和事件读数据库
type queryService struct {
	orch        *orchestrator.Orchestrator
	historyRepo repository.StateHistoryRepository
	eventRepo   repository.EventRepository
}

// NewQueryService 创建查询服务
func NewQueryService(orch *orchestrator.Orchestrator, historyRepo repository.StateHistoryRepository, eventRepo repository.EventRepository) QueryService {
	return &queryService{
		orch:        orch,
		historyRepo: historyRepo,
		eventRepo:   eventRepo,
	}
}

// ListTasks 列出任务,新到旧,返回当前页和过滤后的总数
func (s *queryService) ListTasks(filter *ListTasksFilter) ([]orchestrator.Task, int64, error) {
	if filter == nil {
		filter = &ListTasksFilter{}
	}

	matched := make([]orchestrator.Task, 0)
	for _, t := range s.orch.History() {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		matched = append(matched, t)
	}

	total := int64(len(matched))
	_, pageSize, offset := utils.NormalizePagination(filter.Page, filter.PageSize)
	if offset >= len(matched) {
		return []orchestrator.Task{}, total, nil
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

// GetHistory 获取状态历史
func (s *queryService) GetHistory(taskID string) ([]*StateHistory, error) {
	if _, err := s.orch.Get(taskID); err != nil {
		return nil, err
	}

	models, err := s.historyRepo.FindByTaskID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	histories := make([]*StateHistory, 0, len(models))
	for _, m := range models {
		histories = append(histories, &StateHistory{
			ID:         m.ID,
			TaskID:     m.TaskID,
			FromState:  m.FromState,
			ToState:    m.ToState,
			Transition: m.Transition(),
			Reason:     m.Reason,
			Operator:   m.Operator,
			CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		})
	}

	return histories, nil
}

// GetEvents 获取任务事件
func (s *queryService) GetEvents(taskID string) ([]*TaskEventRecord, error) {
	if _, err := s.orch.Get(taskID); err != nil {
		return nil, err
	}

	models, err := s.eventRepo.FindByTaskID(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	events := make([]*TaskEventRecord, 0, len(models))
	for _, m := range models {
		events = append(events, &TaskEventRecord{
			ID:         m.ID,
			Type:       m.Type,
			Status:     m.Status,
			RetryCount: m.RetryCount,
			CreatedAt:  m.CreatedAt.Format(time.RFC3339),
		})
	}
	return events, nil
}
