package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// 状态历史的操作方
const (
	OperatorOrchestrator = "orchestrator"
	OperatorSeed         = "seed"
	OperatorRecovery     = "recovery"
)

// ReasonInterrupted 进程退出时仍在执行的任务,重启后以该原因标记为 error
const ReasonInterrupted = "interrupted before completion"

// TaskStore 基于数据库的任务持久化
// 实现 orchestrator.Store,每次保存写入任务快照,状态变化时追加一条状态历史
type TaskStore struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewTaskStore 创建任务持久化
func NewTaskStore(db *gorm.DB, logger logrus.FieldLogger) *TaskStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TaskStore{db: db, log: logger}
}

// Save 保存任务快照
func (s *TaskStore) Save(ctx context.Context, task orchestrator.Task) error {
	return s.save(ctx, task, OperatorOrchestrator, "")
}

// save reason 为空时按目标状态生成
func (s *TaskStore) save(ctx context.Context, task orchestrator.Task, operator, reason string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskRepo := repository.NewTaskRepository(tx)
		historyRepo := repository.NewStateHistoryRepository(tx)

		fromState := ""
		existing, err := taskRepo.FindByID(task.ID)
		switch {
		case err == nil:
			fromState = existing.State
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to load task: %w", err)
		}

		taskModel := FromTask(task)
		taskModel.UpdatedAt = time.Now()
		if err := taskModel.Validate(); err != nil {
			return err
		}
		if err := taskRepo.Save(taskModel); err != nil {
			return fmt.Errorf("failed to save task: %w", err)
		}

		if fromState == string(task.Status) {
			return nil
		}
		if reason == "" {
			reason = transitionReason(task)
		}
		history := &model.StateHistoryModel{
			ID:        uuid.New().String(),
			TaskID:    task.ID,
			FromState: fromState,
			ToState:   string(task.Status),
			Reason:    reason,
			Operator:  operator,
			CreatedAt: time.Now(),
		}
		if err := historyRepo.Append(history); err != nil {
			return fmt.Errorf("failed to save state history: %w", err)
		}
		return nil
	})
}

// Load 读取全部任务,新到旧
// 不合法的行会被跳过并记录日志
func (s *TaskStore) Load(ctx context.Context) ([]orchestrator.Task, error) {
	models, err := repository.NewTaskRepository(s.db.WithContext(ctx)).FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	tasks := make([]orchestrator.Task, 0, len(models))
	for _, m := range models {
		task, err := ToTask(m)
		if err != nil {
			s.log.WithError(err).WithField("task_id", m.ID).Warn("skipping invalid persisted task")
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// LoadOrSeed 读取历史,库为空时写入 seed 并返回 seed
func (s *TaskStore) LoadOrSeed(ctx context.Context, seed []orchestrator.Task) ([]orchestrator.Task, error) {
	tasks, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(tasks) > 0 || len(seed) == 0 {
		return tasks, nil
	}

	// 从最旧的开始写,保证状态历史的时间顺序
	for i := len(seed) - 1; i >= 0; i-- {
		if err := s.save(ctx, seed[i], OperatorSeed, ""); err != nil {
			return nil, fmt.Errorf("failed to seed task %s: %w", seed[i].ID, err)
		}
	}
	s.log.WithField("count", len(seed)).Info("seeded task history")
	return seed, nil
}

// RecoverInterrupted 把上次运行中断的任务标记为 error,返回更新后的历史和标记数量
//
// 恢复出来的 processing 任务没有执行器会再完成它。只处理 cutoff 之前创建的任务,
// 同库的其他进程可能还在执行较新的任务。示例数据中的 processing 任务只用于展示,
// 最后一条状态记录来自 seed,保持不变。
func (s *TaskStore) RecoverInterrupted(ctx context.Context, tasks []orchestrator.Task, cutoff time.Time) ([]orchestrator.Task, int, error) {
	historyRepo := repository.NewStateHistoryRepository(s.db.WithContext(ctx))
	out := make([]orchestrator.Task, len(tasks))
	copy(out, tasks)

	recovered := 0
	for i, task := range out {
		if task.Status != orchestrator.StatusProcessing || task.CreatedAt.After(cutoff) {
			continue
		}
		last, err := historyRepo.Last(task.ID)
		switch {
		case err == nil && last.Operator == OperatorSeed:
			continue
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, recovered, fmt.Errorf("failed to load history of task %s: %w", task.ID, err)
		}

		task.Status = orchestrator.StatusError
		task.Result = ""
		if err := s.save(ctx, task, OperatorRecovery, ReasonInterrupted); err != nil {
			return nil, recovered, fmt.Errorf("failed to recover task %s: %w", task.ID, err)
		}
		out[i] = task
		recovered++
		s.log.WithField("task_id", task.ID).Warn("task was interrupted before completion, marked as error")
	}
	return out, recovered, nil
}

// FromTask 任务转数据模型
func FromTask(task orchestrator.Task) *model.TaskModel {
	return &model.TaskModel{
		ID:        task.ID,
		Command:   task.Command,
		Category:  string(task.Category),
		State:     string(task.Status),
		Result:    task.Result,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.CreatedAt,
	}
}

// ToTask 数据模型转任务
func ToTask(m *model.TaskModel) (orchestrator.Task, error) {
	category, err := orchestrator.ParseCategory(m.Category)
	if err != nil {
		return orchestrator.Task{}, err
	}
	status, err := orchestrator.ParseStatus(m.State)
	if err != nil {
		return orchestrator.Task{}, err
	}
	task := orchestrator.Task{
		ID:        m.ID,
		Command:   m.Command,
		Category:  category,
		Status:    status,
		Result:    m.Result,
		CreatedAt: m.CreatedAt,
	}
	if err := task.Validate(); err != nil {
		return orchestrator.Task{}, err
	}
	return task, nil
}

func transitionReason(task orchestrator.Task) string {
	switch task.Status {
	case orchestrator.StatusProcessing:
		return "command accepted"
	case orchestrator.StatusCompleted:
		return task.Result
	case orchestrator.StatusError:
		return "command execution failed"
	default:
		return string(task.Status)
	}
}
