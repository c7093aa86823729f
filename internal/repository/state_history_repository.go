package repository

import (
	"fmt"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"gorm.io/gorm"
)

// StateHistoryRepository 状态历史仓储,记录只追加不修改
type StateHistoryRepository interface {
	Append(history *model.StateHistoryModel) error
	FindByTaskID(taskID string) ([]*model.StateHistoryModel, error)
	Last(taskID string) (*model.StateHistoryModel, error)
}

type stateHistoryRepository struct {
	db *gorm.DB
}

func NewStateHistoryRepository(db *gorm.DB) StateHistoryRepository {
	return &stateHistoryRepository{db: db}
}

// Append 校验后插入一条记录,ID 重复时返回错误
func (r *stateHistoryRepository) Append(history *model.StateHistoryModel) error {
	if err := history.Validate(); err != nil {
		return fmt.Errorf("invalid state history: %w", err)
	}
	return r.db.Create(history).Error
}

// FindByTaskID 按时间先后返回某任务的全部状态变化
func (r *stateHistoryRepository) FindByTaskID(taskID string) ([]*model.StateHistoryModel, error) {
	var histories []*model.StateHistoryModel
	err := r.db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&histories).Error
	return histories, err
}

// Last 某任务最近一条状态变化,没有记录时返回 gorm.ErrRecordNotFound
func (r *stateHistoryRepository) Last(taskID string) (*model.StateHistoryModel, error) {
	var history model.StateHistoryModel
	result := r.db.Where("task_id = ?", taskID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Find(&history)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &history, nil
}
