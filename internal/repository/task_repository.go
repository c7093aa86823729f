package repository

import (
	"time"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"gorm.io/gorm"
)

// TaskRepository 任务仓储接口
type TaskRepository interface {
	Save(task *model.TaskModel) error
	FindByID(id string) (*model.TaskModel, error)
	FindAll() ([]*model.TaskModel, error)
	FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error)
	Count(filter *TaskFilter) (int64, error)
}

// TaskFilter 任务查询过滤器
type TaskFilter struct {
	State     *string
	Category  *string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	Offset    int
}

// taskRepository 任务仓储实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓储
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Save 保存任务
func (r *taskRepository) Save(task *model.TaskModel) error {
	return r.db.Save(task).Error
}

// FindByID 根据 ID 查找任务,不存在时返回 gorm.ErrRecordNotFound
// 用 Find 而不是 First,未命中不算 SQL 错误
func (r *taskRepository) FindByID(id string) (*model.TaskModel, error) {
	var task model.TaskModel
	result := r.db.Where("id = ?", id).Limit(1).Find(&task)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &task, nil
}

// FindAll 查找所有任务,新到旧
func (r *taskRepository) FindAll() ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	err := r.db.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// FindByFilter 根据过滤器查找任务
func (r *taskRepository) FindByFilter(filter *TaskFilter) ([]*model.TaskModel, error) {
	var tasks []*model.TaskModel
	query := r.applyFilter(r.db.Model(&model.TaskModel{}), filter)

	if filter != nil {
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
	}

	err := query.Order("created_at DESC").Find(&tasks).Error
	return tasks, err
}

// Count 统计满足过滤条件的任务数,忽略分页参数
func (r *taskRepository) Count(filter *TaskFilter) (int64, error) {
	var total int64
	err := r.applyFilter(r.db.Model(&model.TaskModel{}), filter).Count(&total).Error
	return total, err
}

func (r *taskRepository) applyFilter(query *gorm.DB, filter *TaskFilter) *gorm.DB {
	if filter == nil {
		return query
	}
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}
	return query
}
