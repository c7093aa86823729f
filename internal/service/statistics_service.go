package service

import (
	"fmt"

	"github.com/AlexandrinoANP/ANP/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetTaskStatisticsByState() ([]*TaskStatisticsByState, error)
	GetTaskStatisticsByCategory() ([]*TaskStatisticsByCategory, error)
	GetTaskStatisticsByTime() ([]*TaskStatisticsByTime, error)
	GetEventStatistics() ([]*EventStatistics, error)
	GetSummary() (*StatisticsSummary, error)
}

// TaskStatisticsByState 按状态统计
type TaskStatisticsByState struct {
	State string `json:"state"`
	Count int64  `json:"count"`
}

// TaskStatisticsByCategory 按分类统计
type TaskStatisticsByCategory struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// TaskStatisticsByTime 按日期统计
type TaskStatisticsByTime struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// EventStatistics 事件投递统计
type EventStatistics struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// StatisticsSummary 汇总
type StatisticsSummary struct {
	Total       int64                       `json:"total"`
	SuccessRate float64                     `json:"success_rate"` // completed / 终态任务,百分比
	ByState     []*TaskStatisticsByState    `json:"by_state"`
	ByCategory  []*TaskStatisticsByCategory `json:"by_category"`
	ByDate      []*TaskStatisticsByTime     `json:"by_date"`
	Events      []*EventStatistics          `json:"events"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db *gorm.DB
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetTaskStatisticsByState 按状态统计任务
func (s *statisticsService) GetTaskStatisticsByState() ([]*TaskStatisticsByState, error) {
	var results []*TaskStatisticsByState
	err := s.db.Model(&model.TaskModel{}).
		Select("state, COUNT(*) as count").
		Group("state").
		Order("state").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics by state: %w", err)
	}
	return results, nil
}

// GetTaskStatisticsByCategory 按分类统计任务
func (s *statisticsService) GetTaskStatisticsByCategory() ([]*TaskStatisticsByCategory, error) {
	var results []*TaskStatisticsByCategory
	err := s.db.Model(&model.TaskModel{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Order("category").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics by category: %w", err)
	}
	return results, nil
}

// GetTaskStatisticsByTime 按日期统计任务
func (s *statisticsService) GetTaskStatisticsByTime() ([]*TaskStatisticsByTime, error) {
	var results []*TaskStatisticsByTime
	err := s.db.Model(&model.TaskModel{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Group("DATE(created_at)").
		Order("date DESC").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get task statistics by time: %w", err)
	}
	return results, nil
}

// GetEventStatistics 按类型和投递状态统计事件
func (s *statisticsService) GetEventStatistics() ([]*EventStatistics, error) {
	var results []*EventStatistics
	err := s.db.Model(&model.EventModel{}).
		Select("type, status, COUNT(*) as count").
		Group("type, status").
		Order("type, status").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get event statistics: %w", err)
	}
	return results, nil
}

// GetSummary 汇总统计
func (s *statisticsService) GetSummary() (*StatisticsSummary, error) {
	byState, err := s.GetTaskStatisticsByState()
	if err != nil {
		return nil, err
	}
	byCategory, err := s.GetTaskStatisticsByCategory()
	if err != nil {
		return nil, err
	}
	byDate, err := s.GetTaskStatisticsByTime()
	if err != nil {
		return nil, err
	}
	events, err := s.GetEventStatistics()
	if err != nil {
		return nil, err
	}

	summary := &StatisticsSummary{
		ByState:    byState,
		ByCategory: byCategory,
		ByDate:     byDate,
		Events:     events,
	}
	var completed, terminal int64
	for _, st := range byState {
		summary.Total += st.Count
		switch st.State {
		case "completed":
			completed += st.Count
			terminal += st.Count
		case "error":
			terminal += st.Count
		}
	}
	if terminal > 0 {
		summary.SuccessRate = float64(completed) / float64(terminal) * 100
	}
	return summary, nil
}
