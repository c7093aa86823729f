package api

import (
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// TaskView 任务响应,附带本地化的状态文案
type TaskView struct {
	orchestrator.Task
	StatusLabel string `json:"status_label"`
}

func newTaskView(c *gin.Context, task orchestrator.Task) TaskView {
	return TaskView{Task: task, StatusLabel: StatusLabel(c, task.Status)}
}

func newTaskViews(c *gin.Context, tasks []orchestrator.Task) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, newTaskView(c, t))
	}
	return views
}
