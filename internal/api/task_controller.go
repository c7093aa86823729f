package api

import (
	"net/http"

	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/AlexandrinoANP/ANP/internal/utils"
	"github.com/gin-gonic/gin"
)

// TaskController 命令与任务控制器
type TaskController struct {
	taskService service.TaskService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService) *TaskController {
	return &TaskController{
		taskService: taskService,
	}
}

// submitResponse 提交命令的响应
type submitResponse struct {
	TaskID string   `json:"task_id"`
	Task   TaskView `json:"task"`
}

// validateTaskID 验证路径中的任务 ID
func validateTaskID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateTaskID(id); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return false
	}
	return true
}

// Submit 提交自然语言命令
func (c *TaskController) Submit(ctx *gin.Context) {
	var req service.SubmitCommandRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	resp, err := c.taskService.Submit(ctx.Request.Context(), &req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	Received(ctx, submitResponse{
		TaskID: resp.TaskID,
		Task:   newTaskView(ctx, resp.Task),
	})
}

// Get 获取任务
func (c *TaskController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !validateTaskID(ctx, id) {
		return
	}

	task, err := c.taskService.Get(id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	Success(ctx, newTaskView(ctx, *task))
}

// Status 编排器状态
func (c *TaskController) Status(ctx *gin.Context) {
	Success(ctx, c.taskService.Status())
}
