package api

import (
	"net/http"
	"strconv"

	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/AlexandrinoANP/ANP/internal/utils"
	"github.com/gin-gonic/gin"
)

// QueryController 查询控制器
type QueryController struct {
	queryService service.QueryService
}

// NewQueryController 创建查询控制器
func NewQueryController(queryService service.QueryService) *QueryController {
	return &QueryController{
		queryService: queryService,
	}
}

// ListTasks 分页列出任务,新到旧
func (c *QueryController) ListTasks(ctx *gin.Context) {
	var filter service.ListTasksFilter

	if s := ctx.Query("status"); s != "" {
		status, err := orchestrator.ParseStatus(s)
		if err != nil {
			Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
			return
		}
		filter.Status = &status
	}
	if s := ctx.Query("category"); s != "" {
		category, err := orchestrator.ParseCategory(s)
		if err != nil {
			Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
			return
		}
		filter.Category = &category
	}

	// 非法的分页参数按默认值处理
	filter.Page, _ = strconv.Atoi(ctx.Query("page"))
	filter.PageSize, _ = strconv.Atoi(ctx.Query("page_size"))
	filter.Page, filter.PageSize, _ = utils.NormalizePagination(filter.Page, filter.PageSize)

	tasks, total, err := c.queryService.ListTasks(&filter)
	if err != nil {
		respondError(ctx, err)
		return
	}

	Paginated(ctx, newTaskViews(ctx, tasks), NewPaginationInfo(filter.Page, filter.PageSize, total))
}

// GetHistory 获取状态历史
func (c *QueryController) GetHistory(ctx *gin.Context) {
	taskID := ctx.Param("id")
	if !validateTaskID(ctx, taskID) {
		return
	}

	history, err := c.queryService.GetHistory(taskID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	Success(ctx, history)
}

// GetEvents 获取任务事件及投递状态
func (c *QueryController) GetEvents(ctx *gin.Context) {
	taskID := ctx.Param("id")
	if !validateTaskID(ctx, taskID) {
		return
	}

	events, err := c.queryService.GetEvents(taskID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	Success(ctx, events)
}
