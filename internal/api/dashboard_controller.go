package api

import (
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/AlexandrinoANP/ANP/internal/service"
	"github.com/gin-gonic/gin"
)

// Integration 集成面板的一项,仅展示
type Integration struct {
	Name        string `json:"name"`
	Connected   bool   `json:"connected"`
	StatusLabel string `json:"status_label"`
}

// integrationCatalog 集成面板固定展示的状态
var integrationCatalog = []struct {
	name      string
	connected bool
}{
	{"OpenAI GPT", true},
	{"Instagram API", true},
	{"Gmail API", true},
	{"Google Calendar", false},
}

// DashboardController 面板辅助数据
type DashboardController struct {
	statisticsService service.StatisticsService
}

// NewDashboardController 创建面板控制器
func NewDashboardController(statisticsService service.StatisticsService) *DashboardController {
	return &DashboardController{
		statisticsService: statisticsService,
	}
}

// Suggestions 快捷命令
func (c *DashboardController) Suggestions(ctx *gin.Context) {
	suggestions := make([]string, len(orchestrator.QuickCommands))
	copy(suggestions, orchestrator.QuickCommands)
	Success(ctx, suggestions)
}

// Integrations 集成状态
func (c *DashboardController) Integrations(ctx *gin.Context) {
	items := make([]Integration, 0, len(integrationCatalog))
	for _, it := range integrationCatalog {
		label := T(ctx, "integration.disconnected")
		if it.connected {
			label = T(ctx, "integration.connected")
		}
		items = append(items, Integration{
			Name:        it.name,
			Connected:   it.connected,
			StatusLabel: label,
		})
	}
	Success(ctx, items)
}

// Statistics 任务与事件统计
func (c *DashboardController) Statistics(ctx *gin.Context) {
	summary, err := c.statisticsService.GetSummary()
	if err != nil {
		respondError(ctx, err)
		return
	}
	Success(ctx, summary)
}
