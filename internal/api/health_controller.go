package api

import (
	"context"
	"net/http"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController 健康检查控制器
type HealthController struct {
	db   *gorm.DB
	orch *orchestrator.Orchestrator
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, orch *orchestrator.Orchestrator) *HealthController {
	return &HealthController{
		db:   db,
		orch: orch,
	}
}

// Check 健康检查
// 编排器忙碌不算不健康,只作为信息返回
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	if c.db != nil {
		if err := c.checkDatabase(ctx.Request.Context()); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	body := gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	}
	if c.orch != nil {
		body["busy"] = c.orch.Busy()
		body["tasks"] = c.orch.Len()
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	ctx.JSON(httpStatus, body)
}

// checkDatabase 检查数据库连接
func (c *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
