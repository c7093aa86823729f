package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

// NewUpgrader 按允许的来源创建 Upgrader,包含 "*" 时不检查 Origin
func NewUpgrader(allowedOrigins []string) *gorillaWS.Upgrader {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &gorillaWS.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return allowAll || origin == "" || allowed[origin]
		},
	}
}

// WebSocketHandler WebSocket 处理器
// 路由带 :id 或查询参数 task_id 时只推送该任务的事件
func WebSocketHandler(hub *Hub, upgrader *gorillaWS.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		if taskID == "" {
			taskID = c.Query("task_id")
		}

		// Upgrade 失败时已经写好了 HTTP 错误响应
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.WithError(err).Warn("failed to upgrade websocket connection")
			return
		}

		client := NewClient(uuid.New().String(), taskID, hub, conn)
		if !hub.Register(client) {
			conn.WriteMessage(gorillaWS.CloseMessage,
				gorillaWS.FormatCloseMessage(gorillaWS.CloseGoingAway, "server shutting down"))
			conn.Close()
			return
		}

		go client.ReadPump()
		go client.WritePump()
	}
}
