package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AlexandrinoANP/ANP/internal/metrics"
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// DefaultSSEHeartbeat SSE 心跳间隔
const DefaultSSEHeartbeat = 30 * time.Second

// sseMessage 推送给浏览器的消息
type sseMessage struct {
	Type   string             `json:"type"`
	TaskID string             `json:"task_id,omitempty"`
	Task   *orchestrator.Task `json:"task,omitempty"`
	Error  string             `json:"error,omitempty"`
	Time   int64              `json:"time"`
}

// SSEHandler SSE 处理器,推送任务事件
// 路由带 :id 或查询参数 task_id 时只推送该任务的事件
func SSEHandler(orch *orchestrator.Orchestrator, heartbeat time.Duration) gin.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultSSEHeartbeat
	}

	return func(c *gin.Context) {
		taskID := c.Param("id")
		if taskID == "" {
			taskID = c.Query("task_id")
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			Error(c, http.StatusInternalServerError, "streaming not supported", "")
			return
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // 禁用 Nginx 缓冲

		// 先订阅再发 connected,客户端收到 connected 之后的事件不会丢
		events, cancel := orch.Subscribe(64)
		defer cancel()

		metrics.AddRealtimeClients("sse", 1)
		defer metrics.AddRealtimeClients("sse", -1)

		if err := sendSSEMessage(c.Writer, sseMessage{
			Type:   "connected",
			TaskID: taskID,
			Time:   time.Now().Unix(),
		}); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			var msg sseMessage
			select {
			case <-c.Request.Context().Done():
				return
			case <-ticker.C:
				msg = sseMessage{Type: "heartbeat", TaskID: taskID, Time: time.Now().Unix()}
			case evt, ok := <-events:
				if !ok {
					return
				}
				if taskID != "" && evt.Task.ID != taskID {
					continue
				}
				task := evt.Task
				msg = sseMessage{
					Type:   string(evt.Type),
					TaskID: task.ID,
					Task:   &task,
					Error:  evt.Error,
					Time:   evt.Time.Unix(),
				}
			}

			if err := sendSSEMessage(c.Writer, msg); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// sendSSEMessage 发送 SSE 消息,格式为 data: <json>\n\n
func sendSSEMessage(w io.Writer, msg sseMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
