// internal/api/websocket.go
package api

import (
	"net/http"
	"sync"

	"github.com/InkMuseLab/InkMuseAI/internal/services"
	"github.com/InkMuseLab/InkMuseAI/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsGenerateRequest 客户端发起的流式生成请求
type wsGenerateRequest struct {
	Domain   string `json:"domain"`
	Input    string `json:"input"`
	Language string `json:"language"`
	Model    string `json:"model"`
}

// wsMessage 服务端推送消息
// type: fragment（增量文本）| result（最终解析结果）| error
type wsMessage struct {
	Type    string      `json:"type"`
	Text    string      `json:"text,omitempty"`
	Records interface{} `json:"records,omitempty"`
	Stats   interface{} `json:"stats,omitempty"`
	Message string      `json:"message,omitempty"`
}

// GenerateStream GET /ws/generate
// 行式生成的渐进式推送：片段实时下发，结束后推送完整解析结果
func (h *Handlers) GenerateStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Error("WebSocket升级失败", map[string]interface{}{"err": err})
		return
	}
	defer conn.Close()

	var req wsGenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(wsMessage{Type: "error", Message: "invalid request"})
		return
	}

	if req.Domain == "" || req.Input == "" {
		conn.WriteJSON(wsMessage{Type: "error", Message: "domain and input are required"})
		return
	}

	// 片段与结果写入同一连接，需要串行化
	var writeMutex sync.Mutex
	send := func(msg wsMessage) {
		writeMutex.Lock()
		defer writeMutex.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			utils.GetLogger().Warn("WebSocket写入失败", map[string]interface{}{"err": err})
		}
	}

	records, stats, err := h.generation.GenerateRecordsStream(
		c.Request.Context(),
		services.Domain(req.Domain),
		req.Input,
		req.Language,
		req.Model,
		func(fragment string) {
			send(wsMessage{Type: "fragment", Text: fragment})
		},
	)
	if err != nil {
		send(wsMessage{Type: "error", Message: err.Error()})
		return
	}

	send(wsMessage{Type: "result", Records: records, Stats: stats})
}
