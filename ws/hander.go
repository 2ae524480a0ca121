package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vnkhanh/e-course-backend/logger"
	"github.com/vnkhanh/e-course-backend/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // chỉ để phát triển, nên giới hạn ở production
	},
}

// đẩy message dạng JSON vào kênh gửi của client (write pump sẽ chuyển xuống kết nối)
func sendJSON(client *Client, data interface{}) {
	msg, err := json.Marshal(data)
	if err != nil {
		logger.L().Error("ws marshal lỗi", zap.Error(err))
		return
	}
	select {
	case client.Send <- msg:
	default:
	}
}

// HandleCourseGenerationWS theo dõi tiến trình sinh khóa học theo task_id.
// Client gửi "ping" sẽ nhận lại "pong" để giữ kết nối.
func HandleCourseGenerationWS(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("task_id")
		token := c.Query("token")

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Thiếu token"})
			return
		}
		claims, err := utils.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token không hợp lệ hoặc hết hạn"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.L().Warn("WebSocket upgrade thất bại", zap.Error(err))
			return
		}

		client := hub.Register(taskID, conn)
		defer hub.Unregister(taskID, conn)

		logger.L().Info("Course WS connected",
			zap.String("task_id", taskID),
			zap.String("user_id", claims.UserID))

		sendJSON(client, gin.H{"type": "connected", "message": "Connected to task " + taskID})

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if string(msg) == "ping" {
				select {
				case client.Send <- []byte("pong"):
				default:
				}
			}
		}

		logger.L().Info("Course WS disconnected",
			zap.String("task_id", taskID),
			zap.String("user_id", claims.UserID))
	}
}
