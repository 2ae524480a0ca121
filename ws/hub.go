package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vnkhanh/e-course-backend/logger"
)

type Client struct {
	Conn *websocket.Conn
	Send chan []byte
}

// Hub quản lý các kết nối theo dõi tiến trình sinh khóa học, nhóm theo task_id.
// Không giữ lịch sử: client kết nối sau chỉ nhận các sự kiện từ lúc đó trở đi.
type Hub struct {
	clients map[string]map[*websocket.Conn]*Client
	mutex   sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]*Client),
	}
}

// Sự kiện tiến trình của một stage
type ProgressEvent struct {
	Type      string `json:"type"`
	TaskID    string `json:"task_id"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Sự kiện kết thúc, mỗi run phát đúng một lần
type CompletionEvent struct {
	Type      string `json:"type"`
	TaskID    string `json:"task_id"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	CourseID  uint   `json:"course_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Sự kiện lỗi của một stage (không kết thúc run)
type ErrorEvent struct {
	Type      string `json:"type"`
	TaskID    string `json:"task_id"`
	Message   string `json:"message"`
	Step      string `json:"step,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Register thêm kết nối vào nhóm của taskID và chạy write pump cho nó
func (h *Hub) Register(taskID string, conn *websocket.Conn) *Client {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[taskID]; !ok {
		h.clients[taskID] = make(map[*websocket.Conn]*Client)
	}

	client := &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.clients[taskID][conn] = client

	go h.writePump(client)

	return client
}

// Unregister gỡ kết nối, đóng kênh gửi và dọn nhóm rỗng
func (h *Hub) Unregister(taskID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if clients, ok := h.clients[taskID]; ok {
		if client, ok := clients[conn]; ok {
			close(client.Send)
			delete(clients, conn)
		}
		if len(clients) == 0 {
			delete(h.clients, taskID)
		}
	}
}

// publish gửi payload đến mọi client của taskID.
// Client chậm (kênh đầy) bị bỏ qua, không bao giờ chặn phía phát.
func (h *Hub) publish(taskID string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.L().Error("ws marshal lỗi", zap.Error(err))
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if clients, ok := h.clients[taskID]; ok {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
			}
		}
	}
}

func (h *Hub) SendProgress(taskID, step string, progress int, message string) {
	h.publish(taskID, ProgressEvent{
		Type:      "progress",
		TaskID:    taskID,
		Step:      step,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) SendCompletion(taskID string, courseID uint, success bool, message string) {
	h.publish(taskID, CompletionEvent{
		Type:      "completion",
		TaskID:    taskID,
		Success:   success,
		Message:   message,
		CourseID:  courseID,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) SendError(taskID, step, message string) {
	h.publish(taskID, ErrorEvent{
		Type:      "error",
		TaskID:    taskID,
		Message:   message,
		Step:      step,
		Timestamp: time.Now().Unix(),
	})
}

// GetStats trả số task đang được theo dõi và tổng số kết nối (cho health check)
func (h *Hub) GetStats() map[string]int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	connections := 0
	for _, clients := range h.clients {
		connections += len(clients)
	}
	return map[string]int{
		"tasks":       len(h.clients),
		"connections": connections,
	}
}

// Write pump: chuyển message từ kênh Send xuống kết nối
func (h *Hub) writePump(client *Client) {
	defer func() {
		client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
		client.Conn.Close()
	}()
	for msg := range client.Send {
		if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}
