package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-course-backend/utils"
)

// dialTestHub dựng server upgrade + đăng ký vào hub, trả về kết nối phía client
func dialTestHub(t *testing.T, hub *Hub, taskID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(taskID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(msg, &event))
	return event
}

func TestHubPublishToSubscribers(t *testing.T) {
	hub := NewHub()
	conn1 := dialTestHub(t, hub, "task-1")
	conn2 := dialTestHub(t, hub, "task-1")

	hub.SendProgress("task-1", "introduction", 20, "Đang sinh giới thiệu")

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		event := readEvent(t, conn)
		assert.Equal(t, "progress", event["type"])
		assert.Equal(t, "task-1", event["task_id"])
		assert.Equal(t, "introduction", event["step"])
		assert.Equal(t, float64(20), event["progress"])
	}
}

func TestHubIsolatesTasks(t *testing.T) {
	hub := NewHub()
	connA := dialTestHub(t, hub, "task-a")
	connB := dialTestHub(t, hub, "task-b")

	hub.SendCompletion("task-a", 9, true, "xong")

	event := readEvent(t, connA)
	assert.Equal(t, "completion", event["type"])
	assert.Equal(t, float64(9), event["course_id"])

	// task-b không nhận gì
	connB.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := connB.ReadMessage()
	assert.Error(t, err)
}

func TestHubPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	// không panic, không chặn khi chưa ai subscribe
	hub.SendProgress("task-x", "preparing", 10, "ok")
	hub.SendError("task-x", "structure", "hỏng")
	assert.Equal(t, 0, hub.GetStats()["connections"])
}

func TestHubUnregisterCleansUp(t *testing.T) {
	hub := NewHub()
	conn := dialTestHub(t, hub, "task-1")
	_ = conn

	stats := hub.GetStats()
	assert.Equal(t, 1, stats["tasks"])
	assert.Equal(t, 1, stats["connections"])

	hub.mutex.RLock()
	var registered *websocket.Conn
	for c := range hub.clients["task-1"] {
		registered = c
	}
	hub.mutex.RUnlock()

	hub.Unregister("task-1", registered)
	stats = hub.GetStats()
	assert.Equal(t, 0, stats["tasks"])
	assert.Equal(t, 0, stats["connections"])
}

func TestHubConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.SendProgress("task-1", "content", j, "msg")
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := dialTestHub(t, hub, "task-1")
			_ = conn
		}()
	}
	wg.Wait()
}

func TestCourseGenerationWSPingPong(t *testing.T) {
	os.Setenv("JWT_SECRET", "test-secret")
	token, err := utils.GenerateToken("u-1", "admin")
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws/course-generation/:task_id", HandleCourseGenerationWS(hub))

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/course-generation/task-1?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// message chào khi kết nối
	event := readEvent(t, conn)
	assert.Equal(t, "connected", event["type"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(msg))
}

func TestCourseGenerationWSRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws/course-generation/:task_id", HandleCourseGenerationWS(hub))

	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/course-generation/task-1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
