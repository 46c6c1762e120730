// Package websocket 向仪表盘推送实时事件（如新邮件到达）。
package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"maildash/backend/internal/auth/jwt"
	"maildash/backend/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Event 推送给客户端的事件
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// client 一个已连接的仪表盘客户端
type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub 按用户维度管理 websocket 连接并分发事件。
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{} // userID -> clients
	upgrader websocket.Upgrader
	jwt      *jwt.Manager
	log      *zap.Logger
}

// NewHub 创建 websocket hub
func NewHub(jwtManager *jwt.Manager, allowedOrigins []string, log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		jwt: jwtManager,
		log: log,
	}
}

// originChecker 创建带 Origin 验证的检查函数
func originChecker(allowedOrigins []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		for _, origin := range allowedOrigins {
			if origin == "*" {
				return true
			}
		}
		requestOrigin := r.Header.Get("Origin")
		for _, origin := range allowedOrigins {
			if origin == requestOrigin {
				return true
			}
		}
		return false
	}
}

// HandleConnection 处理 websocket 升级请求。
// 令牌通过 token 查询参数传递（浏览器的 WebSocket API 不支持自定义头）。
func (h *Hub) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication required"})
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan Event, 16),
	}
	h.register(claims.UserID, cl)

	go h.writePump(claims.UserID, cl)
	go h.readPump(claims.UserID, cl)
}

// NotifyNewMail 向某用户的全部连接推送新邮件事件。
// 发送缓冲已满的慢客户端会被跳过，不阻塞摄取流水线。
func (h *Hub) NotifyNewMail(userID string, message *domain.Message) {
	event := Event{
		Type:      "mail.received",
		Timestamp: time.Now(),
		Data: gin.H{
			"id":         message.ID,
			"from_email": message.FromEmail,
			"to_email":   message.ToEmail,
			"subject":    message.Subject,
		},
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients[userID] {
		select {
		case cl.send <- event:
		default:
		}
	}
}

// register 登记连接
func (h *Hub) register(userID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][cl] = struct{}{}
}

// unregister 注销连接并关闭发送通道
func (h *Hub) unregister(userID string, cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[userID]; ok {
		if _, ok := set[cl]; ok {
			delete(set, cl)
			close(cl.send)
			if len(set) == 0 {
				delete(h.clients, userID)
			}
		}
	}
}

// readPump 消费客户端消息（仅用于感知断连和响应 pong）
func (h *Hub) readPump(userID string, cl *client) {
	defer func() {
		h.unregister(userID, cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump 把事件写给客户端并周期性发 ping
func (h *Hub) writePump(userID string, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case event, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(event); err != nil {
				h.log.Debug("websocket write failed", zap.String("user_id", userID), zap.Error(err))
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
