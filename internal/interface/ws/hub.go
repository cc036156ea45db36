// Package ws 通过WebSocket向借书台推送在架数量变化
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// AvailabilityMessage 推送给订阅者的消息,不含借阅人信息
type AvailabilityMessage struct {
	Type              circulation.EventType `json:"type"`
	BookID            uint                  `json:"book_id"`
	ISBN              string                `json:"isbn"`
	Title             string                `json:"title"`
	AvailableQuantity int                   `json:"available_quantity"`
	TotalQuantity     int                   `json:"total_quantity"`
	OccurredAt        time.Time             `json:"occurred_at"`
}

type client struct {
	conn *websocket.Conn
	isbn string // 为空表示订阅全部
	send chan AvailabilityMessage
}

// Hub 订阅者集合,实现circulation.Observer
// 每个连接一个写协程,广播只往缓冲通道里放;通道满的慢连接直接断开
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub 创建Hub
// allowedOrigins为空时允许所有来源
func NewHub(allowedOrigins ...string) *Hub {
	metrics.InitMetrics()
	h := &Hub{clients: make(map[*client]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowedOrigins {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// Handle gin处理器:GET /ws/availability?isbn=...
func (h *Hub) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	cl := &client{
		conn: conn,
		isbn: strings.TrimSpace(c.Query("isbn")),
		send: make(chan AvailabilityMessage, sendBuffer),
	}
	h.register(cl)

	go h.writePump(cl)
	h.readPump(cl)
}

// Clients 当前订阅数
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OnCirculation 实现circulation.Observer
func (h *Hub) OnCirculation(_ context.Context, e circulation.Event) {
	msg := AvailabilityMessage{
		Type:              e.Type,
		BookID:            e.BookID,
		ISBN:              e.ISBN,
		Title:             e.Title,
		AvailableQuantity: e.AvailableQuantity,
		TotalQuantity:     e.TotalQuantity,
		OccurredAt:        e.OccurredAt,
	}

	h.mu.RLock()
	var slow []*client
	for cl := range h.clients {
		if cl.isbn != "" && cl.isbn != e.ISBN {
			continue
		}
		select {
		case cl.send <- msg:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		slog.Warn("websocket client too slow, disconnecting", "remote", cl.conn.RemoteAddr().String())
		h.unregister(cl)
	}
}

// Close 断开所有订阅者
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		all = append(all, cl)
	}
	h.mu.RUnlock()

	for _, cl := range all {
		h.unregister(cl)
	}
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()
	metrics.IncGauge(metrics.WebSocketClients)
}

// unregister 可重复调用,只有第一次生效
func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, cl)
	close(cl.send)
	h.mu.Unlock()
	metrics.DecGauge(metrics.WebSocketClients)
}

// readPump 只处理控制帧,读到错误(对端关闭)即注销
func (h *Hub) readPump(cl *client) {
	defer h.unregister(cl)

	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(msg); err != nil {
				h.unregister(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(cl)
				return
			}
		}
	}
}
