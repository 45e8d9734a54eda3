// Package notify доставляет уведомления подключённым клиентам через websocket.
// Каждый пользователь получает собственную комнату, все его вкладки подписаны на неё.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Message - конверт, который получает клиент.
type Message struct {
	Type    string      `json:"type"` // например, "NOTIFICATION"
	Payload interface{} `json:"payload"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	room   string
	closed bool
	mu     sync.Mutex
}

type Hub struct {
	register   chan *client
	unregister chan *client
	done       chan struct{}
	rooms      map[string]map[*client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*client]bool),
		logger:     logger,
	}
}

// RoomForUser - имя комнаты пользователя.
func RoomForUser(userID int) string {
	return "user_" + strconv.Itoa(userID)
}

// Run обслуживает регистрацию клиентов до отмены ctx, после чего закрывает все соединения.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for room, clients := range h.rooms {
			for c := range clients {
				c.closeSend()
			}
			delete(h.rooms, room)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[c.room]; !ok {
				h.rooms[c.room] = make(map[*client]bool)
			}
			h.rooms[c.room][c] = true
			size := len(h.rooms[c.room])
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", slog.String("room", c.room), slog.Int("clients", size))

		case c := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[c.room]; ok {
				if _, okClient := clients[c]; okClient {
					c.closeSend()
					delete(clients, c)
					if len(clients) == 0 {
						delete(h.rooms, c.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client unregistered", slog.String("room", c.room))
		}
	}
}

// Attach регистрирует соединение в комнате пользователя и запускает его насосы чтения/записи.
func (h *Hub) Attach(conn *websocket.Conn, userID int) {
	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		room: RoomForUser(userID),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// PushToUser отправляет сообщение во все соединения пользователя. Возвращает число получателей.
func (h *Hub) PushToUser(userID int, msg Message) int {
	return h.BroadcastToRoom(RoomForUser(userID), msg)
}

// BroadcastToRoom не блокирует: переполненные клиенты пропускаются.
func (h *Hub) BroadcastToRoom(room string, message interface{}) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[room]
	if !ok {
		return 0
	}

	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", slog.String("room", room), slog.Any("error", err))
		return 0
	}

	delivered := 0
	for c := range clients {
		c.mu.Lock()
		if !c.closed {
			select {
			case c.send <- payload:
				delivered++
			default:
				h.logger.Warn("websocket send buffer full, message dropped", slog.String("room", room))
			}
		}
		c.mu.Unlock()
	}
	return delivered
}

// RoomSize - количество активных соединений в комнате.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (c *client) closeSend() {
	c.mu.Lock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
	c.mu.Unlock()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		// входящие сообщения клиента игнорируются, чтение нужно для pong и закрытия
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", slog.String("room", c.room), slog.Any("error", err))
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write failed", slog.String("room", c.room), slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
