package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AzielCF/az-social/infrastructure/valkey"
	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"
)

const broadcastBuffer = 64

type BroadcastMessage struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Title    string `json:"title,omitempty"`
	Result   any    `json:"result,omitempty"`
	SenderID string `json:"sender_id,omitempty"`
}

// Hub fans engine events out to every connected websocket client and, when Valkey is
// configured, to the hubs of the other instances.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan BroadcastMessage
	remote     chan BroadcastMessage

	vkClient *valkey.Client
	channel  string
	localID  string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan BroadcastMessage, broadcastBuffer),
		remote:     make(chan BroadcastMessage, broadcastBuffer),
	}
}

// SetValkeyClient enables distributed broadcasts. Must be called before Run.
func (h *Hub) SetValkeyClient(client *valkey.Client, serverID string) {
	h.vkClient = client
	h.localID = serverID
	h.channel = client.Key("ws_broadcast")
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.vkClient != nil {
		go h.subscribe(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				h.closeConnection(conn)
			}
			return

		case conn := <-h.register:
			h.clients[conn] = struct{}{}
			logrus.Debug("[WS] Connection registered")

		case conn := <-h.unregister:
			delete(h.clients, conn)
			logrus.Debug("[WS] Connection unregistered")

		case message := <-h.broadcast:
			h.broadcastToLocal(message)
			h.publishToValkey(ctx, message)

		case message := <-h.remote:
			h.broadcastToLocal(message)
		}
	}
}

// Send queues a message without blocking the engine. Messages are dropped when the
// hub is behind.
func (h *Hub) Send(message BroadcastMessage) {
	select {
	case h.broadcast <- message:
	default:
		logrus.Warnf("[WS] Broadcast buffer full, dropping %s", message.Code)
	}
}

func (h *Hub) broadcastToLocal(message BroadcastMessage) {
	if len(h.clients) == 0 {
		return
	}
	payload, err := json.Marshal(message)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.Errorf("[WS] Write error: %v", err)
			h.closeConnection(conn)
		}
	}
}

func (h *Hub) publishToValkey(ctx context.Context, message BroadcastMessage) {
	if h.vkClient == nil {
		return
	}
	message.SenderID = h.localID

	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	inner := h.vkClient.Inner()
	cmd := inner.B().Publish().Channel(h.channel).Message(string(data)).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func (h *Hub) subscribe(ctx context.Context) {
	logrus.Info("[WS] Starting Valkey Pub/Sub subscriber for distributed events")
	inner := h.vkClient.Inner()
	err := inner.Receive(ctx, inner.B().Subscribe().Channel(h.channel).Build(), func(msg valkeylib.PubSubMessage) {
		h.relay([]byte(msg.Message))
	})
	if err != nil && ctx.Err() == nil {
		logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
	}
}

// relay forwards a message published by another instance. Our own messages are
// ignored, they were already delivered locally.
func (h *Hub) relay(raw []byte) bool {
	var message BroadcastMessage
	if err := json.Unmarshal(raw, &message); err != nil {
		return false
	}
	if message.SenderID == h.localID {
		return false
	}
	select {
	case h.remote <- message:
		return true
	default:
		return false
	}
}

func (h *Hub) closeConnection(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	_ = conn.Close()
	delete(h.clients, conn)
}

// RegisterRoutes mounts GET /ws. Clients may send {"code":"FETCH_STATUS"} to receive
// the current scheduler status.
func RegisterRoutes(app fiber.Router, hub *Hub, status func() common.SchedulerStatus) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		defer func() {
			hub.unregister <- conn
			_ = conn.Close()
		}()

		hub.register <- conn

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] read error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				logrus.Debugf("[WS] unsupported message type: %d", messageType)
				continue
			}

			var request BroadcastMessage
			if err := json.Unmarshal(message, &request); err != nil {
				logrus.Debugf("[WS] unmarshal error: %v", err)
				continue
			}
			if request.Code == "FETCH_STATUS" && status != nil {
				hub.Send(BroadcastMessage{
					Code:    "SCHEDULER_STATUS",
					Message: "Scheduler status",
					Result:  status(),
				})
			}
		}
	}))
}

// Notifier adapts the hub to the engine's event interface.
type Notifier struct {
	Hub *Hub
}

var _ common.Notifier = Notifier{}

func (n Notifier) StatusUpdate(message string) {
	n.Hub.Send(BroadcastMessage{Code: "STATUS", Message: message})
}

func (n Notifier) Error(title, message string) {
	n.Hub.Send(BroadcastMessage{Code: "ERROR", Title: title, Message: message})
}

func (n Notifier) Warning(title, message string) {
	n.Hub.Send(BroadcastMessage{Code: "WARNING", Title: title, Message: message})
}

func (n Notifier) Info(title, message string) {
	n.Hub.Send(BroadcastMessage{Code: "INFO", Title: title, Message: message})
}

func (n Notifier) ScheduleUpdated() {
	n.Hub.Send(BroadcastMessage{Code: "SCHEDULE_UPDATED", Message: "Schedule updated", Result: time.Now().UTC()})
}

func (n Notifier) PostScheduled(post common.ScheduledPost) {
	n.Hub.Send(BroadcastMessage{Code: "POST_SCHEDULED", Message: "Post scheduled", Result: post})
}

func (n Notifier) PostPublished(post common.ScheduledPost) {
	n.Hub.Send(BroadcastMessage{Code: "POST_PUBLISHED", Message: string(post.Status), Result: post})
}
