package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jlebervet/mail-manager/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypeUnsubscribe   MessageType = "unsubscribe"
	MessageTypeMailCreated   MessageType = "mail_created"
	MessageTypeStatusChanged MessageType = "mail_status_changed"
	MessageTypeError         MessageType = "error"
)

// WSMessage represents a WebSocket message. Clients subscribe per service;
// an empty ServiceID on a subscribe request means every event.
type WSMessage struct {
	Type      MessageType `json:"type"`
	ServiceID string      `json:"service_id,omitempty"`
	Mail      interface{} `json:"mail,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// MailEventPayload is the notification body for mail lifecycle events
type MailEventPayload struct {
	ID                string `json:"id"`
	Reference         string `json:"reference"`
	Direction         string `json:"direction"`
	Subject           string `json:"subject"`
	Status            string `json:"status"`
	ServiceID         string `json:"service_id"`
	ServiceName       string `json:"service_name"`
	CorrespondentName string `json:"correspondent_name"`
	CreatedAt         string `json:"created_at"`
}

// Hub maintains the set of active clients and broadcasts mail events
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Service subscriptions: serviceID -> set of clients.
	// The empty-string key holds firehose subscribers.
	subscriptions map[string]map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscribe to a service
	subscribe chan *subscriptionRequest

	// Unsubscribe from a service
	unsubscribeService chan *subscriptionRequest

	// Broadcast to service subscribers
	broadcast chan *broadcastMessage

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Logger
	logger *slog.Logger
}

type subscriptionRequest struct {
	client    *Client
	serviceID string
}

type broadcastMessage struct {
	serviceID string
	message   []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:            make(map[*Client]bool),
		subscriptions:      make(map[string]map[*Client]bool),
		register:           make(chan *Client),
		unregister:         make(chan *Client),
		subscribe:          make(chan *subscriptionRequest),
		unsubscribeService: make(chan *subscriptionRequest),
		broadcast:          make(chan *broadcastMessage, 256),
		logger:             logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				// Remove from all subscriptions
				for serviceID, subscribers := range h.subscriptions {
					delete(subscribers, client)
					if len(subscribers) == 0 {
						delete(h.subscriptions, serviceID)
					}
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.serviceID] == nil {
				h.subscriptions[req.serviceID] = make(map[*Client]bool)
			}
			h.subscriptions[req.serviceID][req.client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client subscribed", slog.String("service_id", req.serviceID))
			}

		case req := <-h.unsubscribeService:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.serviceID]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.serviceID)
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unsubscribed", slog.String("service_id", req.serviceID))
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			h.deliver(h.subscriptions[msg.serviceID], msg.message)
			if msg.serviceID != "" {
				h.deliver(h.subscriptions[""], msg.message)
			}
			h.mu.RUnlock()
		}
	}
}

// deliver pushes a message to each subscriber, skipping full buffers
func (h *Hub) deliver(subscribers map[*Client]bool, message []byte) {
	for client := range subscribers {
		select {
		case client.send <- message:
		default:
			// Client buffer full, skip
		}
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe subscribes a client to a service's mail events
func (h *Hub) Subscribe(client *Client, serviceID string) {
	h.subscribe <- &subscriptionRequest{client: client, serviceID: serviceID}
}

// Unsubscribe unsubscribes a client from a service's mail events
func (h *Hub) Unsubscribe(client *Client, serviceID string) {
	h.unsubscribeService <- &subscriptionRequest{client: client, serviceID: serviceID}
}

// MailCreated broadcasts a registration event to the mail's service subscribers
func (h *Hub) MailCreated(mail *models.Mail) {
	h.broadcastEvent(MessageTypeMailCreated, mail)
}

// MailStatusChanged broadcasts a status change to the mail's service subscribers
func (h *Hub) MailStatusChanged(mail *models.Mail) {
	h.broadcastEvent(MessageTypeStatusChanged, mail)
}

func (h *Hub) broadcastEvent(messageType MessageType, mail *models.Mail) {
	msg := WSMessage{
		Type:      messageType,
		ServiceID: mail.ServiceID,
		Mail: &MailEventPayload{
			ID:                mail.ID,
			Reference:         mail.Reference,
			Direction:         string(mail.Direction),
			Subject:           mail.Subject,
			Status:            string(mail.Status),
			ServiceID:         mail.ServiceID,
			ServiceName:       mail.ServiceName,
			CorrespondentName: mail.CorrespondentName,
			CreatedAt:         mail.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal broadcast message", slog.Any("error", err))
		}
		return
	}

	h.broadcast <- &broadcastMessage{
		serviceID: mail.ServiceID,
		message:   data,
	}
}
