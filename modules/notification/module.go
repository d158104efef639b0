// Package notification pushes task announcements to websocket listeners.
package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/example/todo-tracker/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Announcement is the message sent to websocket clients.
type Announcement struct {
	Type  string `json:"type"`
	Actor string `json:"actor"`
	Title string `json:"title"`
}

// NotificationModule consumes task events and broadcasts them to clients.
type NotificationModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*NotificationModule)(nil)
var _ mono.EventConsumerModule = (*NotificationModule)(nil)
var _ mono.HealthCheckableModule = (*NotificationModule)(nil)

// NewModule creates a new NotificationModule.
func NewModule() *NotificationModule {
	return &NotificationModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *NotificationModule) Name() string {
	return "notification"
}

// Start starts the hub.
func (m *NotificationModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[notification] Module started - websocket hub running")
	return nil
}

// Stop shuts down the hub and closes every connection.
func (m *NotificationModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[notification] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *NotificationModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *NotificationModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.TaskCreatedV1, m.handleTaskCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}

	log.Println("[notification] Registered event consumers: TaskCreated")
	return nil
}

func (m *NotificationModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.Announce(event.ActorName, event.Title)
	return nil
}

// Announce tells every connected client that actor created a task titled
// title. Delivery is best-effort.
func (m *NotificationModule) Announce(actor, title string) {
	log.Printf("[notification] Announcing task %q by %s", title, actor)
	m.hub.Broadcast(Announcement{
		Type:  "task_created",
		Actor: actor,
		Title: title,
	})
}

// HandleWebSocket keeps a client registered for as long as its connection
// stays open. Incoming messages are ignored.
func (m *NotificationModule) HandleWebSocket(c *websocket.Conn) {
	client := &Client{ID: uuid.New().String(), Conn: c}
	m.hub.Register(client)
	defer m.hub.Unregister(client)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[notification] Websocket error for client %s: %v", client.ID, err)
			}
			return
		}
	}
}

// Hub returns the websocket hub.
func (m *NotificationModule) Hub() *Hub {
	return m.hub
}
