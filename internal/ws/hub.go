// Package ws streams search activity events to connected dashboard clients.
package ws

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// EventType names a hub payload.
type EventType string

const (
	EventSearchCompleted  EventType = "SearchCompleted"
	EventCaptchaDetected  EventType = "CaptchaDetected"
	EventUpstreamDegraded EventType = "UpstreamDegraded"
)

// Event is the JSON payload broadcast to every connected client.
type Event struct {
	Type       EventType `json:"type"`
	SearchKind string    `json:"search_kind,omitempty"`
	State      string    `json:"state,omitempty"`
	Commission string    `json:"commission,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Count      int       `json:"count,omitempty"`
	At         time.Time `json:"at"`
}

// Hub manages active clients and fan-out of activity events.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

// NewHub builds a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

// Run starts the hub loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Publish broadcasts an event to all clients. It never blocks the caller:
// when the hub's buffer is full the event is dropped.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: encoding event failed: %v", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
	}
}

// Client represents a websocket connection.
type Client struct {
	Conn *websocket.Conn
	Hub  *Hub
	Send chan []byte
}

// NewClient returns a client ready for registration.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		Conn: conn,
		Hub:  hub,
		Send: make(chan []byte, 256),
	}
}
