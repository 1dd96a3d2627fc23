// internal/api/websocket.go
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Corphon/PsychoPedia/internal/metrics"
	"github.com/Corphon/PsychoPedia/internal/models"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketConnection is the part of *websocket.Conn the hub uses.
type WebSocketConnection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}

// Client is one reader connection watching one article.
type Client struct {
	conn      WebSocketConnection
	articleID string
	profileID string
	send      chan []byte
	done      chan struct{}
	closed    int32
	lastPing  atomic.Int64 // unix nanos
	createdAt time.Time
}

func newClient(conn WebSocketConnection, articleID, profileID string) *Client {
	client := &Client{
		conn:      conn,
		articleID: articleID,
		profileID: profileID,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
	client.UpdatePing()
	return client
}

// Close marks the client closed; writePump then sends a close frame and
// releases the connection.
func (client *Client) Close() {
	if atomic.CompareAndSwapInt32(&client.closed, 0, 1) {
		close(client.done)
	}
}

func (client *Client) IsClosed() bool {
	return atomic.LoadInt32(&client.closed) == 1
}

func (client *Client) UpdatePing() {
	client.lastPing.Store(time.Now().UnixNano())
}

// IsExpired reports whether no pong arrived within timeout.
func (client *Client) IsExpired(timeout time.Duration) bool {
	return time.Since(time.Unix(0, client.lastPing.Load())) > timeout
}

// SendMessage queues a message, dropping it when the client is too slow.
func (client *Client) SendMessage(message interface{}) bool {
	if client.IsClosed() {
		return false
	}
	msgBytes, err := json.Marshal(message)
	if err != nil {
		return false
	}
	select {
	case client.send <- msgBytes:
		return true
	default:
		return false
	}
}

// writePump owns all writes to the connection.
func (client *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Close()
		client.conn.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readPump reads until the peer goes away. Readers only send keepalives.
func (client *Client) readPump() {
	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.UpdatePing()
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		client.UpdatePing()
		client.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
			client.SendMessage(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().UTC(),
			})
		}
	}
}

// Hub fans highlight events out to the readers of an article.
type Hub struct {
	connections map[string]map[*Client]struct{} // articleID -> clients
	register    chan *Client
	unregister  chan *Client
	broadcast   chan models.HighlightEvent
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	pingTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *utils.Logger
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		connections: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		broadcast:   make(chan models.HighlightEvent, 256),
		done:        make(chan struct{}),
		pingTimeout: 2 * pongWait,
		metrics:     m,
		logger:      utils.GetLogger().With("websocket"),
	}
}

// Run processes registrations and events until Stop is called.
func (hub *Hub) Run() {
	cleanup := time.NewTicker(30 * time.Second)
	defer cleanup.Stop()

	for {
		select {
		case client := <-hub.register:
			hub.registerClient(client)
		case client := <-hub.unregister:
			hub.unregisterClient(client)
		case event := <-hub.broadcast:
			hub.deliver(event)
		case <-cleanup.C:
			hub.cleanupExpiredConnections()
		case <-hub.done:
			hub.shutdown()
			return
		}
	}
}

// Stop closes every connection and ends Run.
func (hub *Hub) Stop() {
	hub.stopOnce.Do(func() { close(hub.done) })
}

// Publish queues an event; it never blocks the caller.
func (hub *Hub) Publish(event models.HighlightEvent) {
	select {
	case hub.broadcast <- event:
	default:
		hub.logger.Warn("broadcast queue full, event dropped", map[string]interface{}{
			"article_id": event.ArticleID,
			"type":       event.Type,
		})
	}
}

// Register hands a client to the hub; false when the hub has stopped.
func (hub *Hub) Register(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

// Unregister removes a client; safe after Stop.
func (hub *Hub) Unregister(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
		client.Close()
	}
}

func (hub *Hub) registerClient(client *Client) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if hub.connections[client.articleID] == nil {
		hub.connections[client.articleID] = make(map[*Client]struct{})
	}
	hub.connections[client.articleID][client] = struct{}{}
	hub.metrics.WebsocketOpened()

	hub.logger.Debug("reader connected", map[string]interface{}{
		"article_id": client.articleID,
		"profile":    client.profileID,
	})
}

func (hub *Hub) unregisterClient(client *Client) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.removeLocked(client)
}

// removeLocked expects hub.mutex to be held.
func (hub *Hub) removeLocked(client *Client) {
	clients, ok := hub.connections[client.articleID]
	if !ok {
		client.Close()
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		hub.metrics.WebsocketClosed()
	}
	if len(clients) == 0 {
		delete(hub.connections, client.articleID)
	}
	client.Close()
}

func (hub *Hub) cleanupExpiredConnections() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for _, clients := range hub.connections {
		for client := range clients {
			if client.IsClosed() || client.IsExpired(hub.pingTimeout) {
				hub.removeLocked(client)
			}
		}
	}
}

// deliver sends an event to the article's readers of the same profile.
func (hub *Hub) deliver(event models.HighlightEvent) {
	message := map[string]interface{}{
		"type":      "highlight_event",
		"event":     event,
		"timestamp": time.Now().UTC(),
	}

	hub.mutex.RLock()
	targets := make([]*Client, 0, len(hub.connections[event.ArticleID]))
	for client := range hub.connections[event.ArticleID] {
		if client.profileID == event.ProfileID && !client.IsClosed() {
			targets = append(targets, client)
		}
	}
	hub.mutex.RUnlock()

	hub.metrics.RecordBroadcast()
	for _, client := range targets {
		if !client.SendMessage(message) {
			hub.logger.Warn("reader too slow, disconnecting", map[string]interface{}{
				"article_id": client.articleID,
				"profile":    client.profileID,
			})
			client.Close()
		}
	}
}

func (hub *Hub) shutdown() {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	for _, clients := range hub.connections {
		for client := range clients {
			client.Close()
			hub.metrics.WebsocketClosed()
		}
	}
	hub.connections = make(map[string]map[*Client]struct{})
	hub.logger.Info("websocket hub stopped", nil)
}

// Status reports live connections per article.
func (hub *Hub) Status() map[string]interface{} {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()

	articles := make(map[string]int, len(hub.connections))
	total := 0
	for articleID, clients := range hub.connections {
		articles[articleID] = len(clients)
		total += len(clients)
	}
	return map[string]interface{}{
		"total_articles":    len(hub.connections),
		"total_connections": total,
		"articles":          articles,
	}
}
