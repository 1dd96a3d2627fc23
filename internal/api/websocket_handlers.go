// internal/api/websocket_handlers.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/PsychoPedia/internal/models"
)

// ArticleWebSocket streams highlight events for one article to one reader
// profile. The client re-renders the paragraph named by each event.
func (h *Handler) ArticleWebSocket(c *gin.Context) {
	if h.deps.Hub == nil {
		h.rh.NotFound(c, ErrorNotFound, "realtime updates are disabled")
		return
	}
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	domain, topic := c.Param("domain"), c.Param("topic")
	if domain == "" || topic == "" {
		h.rh.BadRequest(c, ErrorBadRequest, "article is required")
		return
	}
	articleID := models.ArticleID(domain, topic)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{
			"article_id": articleID,
			"error":      err.Error(),
		})
		return
	}

	client := newClient(conn, articleID, profileID)
	if !h.deps.Hub.Register(client) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	go client.writePump()

	client.SendMessage(map[string]interface{}{
		"type":       "connected",
		"article_id": articleID,
		"profile":    profileID,
		"timestamp":  time.Now().UTC(),
	})

	client.readPump()
	h.deps.Hub.Unregister(client)
}

// WebSocketStatus reports live connections.
func (h *Handler) WebSocketStatus(c *gin.Context) {
	if h.deps.Hub == nil {
		h.rh.Success(c, gin.H{"total_connections": 0})
		return
	}
	h.rh.Success(c, h.deps.Hub.Status())
}
