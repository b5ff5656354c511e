package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TopicsFunc returns the topics a user's connection subscribes to
type TopicsFunc func(userID string) []string

// Handler upgrades authenticated requests to websocket subscriptions
type Handler struct {
	hub       *Hub
	backlog   *Backlog
	topicsFor TopicsFunc
	logger    zerolog.Logger
}

// NewHandler creates a new WebSocket handler. backlog may be nil.
func NewHandler(hub *Hub, backlog *Backlog, topicsFor TopicsFunc, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		backlog:   backlog,
		topicsFor: topicsFor,
		logger:    logger,
	}
}

// HandleConnection godoc
// @Summary Subscribe to live events
// @Description Upgrades to a WebSocket that streams feed events and the caller's own notifications as JSON lines
// @Tags websocket
// @Security BearerAuth
// @Param token query string false "Access token, for clients that cannot set headers"
// @Success 101 {string} string "Switching Protocols to WebSocket"
// @Failure 401 {object} gin.H "Unauthorized: JWT token missing or invalid"
// @Router /ws [get]
func (h *Handler) HandleConnection(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in context"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", userID).Msg("Failed to upgrade connection to WebSocket")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		topics: h.topicsFor(userID),
		logger: h.logger,
	}
	if h.backlog != nil {
		for _, data := range h.backlog.replay(client.topics) {
			select {
			case client.send <- data:
			default:
			}
		}
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()

	h.logger.Info().
		Str("userID", userID).
		Str("remoteAddr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")
}
