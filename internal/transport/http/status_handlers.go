package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/wirechat-p2p/internal/core"
	"github.com/vovakirdan/wirechat-p2p/internal/proto"
)

// StatusHandlers serves read-only information about the running client.
type StatusHandlers struct {
	settings core.Settings
	peers    PeerSource
}

// NewStatusHandlers creates status handlers.
func NewStatusHandlers(settings core.Settings, peers PeerSource) *StatusHandlers {
	return &StatusHandlers{settings: settings, peers: peers}
}

// Health reports liveness.
// GET /health
func (h *StatusHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Status returns topic, alias and the current broadcast targets.
// GET /status
func (h *StatusHandlers) Status(c *gin.Context) {
	status := proto.Status{
		Topic: h.settings.Topic,
		Alias: h.settings.Alias,
		Peers: []string{},
	}
	if h.peers != nil {
		status.PeerID = h.peers.ID()
		status.Peers = append(status.Peers, h.peers.Peers()...)
	}
	c.JSON(http.StatusOK, status)
}
