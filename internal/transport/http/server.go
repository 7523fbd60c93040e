package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-p2p/internal/core"
)

const readHeaderTimeout = 5 * time.Second

// PeerSource exposes the local node identity and its broadcast targets.
type PeerSource interface {
	ID() string
	Peers() []string
}

// NewServer builds the local status server on addr. The websocket feed is
// served straight from the mux because gin's writer cannot be hijacked once
// the upgrade response has been written.
func NewServer(addr string, settings core.Settings, peers PeerSource, feed *core.Feed, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(feed, logger))
	mux.Handle("/", NewRouter(settings, peers, logger))

	return &stdhttp.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// NewRouter registers the status routes.
func NewRouter(settings core.Settings, peers PeerSource, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	status := NewStatusHandlers(settings, peers)
	router.GET("/health", status.Health)
	router.GET("/status", status.Status)

	return router
}
