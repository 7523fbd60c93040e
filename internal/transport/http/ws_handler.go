package http

import (
	"context"
	"errors"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-p2p/internal/core"
)

const feedBuffer = 16

// WSHandler upgrades HTTP connections and streams received messages to them.
type WSHandler struct {
	feed *core.Feed
	log  *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(feed *core.Feed, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{feed: feed, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// The stream is read-only; CloseRead handles control frames and cancels
	// ctx once the client goes away.
	ctx := conn.CloseRead(r.Context())

	messages, unsubscribe := h.feed.Subscribe(feedBuffer)
	defer unsubscribe()

	err = h.writeLoop(ctx, conn, messages)
	if err != nil && !errors.Is(err, context.Canceled) {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(websocket.StatusNormalClosure, "closing")
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, messages <-chan core.Message) error {
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, eventFromMessage(msg)); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
