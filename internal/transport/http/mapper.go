package http

import (
	"github.com/vovakirdan/wirechat-p2p/internal/core"
	"github.com/vovakirdan/wirechat-p2p/internal/proto"
)

func eventFromMessage(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		Alias:    msg.From.Alias,
		Content:  msg.Content,
		Datetime: msg.Timestamp(),
	}
}
