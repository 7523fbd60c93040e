package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-p2p/internal/proto"
)

// EncodeMessage serializes m into the wire envelope.
func EncodeMessage(m Message) ([]byte, error) {
	alias := m.From.Alias
	content := m.Content
	datetime := m.Timestamp()

	data, err := json.Marshal(proto.Envelope{
		Alias:    &proto.Person{Alias: &alias},
		Content:  &content,
		Datetime: &datetime,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return data, nil
}

// DecodeMessage parses a wire envelope. Every field is required and the
// timestamp must match proto.TimeLayout; anything else yields a *DecodeError.
func DecodeMessage(data []byte) (Message, error) {
	var env proto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, decodeError("", err)
	}

	switch {
	case env.Alias == nil:
		return Message{}, decodeError("alias", ErrMissingField)
	case env.Alias.Alias == nil:
		return Message{}, decodeError("alias.alias", ErrMissingField)
	case env.Content == nil:
		return Message{}, decodeError("content", ErrMissingField)
	case env.Datetime == nil:
		return Message{}, decodeError("datetime", ErrMissingField)
	}

	sentAt, err := time.Parse(proto.TimeLayout, *env.Datetime)
	if err != nil {
		return Message{}, decodeError("datetime", err)
	}

	return Message{
		From:    Person{Alias: *env.Alias.Alias},
		Content: *env.Content,
		SentAt:  sentAt,
	}, nil
}
