package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-p2p/internal/proto"
)

// Person is a chat participant identified only by a display alias.
// Two participants may share an alias.
type Person struct {
	Alias string
}

func (p Person) String() string {
	return p.Alias
}

// Message is the domain model for a chat message.
type Message struct {
	From    Person
	Content string
	SentAt  time.Time
}

// NewMessage builds a message from raw input. Content is trimmed; if nothing
// is left ErrEmptyContent is returned and the message must not be sent.
func NewMessage(content string, from Person, now time.Time) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyContent
	}
	return Message{
		From:    from,
		Content: content,
		SentAt:  now,
	}, nil
}

// In returns a copy of m with its timestamp expressed in loc.
func (m Message) In(loc *time.Location) Message {
	m.SentAt = m.SentAt.In(loc)
	return m
}

// Timestamp formats SentAt with the wire layout.
func (m Message) Timestamp() string {
	return m.SentAt.Format(proto.TimeLayout)
}

// Render is the human-readable form: alias and timestamp, then content.
func (m Message) Render() string {
	return fmt.Sprintf("%s %s\n%s\n", m.From, m.Timestamp(), m.Content)
}
