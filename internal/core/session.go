package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Settings is the process-wide chat configuration. It is fixed before the
// session starts and never changes afterwards.
type Settings struct {
	Topic string
	Alias string
}

// Person returns the local participant.
func (s Settings) Person() Person {
	return Person{Alias: s.Alias}
}

// Network is the broadcast side of the networking stack.
type Network interface {
	// Publish broadcasts data to every peer subscribed to topic.
	Publish(ctx context.Context, topic string, data []byte) error
	// AddPeer makes the peer of rec a broadcast target.
	AddPeer(rec PeerRecord)
	// RemovePeer drops a peer from the broadcast targets.
	RemovePeer(id string)
}

// Presence reports whether discovery still knows a peer through any record.
type Presence interface {
	HasPeer(id string) bool
}

// Session multiplexes local input and network events for one topic.
type Session struct {
	settings Settings
	network  Network
	presence Presence
	out      io.Writer
	feed     *Feed
	log      *zerolog.Logger

	now func() time.Time
	loc *time.Location
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClock overrides the time source used for outgoing messages.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation overrides the timezone received messages are rendered in.
func WithLocation(loc *time.Location) SessionOption {
	return func(s *Session) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithFeed publishes every received message to feed.
func WithFeed(feed *Feed) SessionOption {
	return func(s *Session) {
		s.feed = feed
	}
}

// NewSession creates a session that prints received messages to out.
func NewSession(settings Settings, network Network, presence Presence, out io.Writer, logger *zerolog.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Session{
		settings: settings,
		network:  network,
		presence: presence,
		out:      out,
		log:      logger,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Settings returns the session's immutable settings.
func (s *Session) Settings() Settings {
	return s.settings
}

// Run handles one event per iteration until ctx is cancelled. When the input
// stream ends or fails the session keeps serving network events.
func (s *Session) Run(ctx context.Context, input <-chan InputEvent, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input:
			if !ok {
				s.log.Info().Msg("input closed, continuing network-only")
				input = nil
				continue
			}
			if in.Err != nil {
				s.log.Warn().Err(in.Err).Msg("input failed, continuing network-only")
				input = nil
				continue
			}
			s.handleInput(ctx, in.Line)
		case ev, ok := <-events:
			if !ok {
				return errors.New("network event stream closed")
			}
			s.handleEvent(ev)
		}
	}
}

// Send builds, encodes and broadcasts a message. Empty content is dropped
// silently and reported as ErrEmptyContent.
func (s *Session) Send(ctx context.Context, content string) error {
	msg, err := NewMessage(content, s.settings.Person(), s.now().In(s.loc))
	if err != nil {
		return err
	}
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	if err := s.network.Publish(ctx, s.settings.Topic, data); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (s *Session) handleInput(ctx context.Context, line string) {
	err := s.Send(ctx, line)
	switch {
	case err == nil, errors.Is(err, ErrEmptyContent):
	default:
		s.log.Error().Err(err).Str("topic", s.settings.Topic).Msg("failed to send message")
	}
}

func (s *Session) handleEvent(ev Event) {
	switch ev.Kind {
	case EventPeerDiscovered:
		for _, rec := range ev.Records {
			s.log.Debug().Str("peer", rec.ID).Str("addr", rec.Addr).Msg("peer discovered")
			s.network.AddPeer(rec)
		}
	case EventPeerExpired:
		for _, rec := range ev.Records {
			if s.presence != nil && s.presence.HasPeer(rec.ID) {
				s.log.Debug().Str("peer", rec.ID).Str("addr", rec.Addr).Msg("record expired, peer still present")
				continue
			}
			s.log.Debug().Str("peer", rec.ID).Str("addr", rec.Addr).Msg("peer expired")
			s.network.RemovePeer(rec.ID)
		}
	case EventMessageReceived:
		s.receive(ev)
	default:
		s.log.Debug().Str("kind", ev.Kind.String()).Str("detail", ev.Detail).Msg("network event")
	}
}

func (s *Session) receive(ev Event) {
	if ev.Topic != s.settings.Topic {
		s.log.Debug().Str("topic", ev.Topic).Msg("ignoring message for foreign topic")
		return
	}

	msg, err := DecodeMessage(ev.Data)
	if err != nil {
		s.log.Error().Err(err).Str("peer", ev.From).Msg("received unknown content")
		return
	}

	msg = msg.In(s.loc)
	if _, err := fmt.Fprintln(s.out, msg.Render()); err != nil {
		s.log.Warn().Err(err).Msg("failed to print message")
	}
	s.feed.Publish(msg)
}
