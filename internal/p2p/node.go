package p2p

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/muxer/yamux"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-p2p/internal/core"
)

const dialTimeout = 10 * time.Second

// ErrNoTCPPort is returned when the host does not listen on any TCP address.
var ErrNoTCPPort = errors.New("host has no tcp listen address")

// Node is a libp2p host joined to one floodsub topic.
type Node struct {
	host  host.Host
	ps    *pubsub.PubSub
	topic *pubsub.Topic
	sub   *pubsub.Subscription
	log   *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	targets map[peer.ID]struct{}
}

// New starts a host on listenAddrs, joins topic and subscribes to it.
func New(ctx context.Context, listenAddrs []string, topic string, logger *zerolog.Logger) (*Node, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	h, err := libp2p.New(
		libp2p.ListenAddrStrings(listenAddrs...),
		libp2p.Security(noise.ID, noise.New),
		libp2p.Transport(tcp.NewTCPTransport),
		libp2p.Muxer(yamux.ID, yamux.DefaultTransport),
	)
	if err != nil {
		return nil, fmt.Errorf("create host: %w", err)
	}

	nodeCtx, cancel := context.WithCancel(ctx)
	n := &Node{
		host:    h,
		log:     logger,
		ctx:     nodeCtx,
		cancel:  cancel,
		targets: make(map[peer.ID]struct{}),
	}

	n.ps, err = pubsub.NewFloodSub(nodeCtx, h)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("create floodsub: %w", err)
	}
	n.topic, err = n.ps.Join(topic)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("join topic %q: %w", topic, err)
	}
	n.sub, err = n.topic.Subscribe()
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("subscribe topic %q: %w", topic, err)
	}

	logger.Info().Str("peer_id", h.ID().String()).Strs("addrs", n.Addrs()).Msg("host listening")
	return n, nil
}

// ID is this node's peer id.
func (n *Node) ID() string {
	return n.host.ID().String()
}

// Addrs lists the addresses the host listens on.
func (n *Node) Addrs() []string {
	addrs := n.host.Addrs()
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

// Port returns the first TCP port the host listens on.
func (n *Node) Port() (int, error) {
	for _, a := range n.host.Addrs() {
		value, err := a.ValueForProtocol(ma.P_TCP)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(value)
		if err != nil {
			continue
		}
		return port, nil
	}
	return 0, ErrNoTCPPort
}

// Publish broadcasts data on topic. Only the joined topic is accepted.
func (n *Node) Publish(ctx context.Context, topic string, data []byte) error {
	if topic != n.topic.String() {
		return fmt.Errorf("not joined to topic %q", topic)
	}
	return n.topic.Publish(ctx, data)
}

// AddPeer makes rec's peer a broadcast target and dials it in the background.
func (n *Node) AddPeer(rec core.PeerRecord) {
	id, err := peer.Decode(rec.ID)
	if err != nil {
		n.log.Warn().Err(err).Str("peer", rec.ID).Msg("invalid peer id")
		return
	}
	if id == n.host.ID() {
		return
	}
	addr, err := ma.NewMultiaddr(rec.Addr)
	if err != nil {
		n.log.Warn().Err(err).Str("addr", rec.Addr).Msg("invalid peer address")
		return
	}
	n.host.Peerstore().AddAddr(id, addr, peerstore.TempAddrTTL)

	n.mu.Lock()
	n.targets[id] = struct{}{}
	n.mu.Unlock()

	if n.host.Network().Connectedness(id) == network.Connected {
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(n.ctx, dialTimeout)
		defer cancel()
		if err := n.host.Connect(ctx, peer.AddrInfo{ID: id, Addrs: []ma.Multiaddr{addr}}); err != nil {
			n.log.Warn().Err(err).Str("peer", rec.ID).Str("addr", rec.Addr).Msg("connect to peer failed")
			return
		}
		n.log.Debug().Str("peer", rec.ID).Msg("connected to peer")
	}()
}

// RemovePeer drops a peer from the broadcast targets and closes its connections.
func (n *Node) RemovePeer(id string) {
	pid, err := peer.Decode(id)
	if err != nil {
		return
	}

	n.mu.Lock()
	_, ok := n.targets[pid]
	delete(n.targets, pid)
	n.mu.Unlock()
	if !ok {
		return
	}

	n.host.Peerstore().ClearAddrs(pid)
	if err := n.host.Network().ClosePeer(pid); err != nil {
		n.log.Debug().Err(err).Str("peer", id).Msg("close peer")
	}
}

// Peers returns the current broadcast targets, sorted.
func (n *Node) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]string, 0, len(n.targets))
	for id := range n.targets {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}

// Run forwards inbound topic messages and connection changes to out until
// ctx is done or the node is closed.
func (n *Node) Run(ctx context.Context, out chan<- core.Event) error {
	connSub, err := n.host.EventBus().Subscribe(new(event.EvtPeerConnectednessChanged))
	if err != nil {
		return fmt.Errorf("subscribe connectedness events: %w", err)
	}
	defer connSub.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.readLoop(ctx, out)
	}()

	for {
		select {
		case <-ctx.Done():
			return <-errCh
		case err := <-errCh:
			return err
		case raw, ok := <-connSub.Out():
			if !ok {
				cancel()
				return <-errCh
			}
			evt, ok := raw.(event.EvtPeerConnectednessChanged)
			if !ok {
				continue
			}
			detail := fmt.Sprintf("%s %s", evt.Peer, evt.Connectedness)
			select {
			case out <- core.Event{Kind: core.EventNetwork, Detail: detail}:
			case <-ctx.Done():
			}
		}
	}
}

func (n *Node) readLoop(ctx context.Context, out chan<- core.Event) error {
	for {
		msg, err := n.sub.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, pubsub.ErrSubscriptionCancelled) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read subscription: %w", err)
		}
		// floodsub delivers our own publications to our subscription
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		ev := core.Event{
			Kind:  core.EventMessageReceived,
			Topic: msg.GetTopic(),
			From:  msg.ReceivedFrom.String(),
			Data:  msg.Data,
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

// Close cancels the subscription, leaves the topic and shuts the host down.
func (n *Node) Close() error {
	if n.sub != nil {
		n.sub.Cancel()
	}
	if n.topic != nil {
		if err := n.topic.Close(); err != nil {
			n.log.Debug().Err(err).Msg("close topic")
		}
	}
	n.cancel()
	n.wg.Wait()
	return n.host.Close()
}
