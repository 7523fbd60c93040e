package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-p2p/internal/core"
)

const (
	txtPeerID = "id="

	defaultServiceName    = "_wirechat._tcp"
	defaultDomain         = "local."
	defaultBrowseInterval = 20 * time.Second
	defaultBrowseTimeout  = 5 * time.Second
)

// Options controls advertisement and browsing.
type Options struct {
	ServiceName    string
	Domain         string
	RecordTTL      time.Duration
	BrowseInterval time.Duration
	BrowseTimeout  time.Duration
}

// MDNS advertises this peer on the local network and turns browse results
// into discovery events.
type MDNS struct {
	opts     Options
	self     string
	port     int
	instance string
	registry *Registry
	log      *zerolog.Logger
	now      func() time.Time

	mutex     sync.Mutex
	server    *zeroconf.Server
	isRunning bool
}

// NewMDNS creates discovery for the libp2p peer self listening on TCP port.
func NewMDNS(opts Options, self string, port int, logger *zerolog.Logger) *MDNS {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.ServiceName == "" {
		opts.ServiceName = defaultServiceName
	}
	if opts.Domain == "" {
		opts.Domain = defaultDomain
	}
	if opts.BrowseInterval <= 0 {
		opts.BrowseInterval = defaultBrowseInterval
	}
	if opts.BrowseTimeout <= 0 {
		opts.BrowseTimeout = defaultBrowseTimeout
	}
	return &MDNS{
		opts:     opts,
		self:     self,
		port:     port,
		instance: "wirechat-" + uuid.NewString(),
		registry: NewRegistry(),
		log:      logger,
		now:      time.Now,
	}
}

// Instance is the mDNS instance name this peer advertises.
func (d *MDNS) Instance() string {
	return d.instance
}

// HasPeer reports whether any discovery record for id is still valid.
func (d *MDNS) HasPeer(id string) bool {
	return d.registry.HasPeer(id)
}

// Peers lists every peer with a valid discovery record.
func (d *MDNS) Peers() []string {
	return d.registry.Peers()
}

// StartAdvertising registers this peer's service.
func (d *MDNS) StartAdvertising() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.isRunning {
		return nil
	}

	server, err := zeroconf.Register(
		d.instance,
		d.opts.ServiceName,
		d.opts.Domain,
		d.port,
		[]string{"txtv=1", txtPeerID + d.self},
		nil,
	)
	if err != nil {
		return fmt.Errorf("register mdns service: %w", err)
	}
	if ttl := uint32(d.opts.RecordTTL / time.Second); ttl > 0 {
		server.TTL(ttl)
	}

	d.server = server
	d.isRunning = true
	d.log.Info().Str("instance", d.instance).Int("port", d.port).Msg("mdns advertisement started")
	return nil
}

// StopAdvertising shuts the advertisement down.
func (d *MDNS) StopAdvertising() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.server != nil {
		d.server.Shutdown()
		d.server = nil
		d.isRunning = false
		d.log.Info().Msg("mdns advertisement stopped")
	}
}

// Run browses in rounds until ctx is done, sending discovery events to out.
func (d *MDNS) Run(ctx context.Context, out chan<- core.Event) {
	ticker := time.NewTicker(d.opts.BrowseInterval)
	defer ticker.Stop()

	for {
		entries, err := d.browse(ctx)
		if err != nil {
			d.log.Warn().Err(err).Msg("mdns browse failed")
		}
		if !d.process(ctx, entries, out) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *MDNS) browse(ctx context.Context) ([]*zeroconf.ServiceEntry, error) {
	resolver, err := zeroconf.NewResolver()
	if err != nil {
		return nil, fmt.Errorf("create resolver: %w", err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, d.opts.BrowseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(browseCtx, d.opts.ServiceName, d.opts.Domain, entries); err != nil {
		return nil, fmt.Errorf("browse: %w", err)
	}

	var found []*zeroconf.ServiceEntry
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			if entry != nil {
				found = append(found, entry)
			}
		case <-browseCtx.Done():
			return found, nil
		}
	}
}

// process feeds one browse round into the registry and emits the resulting
// events. It returns false when ctx ended while sending.
func (d *MDNS) process(ctx context.Context, entries []*zeroconf.ServiceEntry, out chan<- core.Event) bool {
	now := d.now()

	var discovered []core.PeerRecord
	for _, entry := range entries {
		records, err := recordsFromEntry(entry)
		if err != nil {
			d.log.Debug().Err(err).Str("instance", entry.Instance).Msg("skipping mdns entry")
			continue
		}
		ttl := time.Duration(entry.TTL) * time.Second
		for _, rec := range records {
			if rec.ID == d.self {
				continue
			}
			if d.registry.Observe(rec, ttl, now) {
				discovered = append(discovered, rec)
			}
		}
	}
	expired := d.registry.Sweep(now)

	if len(discovered) > 0 {
		sortRecords(discovered)
		if !send(ctx, out, core.Event{Kind: core.EventPeerDiscovered, Records: discovered}) {
			return false
		}
	}
	if len(expired) > 0 {
		if !send(ctx, out, core.Event{Kind: core.EventPeerExpired, Records: expired}) {
			return false
		}
	}
	return ctx.Err() == nil
}

func send(ctx context.Context, out chan<- core.Event, ev core.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// recordsFromEntry returns one record per usable address of entry.
func recordsFromEntry(entry *zeroconf.ServiceEntry) ([]core.PeerRecord, error) {
	id, err := peerIDFromText(entry.Text)
	if err != nil {
		return nil, err
	}
	if entry.Port <= 0 {
		return nil, fmt.Errorf("invalid port %d", entry.Port)
	}

	var records []core.PeerRecord
	for _, ip := range entry.AddrIPv4 {
		if addr, ok := tcpMultiaddr("ip4", ip, entry.Port); ok {
			records = append(records, core.PeerRecord{ID: id, Addr: addr})
		}
	}
	for _, ip := range entry.AddrIPv6 {
		// link-local addresses need a zone the entry does not carry
		if ip.IsLinkLocalUnicast() {
			continue
		}
		if addr, ok := tcpMultiaddr("ip6", ip, entry.Port); ok {
			records = append(records, core.PeerRecord{ID: id, Addr: addr})
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no usable address for peer %s", id)
	}
	return records, nil
}

func peerIDFromText(text []string) (string, error) {
	for _, kv := range text {
		if value, ok := strings.CutPrefix(kv, txtPeerID); ok {
			id, err := peer.Decode(value)
			if err != nil {
				return "", fmt.Errorf("decode peer id: %w", err)
			}
			return id.String(), nil
		}
	}
	return "", fmt.Errorf("missing %q txt record", strings.TrimSuffix(txtPeerID, "="))
}

func tcpMultiaddr(proto string, ip net.IP, port int) (string, bool) {
	addr, err := ma.NewMultiaddr(fmt.Sprintf("/%s/%s/tcp/%d", proto, ip.String(), port))
	if err != nil {
		return "", false
	}
	return addr.String(), true
}
