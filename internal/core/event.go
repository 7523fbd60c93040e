package core

// EventKind is a notification the network layer delivers to the session.
type EventKind int

const (
	// EventPeerDiscovered reports new discovery records.
	EventPeerDiscovered EventKind = iota
	// EventPeerExpired reports discovery records that lapsed.
	EventPeerExpired
	// EventMessageReceived carries a broadcast payload from a remote peer.
	EventMessageReceived
	// EventNetwork is any other protocol event (connection bookkeeping etc).
	EventNetwork
)

func (k EventKind) String() string {
	switch k {
	case EventPeerDiscovered:
		return "peer_discovered"
	case EventPeerExpired:
		return "peer_expired"
	case EventMessageReceived:
		return "message_received"
	case EventNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// PeerRecord is one discovery record: a peer reachable at an address.
// A peer may be advertised by several records at once.
type PeerRecord struct {
	ID   string
	Addr string
}

// Event is sent by the network layer to describe what happened.
type Event struct {
	Kind    EventKind
	Records []PeerRecord // discovery events
	Topic   string       // EventMessageReceived
	From    string       // EventMessageReceived
	Data    []byte       // EventMessageReceived
	Detail  string       // EventNetwork
}

// InputEvent is one line read from the local input, or the error that ended it.
type InputEvent struct {
	Line string
	Err  error
}
