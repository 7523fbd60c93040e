package proto

// TimeLayout is the textual timestamp format carried on the wire
// (strftime "%Y-%m-%d %H:%M:%S %z").
const TimeLayout = "2006-01-02 15:04:05 -0700"

// Person identifies the sender of a message by display alias only.
type Person struct {
	Alias *string `json:"alias"`
}

// Envelope is the JSON object broadcast on a topic.
// Pointer fields let decoding tell a missing field from an empty one.
type Envelope struct {
	Alias    *Person `json:"alias"`
	Content  *string `json:"content"`
	Datetime *string `json:"datetime"`
}

// EventMessage is streamed to local websocket observers.
type EventMessage struct {
	Alias    string `json:"alias"`
	Content  string `json:"content"`
	Datetime string `json:"datetime"`
}

// Status describes the running client for the local status endpoint.
type Status struct {
	Topic  string   `json:"topic"`
	Alias  string   `json:"alias"`
	PeerID string   `json:"peer_id"`
	Peers  []string `json:"peers"`
}
