// Package protocol defines the messages exchanged with a relayed browser
// page over the websocket and the WebRTC data channels.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/listener"
	"github.com/zalo/manapotion/internal/store"
)

// MessageType names a message.
type MessageType string

const (
	// Client -> Server
	MsgHello        MessageType = "hello"
	MsgEvent        MessageType = "event"
	MsgCandidate    MessageType = "candidate"
	MsgActionResult MessageType = "action_result"
	MsgLeave        MessageType = "leave"

	// Server -> Client
	MsgSessionInfo  MessageType = "session_info"
	MsgState        MessageType = "state"
	MsgLive         MessageType = "live"
	MsgAction       MessageType = "action"
	MsgICECandidate MessageType = "ice_candidate"
	MsgError        MessageType = "error"

	// Either direction; the side that did not offer answers.
	MsgOffer  MessageType = "offer"
	MsgAnswer MessageType = "answer"
)

// Message is the envelope of every message.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps v in an envelope of type t.
func Encode(t MessageType, v any) ([]byte, error) {
	msg := Message{Type: t}
	if v != nil {
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", t, err)
		}
		msg.Payload = payload
	}
	return json.Marshal(msg)
}

// Decode parses an envelope.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("decode message: missing type")
	}
	return msg, nil
}

// Into decodes the payload into v.
func (m Message) Into(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s payload: %w", m.Type, err)
	}
	return nil
}

// Hello is the first message of a page. It reports the page state and
// optionally overrides listener timing.
type Hello struct {
	host.PageInfo
	StreamLive bool            `json:"streamLive,omitempty"`
	Timing     listener.Timing `json:"timing,omitempty"`

	// DataChannels asks the server to open the control and input data
	// channels and send an offer.
	DataChannels bool `json:"dataChannels,omitempty"`
}

// SessionInfo answers Hello.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	FrameRate int    `json:"frame_rate"`
}

// State carries a reactive change.
type State struct {
	Signal   store.Signal     `json:"signal"`
	Reactive store.State      `json:"reactive"`
	Keys     []store.KeyState `json:"keys"`
}

// Live carries a live snapshot, sent once per frame when requested.
type Live struct {
	Elapsed int64       `json:"elapsed_ms"`
	Live    store.State `json:"live"`
}

// ActionRequest asks the page to perform an imperative action.
type ActionRequest struct {
	ID string `json:"id"`
	host.Action
}

// Failure reasons reported in ActionResult.
const (
	ReasonUnsupported = "unsupported"
	ReasonRejected    = "rejected"
)

// ActionResult is the page's answer to an ActionRequest.
type ActionResult struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Err converts a failed result into an error wrapping host.ErrUnsupported
// or host.ErrRejected.
func (r ActionResult) Err() error {
	if r.OK {
		return nil
	}
	base := host.ErrRejected
	if r.Reason == ReasonUnsupported {
		base = host.ErrUnsupported
	}
	if r.Error == "" {
		return base
	}
	return fmt.Errorf("%s: %w", r.Error, base)
}

// SDP carries an offer or answer.
type SDP struct {
	SDP string `json:"sdp"`
}

// Candidate carries an ICE candidate as JSON.
type Candidate struct {
	Candidate string `json:"candidate"`
}

// Error reports a failure to the page.
type Error struct {
	Error string `json:"error"`
}
