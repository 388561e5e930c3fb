package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/zalo/manapotion/internal/host"
	"github.com/zalo/manapotion/internal/protocol"
	"github.com/zalo/manapotion/internal/session"
	mwebrtc "github.com/zalo/manapotion/internal/webrtc"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for simplicity
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// errSendBufferFull is returned when a page does not drain its messages.
var errSendBufferFull = errors.New("send buffer full")

// wsClient is one connected page. It is the session's Sink.
type wsClient struct {
	conn   *websocket.Conn
	send   chan []byte
	server *Server

	mu     sync.Mutex
	closed bool
	sess   *session.Session
	pc     *mwebrtc.PeerConnection
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, 256),
		server: s,
	}

	sess, err := s.sessions.CreateSession(client)
	if err != nil {
		data, _ := protocol.Encode(protocol.MsgError, protocol.Error{Error: err.Error()})
		conn.WriteMessage(websocket.TextMessage, data)
		conn.Close()
		return
	}
	client.sess = sess

	s.mu.Lock()
	s.clients[sess.ID] = client
	s.mu.Unlock()

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		if err := c.server.sessions.CloseSession(c.sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
			log.Printf("Failed to close session %s: %v", c.sess.ID, err)
		}
		c.server.webrtc.RemovePeerConnection(c.sess.ID)
		c.server.mu.Lock()
		if c.server.clients[c.sess.ID] == c {
			delete(c.server.clients, c.sess.ID)
		}
		c.server.mu.Unlock()
		c.close()
		c.conn.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			log.Printf("Invalid message: %v", err)
			continue
		}

		if !c.handleMessage(msg) {
			return
		}
	}
}

// handleMessage processes one message. It returns false when the page
// leaves.
func (c *wsClient) handleMessage(msg protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgHello:
		var hello protocol.Hello
		if err := msg.Into(&hello); err != nil {
			c.sendError(err)
			return true
		}
		if err := c.sess.Start(context.Background(), hello); err != nil {
			c.sendError(err)
			return true
		}
		c.Send(protocol.MsgSessionInfo, protocol.SessionInfo{
			SessionID: c.sess.ID,
			FrameRate: c.server.sessions.Config().FrameRate,
		})
		if hello.DataChannels {
			if err := c.offer(); err != nil {
				log.Printf("Session %s: data channel offer failed: %v", c.sess.ID, err)
				c.sendError(err)
			}
		}

	case protocol.MsgOffer:
		var payload protocol.SDP
		if err := msg.Into(&payload); err != nil {
			c.sendError(err)
			return true
		}
		pc, err := c.peerConnection()
		if err != nil {
			c.sendError(err)
			return true
		}
		answer, err := pc.HandleOffer(payload.SDP)
		if err != nil {
			c.sendError(err)
			return true
		}
		c.Send(protocol.MsgAnswer, protocol.SDP{SDP: answer})

	case protocol.MsgAnswer:
		var payload protocol.SDP
		if err := msg.Into(&payload); err != nil {
			c.sendError(err)
			return true
		}
		c.mu.Lock()
		pc := c.pc
		c.mu.Unlock()
		if pc == nil {
			c.sendError(errors.New("answer without offer"))
			return true
		}
		if err := pc.HandleAnswer(payload.SDP); err != nil {
			c.sendError(err)
		}

	case protocol.MsgCandidate:
		var payload protocol.Candidate
		if err := msg.Into(&payload); err != nil {
			c.sendError(err)
			return true
		}
		c.mu.Lock()
		pc := c.pc
		c.mu.Unlock()
		if pc == nil {
			return true
		}
		if err := pc.AddICECandidate(payload.Candidate); err != nil {
			log.Printf("Failed to add ICE candidate: %v", err)
		}

	case protocol.MsgLeave:
		return false

	default:
		c.handleInput(msg)
	}
	return true
}

// handleInput processes the messages accepted on both the websocket and
// the data channels.
func (c *wsClient) handleInput(msg protocol.Message) {
	switch msg.Type {
	case protocol.MsgEvent:
		var ev host.Event
		if err := msg.Into(&ev); err != nil {
			log.Printf("Session %s: %v", c.sess.ID, err)
			return
		}
		c.sess.Dispatch(ev)

	case protocol.MsgActionResult:
		var res protocol.ActionResult
		if err := msg.Into(&res); err != nil {
			log.Printf("Session %s: %v", c.sess.ID, err)
			return
		}
		if !c.sess.Resolve(res) {
			log.Printf("Session %s: no pending action %s", c.sess.ID, res.ID)
		}

	default:
		log.Printf("Session %s: unexpected message %q", c.sess.ID, msg.Type)
	}
}

// peerConnection returns the page's WebRTC connection, creating it on the
// first offer. Channels opened by the page are picked up on negotiation.
func (c *wsClient) peerConnection() (*mwebrtc.PeerConnection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pc != nil {
		return c.pc, nil
	}
	pc, err := c.server.webrtc.CreatePeerConnection(c.sess.ID)
	if err != nil {
		return nil, err
	}
	pc.OnMessage(func(channel string, data []byte) {
		msg, err := protocol.Decode(data)
		if err != nil {
			log.Printf("Invalid %s channel message: %v", channel, err)
			return
		}
		c.handleInput(msg)
	})
	pc.OnICECandidate(func(candidate string) {
		c.Send(protocol.MsgICECandidate, protocol.Candidate{Candidate: candidate})
	})
	c.pc = pc
	return pc, nil
}

// disconnect closes the websocket of the page owning session id. The read
// pump then finishes the teardown.
func (s *Server) disconnect(id string) {
	s.mu.RLock()
	c := s.clients[id]
	s.mu.RUnlock()
	if c != nil {
		c.conn.Close()
	}
}

// offer opens the data channels from the server side and sends the offer.
// The page replies with an answer.
func (c *wsClient) offer() error {
	pc, err := c.peerConnection()
	if err != nil {
		return err
	}
	if err := pc.SetupDataChannels(); err != nil {
		return err
	}
	sdp, err := pc.CreateOffer()
	if err != nil {
		return err
	}
	return c.Send(protocol.MsgOffer, protocol.SDP{SDP: sdp})
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// Send implements session.Sink. Live snapshots go over the unordered data
// channel when it is open.
func (c *wsClient) Send(t protocol.MessageType, v any) error {
	data, err := protocol.Encode(t, v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	pc := c.pc
	c.mu.Unlock()
	if pc != nil && t == protocol.MsgLive && pc.Open(mwebrtc.ChannelInput) {
		if sent, err := pc.Send(mwebrtc.ChannelInput, data); sent || err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return session.ErrClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		// Buffer full, close connection
		c.closed = true
		close(c.send)
		return errSendBufferFull
	}
}

func (c *wsClient) sendError(err error) {
	c.Send(protocol.MsgError, protocol.Error{Error: err.Error()})
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
