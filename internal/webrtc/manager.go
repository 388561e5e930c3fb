package webrtc

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/pion/webrtc/v4"
)

// Data channel labels.
const (
	// ChannelControl is ordered and reliable: discrete events, actions.
	ChannelControl = "control"
	// ChannelInput is unordered without retransmits: pointer movement,
	// wheel and live snapshots, where only the latest value matters.
	ChannelInput = "input"
)

// Manager manages WebRTC peer connections
type Manager struct {
	mu          sync.RWMutex
	api         *webrtc.API
	config      webrtc.Configuration
	connections map[string]*PeerConnection
}

// NewManager creates a new WebRTC manager
func NewManager(iceServers []string, turnUsername, turnCredential string) (*Manager, error) {
	servers := make([]webrtc.ICEServer, 0, len(iceServers))
	for _, url := range iceServers {
		server := webrtc.ICEServer{URLs: []string{url}}
		if turnUsername != "" && strings.HasPrefix(url, "turn") {
			server.Username = turnUsername
			server.Credential = turnCredential
		}
		servers = append(servers, server)
	}

	// No media is negotiated, only data channels.
	api := webrtc.NewAPI()

	return &Manager{
		api:         api,
		config:      webrtc.Configuration{ICEServers: servers},
		connections: make(map[string]*PeerConnection),
	}, nil
}

// Config returns the peer connection configuration.
func (m *Manager) Config() webrtc.Configuration {
	return m.config
}

// CreatePeerConnection creates a new peer connection for a session
func (m *Manager) CreatePeerConnection(id string) (*PeerConnection, error) {
	pc, err := m.api.NewPeerConnection(m.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	conn := &PeerConnection{
		id:        id,
		pc:        pc,
		dataChans: make(map[string]*webrtc.DataChannel),
	}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("Peer %s connection state: %s", id, state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed:
			m.remove(id, conn)
			go conn.Close()
		case webrtc.PeerConnectionStateClosed:
			m.remove(id, conn)
		}
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		log.Printf("Peer %s ICE state: %s", id, state.String())
	})

	// Pages may open the channels themselves instead of answering ours.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		conn.register(dc)
	})

	m.mu.Lock()
	old := m.connections[id]
	m.connections[id] = conn
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return conn, nil
}

// GetPeerConnection returns an existing peer connection
func (m *Manager) GetPeerConnection(id string) *PeerConnection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.connections[id]
}

// RemovePeerConnection closes and removes a peer connection
func (m *Manager) RemovePeerConnection(id string) {
	m.mu.Lock()
	conn, ok := m.connections[id]
	delete(m.connections, id)
	m.mu.Unlock()

	if ok {
		conn.Close()
	}
}

// remove drops conn unless it was already replaced under id.
func (m *Manager) remove(id string, conn *PeerConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connections[id] == conn {
		delete(m.connections, id)
	}
}

// CloseAll closes all peer connections
func (m *Manager) CloseAll() {
	m.mu.Lock()
	conns := m.connections
	m.connections = make(map[string]*PeerConnection)
	m.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// PeerConnection wraps a WebRTC peer connection carrying input events.
type PeerConnection struct {
	id        string
	pc        *webrtc.PeerConnection
	mu        sync.Mutex
	dataChans map[string]*webrtc.DataChannel
	onMessage func(channel string, data []byte)
	closeOnce sync.Once
}

// OnMessage sets the handler for messages on either data channel. It
// must be set before the channels open.
func (p *PeerConnection) OnMessage(fn func(channel string, data []byte)) {
	p.mu.Lock()
	p.onMessage = fn
	p.mu.Unlock()
}

// SetupDataChannels creates the control and input channels.
func (p *PeerConnection) SetupDataChannels() error {
	controlDC, err := p.pc.CreateDataChannel(ChannelControl, &webrtc.DataChannelInit{
		Ordered: boolPtr(true),
	})
	if err != nil {
		return fmt.Errorf("create %s channel: %w", ChannelControl, err)
	}
	p.register(controlDC)

	inputDC, err := p.pc.CreateDataChannel(ChannelInput, &webrtc.DataChannelInit{
		Ordered:        boolPtr(false),
		MaxRetransmits: uint16Ptr(0),
	})
	if err != nil {
		return fmt.Errorf("create %s channel: %w", ChannelInput, err)
	}
	p.register(inputDC)
	return nil
}

func (p *PeerConnection) register(dc *webrtc.DataChannel) {
	label := dc.Label()
	if label != ChannelControl && label != ChannelInput {
		log.Printf("Peer %s opened unknown data channel %q", p.id, label)
		return
	}

	p.mu.Lock()
	p.dataChans[label] = dc
	p.mu.Unlock()

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		p.mu.Lock()
		fn := p.onMessage
		p.mu.Unlock()
		if fn != nil {
			fn(label, msg.Data)
		}
	})
}

// HandleOffer processes an SDP offer and returns an answer
func (p *PeerConnection) HandleOffer(offerSDP string) (string, error) {
	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  offerSDP,
	}

	if err := p.pc.SetRemoteDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create answer: %w", err)
	}

	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	<-webrtc.GatheringCompletePromise(p.pc)

	return p.pc.LocalDescription().SDP, nil
}

// CreateOffer creates an SDP offer
func (p *PeerConnection) CreateOffer() (string, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create offer: %w", err)
	}

	if err := p.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("failed to set local description: %w", err)
	}

	<-webrtc.GatheringCompletePromise(p.pc)

	return p.pc.LocalDescription().SDP, nil
}

// HandleAnswer processes an SDP answer
func (p *PeerConnection) HandleAnswer(answerSDP string) error {
	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answerSDP,
	}

	return p.pc.SetRemoteDescription(answer)
}

// AddICECandidate adds an ICE candidate
func (p *PeerConnection) AddICECandidate(candidateJSON string) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal([]byte(candidateJSON), &candidate); err != nil {
		return err
	}
	return p.pc.AddICECandidate(candidate)
}

// OnICECandidate sets a callback for new ICE candidates
func (p *PeerConnection) OnICECandidate(fn func(candidate string)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c != nil {
			candidateJSON, _ := json.Marshal(c.ToJSON())
			fn(string(candidateJSON))
		}
	})
}

// Open reports whether the named channel can send.
func (p *PeerConnection) Open(channel string) bool {
	p.mu.Lock()
	dc := p.dataChans[channel]
	p.mu.Unlock()
	return dc != nil && dc.ReadyState() == webrtc.DataChannelStateOpen
}

// Send writes data to the named channel. It reports false when the
// channel is not open, so callers can fall back to the websocket.
func (p *PeerConnection) Send(channel string, data []byte) (bool, error) {
	p.mu.Lock()
	dc := p.dataChans[channel]
	p.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return false, nil
	}
	return true, dc.Send(data)
}

// SignalingState reports where the offer/answer exchange stands.
func (p *PeerConnection) SignalingState() webrtc.SignalingState {
	return p.pc.SignalingState()
}

// Close closes the peer connection
func (p *PeerConnection) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.pc.Close() })
	return err
}

func boolPtr(b bool) *bool {
	return &b
}

func uint16Ptr(n uint16) *uint16 {
	return &n
}
