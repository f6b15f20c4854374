package wsrelay

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// SessionParty identifies which end of a remote session a connection
// belongs to, since signaling must be relayed operator<->agent.
type SessionParty string

const (
	PartyOperator SessionParty = "operator"
	PartyAgent    SessionParty = "agent"
)

// SessionConn is one party's WebSocket leg of a remote session.
type SessionConn struct {
	SessionID string
	Party     SessionParty
	conn      *websocket.Conn
	sendFn    func(ctx context.Context, data []byte) error
	mu        sync.Mutex
}

func NewSessionConn(sessionID string, party SessionParty, conn *websocket.Conn) *SessionConn {
	return &SessionConn{SessionID: sessionID, Party: party, conn: conn}
}

func (c *SessionConn) Send(ctx context.Context, frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := Encode(frame)
	if c.sendFn != nil {
		return c.sendFn(ctx, data)
	}
	if c.conn == nil {
		return fmt.Errorf("wsrelay: session connection is nil")
	}
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

// SessionRegistry pairs the operator and agent legs of each remote
// session so a signal frame or data-channel frame arriving on one leg
// relays straight to the other, with the server never parsing the
// payload (spec.md: no server-side WebRTC media decoding).
type SessionRegistry struct {
	mu   sync.RWMutex
	legs map[string]map[SessionParty]*SessionConn // sessionID -> party -> conn
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{legs: make(map[string]map[SessionParty]*SessionConn)}
}

// Register installs c as the live leg for its (sessionID, party) pair.
func (r *SessionRegistry) Register(c *SessionConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.legs[c.SessionID] == nil {
		r.legs[c.SessionID] = make(map[SessionParty]*SessionConn)
	}
	r.legs[c.SessionID][c.Party] = c
}

// Unregister removes c only if it is still the registered leg.
func (r *SessionRegistry) Unregister(sessionID string, party SessionParty, c *SessionConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	parties := r.legs[sessionID]
	if parties == nil || parties[party] != c {
		return false
	}
	delete(parties, party)
	if len(parties) == 0 {
		delete(r.legs, sessionID)
	}
	return true
}

// Peer returns the other party's connection for a session, if connected.
func (r *SessionRegistry) Peer(sessionID string, from SessionParty) *SessionConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	parties := r.legs[sessionID]
	if parties == nil {
		return nil
	}
	other := PartyAgent
	if from == PartyAgent {
		other = PartyOperator
	}
	return parties[other]
}

// Relay forwards frame from the sender's leg to its peer, if connected.
// It reports false (no error) when no peer is currently attached, so
// callers can decide whether to buffer, drop, or error per frame type.
func (r *SessionRegistry) Relay(ctx context.Context, sessionID string, from SessionParty, frame Frame) (delivered bool, err error) {
	peer := r.Peer(sessionID, from)
	if peer == nil {
		return false, nil
	}
	if err := peer.Send(ctx, frame); err != nil {
		return false, err
	}
	return true, nil
}

// EndSession drops both legs of a session, e.g. on idle-timeout sweep
// or explicit termination.
func (r *SessionRegistry) EndSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.legs, sessionID)
}
