package wsrelay

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
)

// AgentConn is one connected endpoint agent's WebSocket, identified by
// its agentId. Send is serialized with a mutex because concurrent
// websocket.Write calls on the same connection corrupt frames.
type AgentConn struct {
	AgentID  string
	DeviceID string
	OrgID    string
	conn     *websocket.Conn
	sendFn   func(ctx context.Context, data []byte) error // overridable for tests
	mu       sync.Mutex
}

func NewAgentConn(agentID, deviceID, orgID string, conn *websocket.Conn) *AgentConn {
	return &AgentConn{AgentID: agentID, DeviceID: deviceID, OrgID: orgID, conn: conn}
}

// Send writes a single framed message to the agent.
func (c *AgentConn) Send(ctx context.Context, frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := Encode(frame)
	if c.sendFn != nil {
		return c.sendFn(ctx, data)
	}
	if c.conn == nil {
		return fmt.Errorf("wsrelay: agent connection is nil")
	}
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

// AgentRegistry tracks connected agents by agentId, generalizing
// leapmux's workermgr.Manager one domain level up (worker -> agent).
type AgentRegistry struct {
	mu    sync.RWMutex
	conns map[string]*AgentConn
}

func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{conns: make(map[string]*AgentConn)}
}

// Register installs c as the live connection for its agentId,
// replacing any previous one.
func (r *AgentRegistry) Register(c *AgentConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.AgentID] = c
}

// Unregister removes c only if it is still the registered connection,
// so a stale connection's deferred cleanup can't evict a newer one
// that has already replaced it.
func (r *AgentRegistry) Unregister(agentID string, c *AgentConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[agentID] == c {
		delete(r.conns, agentID)
		return true
	}
	return false
}

func (r *AgentRegistry) Get(agentID string) *AgentConn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[agentID]
}

func (r *AgentRegistry) IsOnline(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[agentID]
	return ok
}

// Count returns the number of currently connected agents.
func (r *AgentRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast sends frame to every connected agent; per-connection
// errors are collected but do not stop delivery to the rest.
func (r *AgentRegistry) Broadcast(ctx context.Context, frame Frame) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	for agentID, c := range r.conns {
		if err := c.Send(ctx, frame); err != nil {
			errs[agentID] = err
		}
	}
	return errs
}
