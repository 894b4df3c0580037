package mcpsession

import (
	"context"
	"sync"
	"time"

	"github.com/sandboxcore/core/internal/errs"
	"github.com/sandboxcore/core/internal/models"
	"github.com/sandboxcore/core/internal/toolregistry"
)

// Manager is the gateway's SessionManager (spec.md §4.8): it owns one
// Session per configured MCP server, tracks each session's last-known
// state for /health, and is the single entry point the HTTP layer calls
// to dispatch a tools/call.
type Manager struct {
	sessions map[string]*Session
	registry *toolregistry.Registry

	mu     sync.RWMutex
	states map[string]State
}

// NewManager builds a Manager with one Session per descriptor. Sessions
// are not started; the caller registers each one (via Sessions) with a
// supervisor tree, which starts them.
func NewManager(descriptors []models.MCPServerDescriptor, registry *toolregistry.Registry, healthCheckInterval time.Duration, restartPolicy string) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session, len(descriptors)),
		registry: registry,
		states:   make(map[string]State, len(descriptors)),
	}
	for _, d := range descriptors {
		d := d
		m.states[d.Name] = StateStarting
		m.sessions[d.Name] = New(d, registry, healthCheckInterval, restartPolicy, m.recordState)
	}
	return m
}

func (m *Manager) recordState(server string, _, current State) {
	m.mu.Lock()
	m.states[server] = current
	m.mu.Unlock()
}

// Sessions returns every managed Session, for supervisor-tree registration.
func (m *Manager) Sessions() []*Session {
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Call resolves server to a Session and dispatches a tools/call,
// substituting the tool's configured timeout (or 30s) when the caller
// does not specify one.
func (m *Manager) Call(ctx context.Context, server, toolName string, input []byte, timeout time.Duration) (*models.ExecutionOutcome, *errs.Error) {
	session, ok := m.sessions[server]
	if !ok {
		return nil, errs.New(errs.KindServerNotFound, "no MCP server configured with that name")
	}

	if timeout <= 0 {
		timeout = defaultToolTimeout
		if tool, found := m.registry.Lookup(server, toolName); found && tool.TimeoutMs > 0 {
			timeout = time.Duration(tool.TimeoutMs) * time.Millisecond
		}
	}

	return session.Call(ctx, toolName, input, timeout)
}

// Tools concatenates every server's published tools.
func (m *Manager) Tools() []models.ToolDescriptor {
	return m.registry.All()
}

// HealthSnapshot reports overall status ("ok" if every configured server
// is Available, "degraded" otherwise) plus each server's current state.
func (m *Manager) HealthSnapshot() (string, map[string]string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	servers := make(map[string]string, len(m.states))
	status := "ok"
	for name, state := range m.states {
		servers[name] = state.String()
		if state != StateAvailable {
			status = "degraded"
		}
	}
	return status, servers
}
