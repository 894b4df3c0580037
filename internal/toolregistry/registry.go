package toolregistry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/sandboxcore/core/internal/models"
)

// Registry holds the latest tools/list publication from each configured
// MCP server.
type Registry struct {
	mu      sync.RWMutex
	servers map[string][]models.ToolDescriptor

	lookupCache *ristretto.Cache[string, models.ToolDescriptor]
}

// New creates an empty Registry.
func New() *Registry {
	cache, err := ristretto.NewCache(&ristretto.Config[string, models.ToolDescriptor]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		// NewCache only fails on invalid config; the literal above is
		// known-good, so this would indicate a programming error.
		panic(fmt.Sprintf("toolregistry: building lookup cache: %v", err))
	}
	return &Registry{
		servers:     make(map[string][]models.ToolDescriptor),
		lookupCache: cache,
	}
}

func cacheKey(server, tool string) string { return server + "\x00" + tool }

// Publish replaces the tool list for server. Called once per session
// start (and once per restart, after a fresh handshake).
func (r *Registry) Publish(server string, tools []models.ToolDescriptor) {
	r.mu.Lock()
	old := r.servers[server]
	r.servers[server] = tools
	r.mu.Unlock()

	for _, t := range old {
		r.lookupCache.Del(cacheKey(server, t.Name))
	}
	for _, t := range tools {
		r.lookupCache.SetWithTTL(cacheKey(server, t.Name), t, 1, 0)
	}
	r.lookupCache.Wait()
}

// Lookup resolves one tool descriptor by server and tool name.
func (r *Registry) Lookup(server, tool string) (models.ToolDescriptor, bool) {
	if t, ok := r.lookupCache.Get(cacheKey(server, tool)); ok {
		return t, true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.servers[server] {
		if t.Name == tool {
			return t, true
		}
	}
	return models.ToolDescriptor{}, false
}

// All concatenates every server's published tools, sorted by server then
// name for a stable GET /mcp/tools response.
func (r *Registry) All() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ToolDescriptor, 0)
	for _, tools := range r.servers {
		out = append(out, tools...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Server != out[j].Server {
			return out[i].Server < out[j].Server
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Servers returns the names of every server with a published tool list.
func (r *Registry) Servers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.servers))
	for name := range r.servers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
