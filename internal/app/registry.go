package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/core"
	"github.com/JohnAlva/livekit-video-calls/internal/domain"
)

type connEntry struct {
	Conn     core.SignalConnection
	Username string
}

// Registry tracks live connections and the display name bound to each.
// The directory maps a name to exactly one live connection; a later login
// under the same name silently repoints the entry.
type Registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*connEntry
	names map[string]core.ConnID
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[core.ConnID]*connEntry),
		names: make(map[string]core.ConnID),
	}
}

func (r *Registry) Register(id core.ConnID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &connEntry{Conn: conn}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("registered connection")
}

// BindName binds a display name to a connection. Rebinding the same
// connection drops its previous directory entry; binding a name held by
// another connection evicts that entry without notifying it.
func (r *Registry) BindName(id core.ConnID, name string) error {
	if err := domain.ValidateUsername(name); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[id]
	if !ok {
		return nil
	}
	if entry.Username != "" && entry.Username != name {
		delete(r.names, entry.Username)
	}
	entry.Username = name
	r.names[name] = id
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("username", name).Msg("bound name")
	return nil
}

func (r *Registry) Lookup(name string) (core.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.names[name]
	return id, ok
}

func (r *Registry) Conn(id core.ConnID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (r *Registry) Username(id core.ConnID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Username
	}
	return ""
}

// Unregister removes a connection. The directory entry for its name is
// removed only if it still points at this connection, so a name that was
// rebound elsewhere survives. Idempotent. Reports whether a directory
// entry was removed (the caller re-broadcasts the user list if so).
func (r *Registry) Unregister(id core.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.conns[id]
	if !ok {
		return false
	}
	delete(r.conns, id)
	if entry.Username != "" && r.names[entry.Username] == id {
		delete(r.names, entry.Username)
		log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("username", entry.Username).Msg("unregistered connection")
		return true
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered connection")
	return false
}

// Usernames returns all bound names, sorted.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Connections snapshots every live connection, named or not.
func (r *Registry) Connections() []core.SignalConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SignalConnection, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.Conn)
	}
	return out
}
