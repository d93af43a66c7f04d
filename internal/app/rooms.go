package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/core"
	"github.com/JohnAlva/livekit-video-calls/internal/domain"
)

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}

// RoomTracker tracks which connections belong to which rooms. Rooms are
// created on first join and dropped when the last member leaves.
type RoomTracker struct {
	mu    sync.RWMutex
	rooms map[domain.RoomName]map[core.ConnID]struct{}
}

func NewRoomTracker() *RoomTracker {
	return &RoomTracker{rooms: make(map[domain.RoomName]map[core.ConnID]struct{})}
}

// Join adds a connection to a room. Set semantics: joining twice is a no-op.
func (t *RoomTracker) Join(id core.ConnID, name domain.RoomName) error {
	if name == "" {
		return domain.ErrRoomNameEmpty
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	members, ok := t.rooms[name]
	if !ok {
		members = make(map[core.ConnID]struct{})
		t.rooms[name] = members
	}
	members[id] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("conn", string(id)).Str("room", string(name)).Msg("joined room")
	return nil
}

// Members snapshots a room's membership. Empty for unknown rooms.
func (t *RoomTracker) Members(name domain.RoomName) []core.ConnID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.rooms[name]
	out := make([]core.ConnID, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// RemoveConn removes a connection from every room it belongs to and
// garbage-collects rooms it leaves empty.
func (t *RoomTracker) RemoveConn(id core.ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name, members := range t.rooms {
		if _, ok := members[id]; !ok {
			continue
		}
		delete(members, id)
		if len(members) == 0 {
			delete(t.rooms, name)
		}
		log.Info().Str("module", "app.rooms").Str("conn", string(id)).Str("room", string(name)).Msg("left room")
	}
}

func (t *RoomTracker) List() []RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RoomInfo, 0, len(t.rooms))
	for name, members := range t.rooms {
		out = append(out, RoomInfo{Name: name, MemberCount: len(members)})
	}
	return out
}
