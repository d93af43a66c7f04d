package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/core"
	"github.com/JohnAlva/livekit-video-calls/internal/domain"
)

func (ctl *SignalWSController) handleJoinRoom(
	id core.ConnID,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_room payload")
		return
	}

	room := domain.RoomName(p.Room)
	if err := ctl.Rooms.Join(id, room); err != nil {
		// Empty room names are dropped, not answered.
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", p.Room).Msg("join_room")

	// Name may still be unset if join_room precedes login.
	resp := struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	}{"new_user", string(id), ctl.Registry.Username(id)}
	for _, member := range ctl.Rooms.Members(room) {
		if member == id {
			continue
		}
		if mc, ok := ctl.Registry.Conn(member); ok {
			ctl.sendJSON(mc, resp)
		}
	}
}

func (ctl *SignalWSController) handleRoomChat(
	id core.ConnID,
	data []byte,
) {
	type chatPayload struct {
		Type    string `json:"type"`
		Room    string `json:"room"`
		Message string `json:"message"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad room_chat payload")
		return
	}
	if p.Room == "" {
		return
	}

	// Chat is a broadcast: the sender hears its own message back.
	resp := struct {
		Type    string `json:"type"`
		From    string `json:"from"`
		Message string `json:"message"`
	}{"room_chat", ctl.Registry.Username(id), p.Message}
	for _, member := range ctl.Rooms.Members(domain.RoomName(p.Room)) {
		if mc, ok := ctl.Registry.Conn(member); ok {
			ctl.sendJSON(mc, resp)
		}
	}
}
