package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/core"
)

// handleCallUser resolves the callee by display name and rings only that
// connection.
func (ctl *SignalWSController) handleCallUser(
	id core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type callPayload struct {
		Type string `json:"type"`
		To   string `json:"to"`
	}
	var p callPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call_user payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	target, ok := ctl.Registry.Lookup(p.To)
	if !ok {
		ctl.sendError(conn, "user not found")
		return
	}
	tc, ok := ctl.Registry.Conn(target)
	if !ok {
		ctl.sendError(conn, "user not found")
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(id)).Str("to", p.To).Msg("call_user")
	ctl.sendJSON(tc, struct {
		Type string `json:"type"`
		From string `json:"from"`
		Name string `json:"name"`
	}{"incoming_call", string(id), ctl.Registry.Username(id)})
}

// handleCallAccepted addresses the caller by connection id. A missing or
// unknown target is dropped silently, as the reference behavior does.
func (ctl *SignalWSController) handleCallAccepted(
	id core.ConnID,
	data []byte,
) {
	type acceptPayload struct {
		Type string `json:"type"`
		To   string `json:"to"`
	}
	var p acceptPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call_accepted payload")
		return
	}
	if p.To == "" {
		return
	}
	if tc, ok := ctl.Registry.Conn(core.ConnID(p.To)); ok {
		ctl.sendJSON(tc, struct {
			Type string `json:"type"`
			From string `json:"from"`
		}{"call_accepted", string(id)})
	}
}

// handleSignalRelay forwards a negotiation payload verbatim. The relay
// never inspects the signal body; it stays a raw JSON blob end to end.
func (ctl *SignalWSController) handleSignalRelay(
	id core.ConnID,
	data []byte,
) {
	type signalPayload struct {
		Type   string          `json:"type"`
		To     string          `json:"to"`
		Signal json.RawMessage `json:"signal"`
	}
	var p signalPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		return
	}
	if p.To == "" {
		return
	}
	if tc, ok := ctl.Registry.Conn(core.ConnID(p.To)); ok {
		ctl.sendJSON(tc, struct {
			Type   string          `json:"type"`
			From   string          `json:"from"`
			Signal json.RawMessage `json:"signal"`
		}{"signal_received", string(id), p.Signal})
	}
}
