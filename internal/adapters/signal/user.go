package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/JohnAlva/livekit-video-calls/internal/core"
	"github.com/JohnAlva/livekit-video-calls/internal/domain"
)

func (ctl *SignalWSController) handleLogin(
	id core.ConnID,
	conn core.SignalConnection,
	data []byte,
) {
	type loginPayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p loginPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad login payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	if err := ctl.Registry.BindName(id, p.Name); err != nil {
		msg := "name required"
		if errors.Is(err, domain.ErrUsernameTooLong) {
			msg = "name too long"
		}
		ctl.sendError(conn, msg)
		return
	}

	log.Info().Str("module", "signal").Str("conn", string(id)).Str("name", p.Name).Msg("login")
	ctl.sendJSON(conn, struct {
		Type    string `json:"type"`
		Success bool   `json:"success"`
	}{"login", true})
	ctl.broadcastUserList()
}

// broadcastUserList goes to every live connection, anonymous ones included.
func (ctl *SignalWSController) broadcastUserList() {
	resp := struct {
		Type  string   `json:"type"`
		Users []string `json:"users"`
	}{"userlist", ctl.Registry.Usernames()}
	for _, conn := range ctl.Registry.Connections() {
		ctl.sendJSON(conn, resp)
	}
}
