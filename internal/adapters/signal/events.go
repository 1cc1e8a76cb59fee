package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkurin/huddle/internal/core"
	"github.com/dkurin/huddle/internal/domain"
)

func (ctl *Controller) handleJoin(
	connID domain.ConnID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type core.EventKind `json:"type"`
		Room string         `json:"room"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendJSON(conn, core.NewError("bad_payload"))
		return
	}
	if p.Room == "" {
		ctl.sendJSON(conn, core.NewError("empty room"))
		return
	}

	roomID := domain.RoomID(p.Room)
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("room", p.Room).Msg("join")
	members := ctl.Coord.JoinRoom(connID, roomID)

	ctl.sendJSON(conn, core.JoinedEvent{
		Type:    core.EventJoined,
		Room:    roomID,
		Members: members,
	})
}

// handleLeave exits the current room without dropping the connection.
func (ctl *Controller) handleLeave(
	connID domain.ConnID,
	conn *WsSignalConn,
) {
	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("leave")
	ctl.Coord.LeaveRoom(connID)
	ctl.sendJSON(conn, core.Envelope{Type: core.EventLeft})
}

func (ctl *Controller) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, core.Envelope{Type: core.EventPong})
}
