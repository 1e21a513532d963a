package wire

import "encoding/json"

// Inbound command names, exactly as they appear over the wire.
const (
	CmdRoomCreate = "room.create"
	CmdRoomJoin   = "room.join"
	CmdRoomLeave  = "room.leave"
	CmdLobbyReady = "lobby.ready"
	CmdLobbyKick  = "lobby.kick"
	CmdLobbyStart = "lobby.start"
	CmdGameStop   = "game.stop"
	CmdGameFlip   = "game.flip"
	CmdGameSlap   = "game.slap"
	CmdPing       = "ping"
)

// Envelope is the outer shape of every inbound message: a command name plus
// a raw payload dispatched to the matching handler.
type Envelope struct {
	Cmd     string          `json:"cmd"`
	Payload json.RawMessage `json:"payload"`
}

// RoomCreatePayload is room.create's payload.
type RoomCreatePayload struct {
	DisplayName string `json:"displayName"`
}

// RoomJoinPayload is room.join's payload. UserID is present on reconnect.
type RoomJoinPayload struct {
	RoomCode    string  `json:"roomCode"`
	DisplayName string  `json:"displayName"`
	UserID      *string `json:"userId,omitempty"`
}

// LobbyReadyPayload is lobby.ready's payload.
type LobbyReadyPayload struct {
	Ready bool `json:"ready"`
}

// LobbyKickPayload is lobby.kick's payload.
type LobbyKickPayload struct {
	UserID string `json:"userId"`
}

// GameFlipPayload is game.flip's payload.
type GameFlipPayload struct {
	ClientSeq  uint64 `json:"clientSeq"`
	ClientTime int64  `json:"clientTime"`
}

// GameSlapPayload is game.slap's payload.
type GameSlapPayload struct {
	EventID    string  `json:"eventId"`
	Gesture    *string `json:"gesture,omitempty"`
	ClientSeq  uint64  `json:"clientSeq"`
	ClientTime int64   `json:"clientTime"`
	OffsetMs   int64   `json:"offsetMs"`
	RTTMs      int64   `json:"rttMs"`
}

// PingPayload is ping's payload.
type PingPayload struct {
	ClientTime int64 `json:"clientTime"`
}
