// Package wire defines the JSON-over-websocket contract between the
// orchestrator and connected clients: inbound command payloads, outbound
// event payloads, and the wire-stable error taxonomy.
package wire

// Code is a wire-stable error identifier. Clients switch on this string, not
// on Message, so renaming Code values is a breaking change.
type Code string

const (
	CodeInvalidName      Code = "INVALID_NAME"
	CodeRoomNotFound     Code = "ROOM_NOT_FOUND"
	CodeRoomFull         Code = "ROOM_FULL"
	CodeNotInLobby       Code = "NOT_IN_LOBBY"
	CodeNotInGame        Code = "NOT_IN_GAME"
	CodeNotHost          Code = "NOT_HOST"
	CodeNotYourTurn      Code = "NOT_YOUR_TURN"
	CodeSlapWindowActive Code = "SLAP_WINDOW_ACTIVE"
	CodeNoSlapWindow     Code = "NO_SLAP_WINDOW"
	CodeInvalidEventID   Code = "INVALID_EVENT_ID"
	CodeAlreadySlapped   Code = "ALREADY_SLAPPED"
	CodeInvalidTarget    Code = "INVALID_TARGET"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternalError    Code = "INTERNAL_ERROR"
)

// recoverable is the set of codes that trigger an out-of-band resync to the
// affected socket.
var recoverable = map[Code]bool{
	CodeNotYourTurn:      true,
	CodeSlapWindowActive: true,
	CodeNoSlapWindow:     true,
	CodeInvalidEventID:   true,
	CodeAlreadySlapped:   true,
}

// Recoverable reports whether c should trigger a resync snapshot in
// addition to the error event itself.
func Recoverable(c Code) bool { return recoverable[c] }

// Error is the payload of the outbound "error" event.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// NewError constructs a wire error with no details.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}
