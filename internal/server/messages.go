package server

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/npezzotti/blend/internal/types"
)

// Client to server event names.
const (
	EventRegisterUser        = "register-user"
	EventJoinRoom            = "join-room"
	EventJoinBlendRoom       = "join-blend-room"
	EventLeaveBlendRoom      = "leave-blend-room"
	EventSendInvite          = "send-invite"
	EventRespondInvite       = "respond-invite"
	EventChatMessage         = "chat-message"
	EventPlaylistAddMovie    = "playlist-add-movie"
	EventPlaylistDeleteMovie = "playlist-delete-movie"
	EventDeletePlaylist      = "delete-playlist"
)

// ClientMessage is the envelope of every inbound frame. Data is decoded
// once the event name is known.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type RegisterUser struct {
	UserId string `json:"userId"`
}

type RoomRequest struct {
	RoomId string `json:"roomId"`
	UserId string `json:"userId,omitempty"`
}

type SendInvite struct {
	RoomId string `json:"roomId"`
	ToId   string `json:"toId"`
	FromId string `json:"fromId,omitempty"`
}

type RespondInvite struct {
	RoomId   string `json:"roomId"`
	FromId   string `json:"fromId"`
	ToId     string `json:"toId,omitempty"`
	Accepted bool   `json:"accepted"`
}

type ChatMessage struct {
	RoomId  string `json:"roomId"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

type PlaylistMovie struct {
	RoomId     string      `json:"roomId"`
	PlaylistId string      `json:"playlistId"`
	MovieId    string      `json:"movieId,omitempty"`
	Movie      types.Movie `json:"movie"`
}

func parseMessage(raw []byte) (*ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("missing event name")
	}

	return &msg, nil
}

func decodeData[T any](msg *ClientMessage) (T, error) {
	var v T
	if len(msg.Data) == 0 {
		return v, types.NewValidationError("data", "is required")
	}
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return v, types.NewValidationError("data", err.Error())
	}

	return v, nil
}

func serializeMessage(ev *types.Event) ([]byte, error) {
	return json.Marshal(ev)
}
