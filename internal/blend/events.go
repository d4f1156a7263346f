package blend

import (
	"github.com/npezzotti/blend/internal/types"
)

// Server to client event names.
const (
	EventReceiveMessage       = "receive-message"
	EventParticipantsUpdate   = "participants-update"
	EventPlaylistUpdated      = "playlist-updated"
	EventRoomPlaylistsUpdated = "room-playlists-updated"
	EventReceiveInvite        = "receive-invite"
	EventInviteResponse       = "invite-response"
	EventUserNotConnected     = "user-not-connected"
	EventRoomState            = "room-state"
	EventRoomDeleted          = "room-deleted"
)

type ChatPayload struct {
	RoomId string `json:"roomId"`
	types.ChatMessage
}

type ParticipantsPayload struct {
	RoomId       string   `json:"roomId"`
	OwnerId      string   `json:"createdBy"`
	Participants []string `json:"participants"`
}

type PlaylistPayload struct {
	RoomId   string         `json:"roomId"`
	Playlist types.Playlist `json:"playlist"`
}

type RoomPlaylistsPayload struct {
	RoomId    string           `json:"roomId"`
	Playlists []types.Playlist `json:"playlists"`
}

type InvitePayload struct {
	InviteId string `json:"inviteId"`
	FromId   string `json:"fromId"`
	RoomId   string `json:"roomId"`
}

type InviteResponsePayload struct {
	InviteId string             `json:"inviteId"`
	RoomId   string             `json:"roomId"`
	ToId     string             `json:"toId"`
	Accepted bool               `json:"accepted"`
	Status   types.InviteStatus `json:"status"`
}

type UserNotConnectedPayload struct {
	ToId string `json:"toId"`
}

type RoomDeletedPayload struct {
	RoomId string `json:"roomId"`
}

func participantsEvent(room types.Room) *types.Event {
	return &types.Event{
		Name: EventParticipantsUpdate,
		Data: ParticipantsPayload{
			RoomId:       room.RoomId,
			OwnerId:      room.OwnerId,
			Participants: room.Participants,
		},
	}
}

func chatEvent(roomId string, msg types.ChatMessage) *types.Event {
	return &types.Event{
		Name: EventReceiveMessage,
		Data: ChatPayload{RoomId: roomId, ChatMessage: msg},
	}
}

func playlistsEvent(roomId string, playlists []types.Playlist) *types.Event {
	return &types.Event{
		Name: EventRoomPlaylistsUpdated,
		Data: RoomPlaylistsPayload{RoomId: roomId, Playlists: playlists},
	}
}

func playlistEvent(roomId string, p types.Playlist) *types.Event {
	return &types.Event{
		Name: EventPlaylistUpdated,
		Data: PlaylistPayload{RoomId: roomId, Playlist: p},
	}
}

func roomDeletedEvent(roomId string) *types.Event {
	return &types.Event{
		Name: EventRoomDeleted,
		Data: RoomDeletedPayload{RoomId: roomId},
	}
}
