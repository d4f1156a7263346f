package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/npezzotti/blend/internal/blend"
	"github.com/npezzotti/blend/internal/router"
	"github.com/npezzotti/blend/internal/types"
)

func requireRoom(roomId string) error {
	if strings.TrimSpace(roomId) == "" {
		return types.NewValidationError("roomId", "is required")
	}
	return nil
}

// dispatch hands one inbound event to the room service. Identity always comes
// from the connection; user ids carried in payloads are ignored.
func (cs *ChatServer) dispatch(ctx context.Context, c router.Conn, user types.User, msg *ClientMessage) error {
	caller := blend.Caller{User: user, Conn: c}
	cs.stats.ObserveEvent(msg.Event)

	switch msg.Event {
	case EventRegisterUser:
		req, err := decodeData[RegisterUser](msg)
		if err == nil && req.UserId != "" && req.UserId != user.Id {
			cs.log.Warn().Str("claimed", req.UserId).Str("user_id", user.Id).Msg("ignoring user id in register-user")
		}
		cs.router.Register(user.Id, c)
		return nil

	case EventJoinRoom, EventJoinBlendRoom:
		req, err := decodeData[RoomRequest](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		_, err = cs.svc.JoinRoom(ctx, caller, req.RoomId)
		return err

	case EventLeaveBlendRoom:
		req, err := decodeData[RoomRequest](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		return cs.svc.LeaveRoom(ctx, caller, req.RoomId)

	case EventSendInvite:
		req, err := decodeData[SendInvite](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		_, err = cs.svc.SendInvite(ctx, caller, req.RoomId, req.ToId)
		return err

	case EventRespondInvite:
		req, err := decodeData[RespondInvite](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		_, err = cs.svc.RespondInviteFrom(ctx, caller, req.RoomId, req.FromId, req.Accepted)
		return err

	case EventChatMessage:
		req, err := decodeData[ChatMessage](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		_, err = cs.svc.PostMessage(ctx, caller, req.RoomId, req.Message)
		return err

	case EventPlaylistAddMovie:
		req, err := decodeData[PlaylistMovie](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		_, err = cs.svc.AddMovie(ctx, caller, req.RoomId, req.PlaylistId, req.Movie)
		return err

	case EventPlaylistDeleteMovie:
		req, err := decodeData[PlaylistMovie](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		_, err = cs.svc.DeleteMovie(ctx, caller, req.RoomId, req.PlaylistId, req.MovieId)
		return err

	case EventDeletePlaylist:
		req, err := decodeData[PlaylistMovie](msg)
		if err != nil {
			return err
		}
		if err := requireRoom(req.RoomId); err != nil {
			return err
		}
		_, err = cs.svc.DeletePlaylist(ctx, caller, req.RoomId, req.PlaylistId)
		return err

	default:
		return fmt.Errorf("unknown event %q", msg.Event)
	}
}
