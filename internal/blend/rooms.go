package blend

import (
	"context"
	"errors"
	"fmt"

	"github.com/npezzotti/blend/internal/types"
	"github.com/teris-io/shortid"
)

const roomIdAttempts = 3

// CreateRoom creates an empty room owned by the caller.
func (s *Service) CreateRoom(ctx context.Context, caller Caller) (types.Room, error) {
	for range roomIdAttempts {
		roomId, err := shortid.Generate()
		if err != nil {
			return types.Room{}, fmt.Errorf("generate room id: %w", err)
		}

		room, err := s.db.CreateRoom(ctx, roomId, caller.User.Id)
		if errors.Is(err, types.ErrConflict) {
			continue
		}
		if err != nil {
			return types.Room{}, fmt.Errorf("create room: %w", err)
		}

		s.log.Info().Str("room_id", roomId).Str("user_id", caller.User.Id).Msg("created room")
		return room, nil
	}

	return types.Room{}, fmt.Errorf("create room: %w", types.ErrConflict)
}

func (s *Service) GetRoom(ctx context.Context, roomId string) (types.Room, error) {
	return s.db.GetRoom(ctx, roomId)
}

// JoinRoom adds the caller to the room's participants. A realtime caller's
// connection also joins the room's broadcast group and receives the full
// room state.
func (s *Service) JoinRoom(ctx context.Context, caller Caller, roomId string) (types.Room, error) {
	return exec(ctx, s, caller, roomId, "join-blend-room", func(ctx context.Context) (types.Room, error) {
		room, err := s.db.AddParticipant(ctx, roomId, caller.User.Id)
		if err != nil {
			return types.Room{}, err
		}

		joined := caller.Conn != nil && s.router.JoinGroup(caller.Conn, roomId)
		if caller.Conn != nil && !joined {
			s.log.Debug().Str("room_id", roomId).Str("conn_id", caller.Conn.Id()).Msg("connection closed before joining group")
		}

		s.router.Broadcast(roomId, participantsEvent(room), nil)

		if joined {
			caller.Conn.Send(&types.Event{Name: EventRoomState, Data: room})
		}

		return room, nil
	})
}

// LeaveRoom removes the caller from the room. The room is deleted when its
// last participant leaves.
func (s *Service) LeaveRoom(ctx context.Context, caller Caller, roomId string) error {
	_, err := exec(ctx, s, caller, roomId, "leave-blend-room", func(ctx context.Context) (struct{}, error) {
		room, err := s.db.GetRoom(ctx, roomId)
		if err != nil {
			return struct{}{}, err
		}

		if !room.HasParticipant(caller.User.Id) {
			if caller.Conn != nil {
				s.router.LeaveGroup(caller.Conn, roomId)
			}
			return struct{}{}, nil
		}

		room, deleted, err := s.db.RemoveParticipant(ctx, roomId, caller.User.Id)
		if err != nil {
			return struct{}{}, err
		}

		if deleted {
			s.log.Info().Str("room_id", roomId).Msg("last participant left, room deleted")
			s.router.CloseGroup(roomId, roomDeletedEvent(roomId))
			return struct{}{}, nil
		}

		s.router.Broadcast(roomId, participantsEvent(room), nil)
		s.router.RemoveUserFromGroup(roomId, caller.User.Id)
		return struct{}{}, nil
	})

	return err
}
