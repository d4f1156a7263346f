package blend

import (
	"context"
	"fmt"
	"strings"

	"github.com/npezzotti/blend/internal/types"
)

// SentInvite is a stored invite and whether the receiver was online to get
// it right away.
type SentInvite struct {
	types.Invite
	Delivered bool `json:"delivered"`
}

// SendInvite invites receiverId into the room. The invite is stored even when
// the receiver is offline; a realtime sender is told with user-not-connected
// in that case.
func (s *Service) SendInvite(ctx context.Context, caller Caller, roomId, receiverId string) (SentInvite, error) {
	receiverId = strings.TrimSpace(receiverId)
	if receiverId == "" {
		return SentInvite{}, types.NewValidationError("toId", "is required")
	}
	if receiverId == caller.User.Id {
		return SentInvite{}, types.NewValidationError("toId", "cannot invite yourself")
	}

	return exec(ctx, s, caller, roomId, "send-invite", func(ctx context.Context) (SentInvite, error) {
		room, err := s.loadMember(ctx, roomId, caller.User.Id)
		if err != nil {
			return SentInvite{}, err
		}
		if room.HasParticipant(receiverId) {
			return SentInvite{}, fmt.Errorf("user %q already in room %q: %w", receiverId, roomId, types.ErrConflict)
		}

		inv, err := s.db.CreateInvite(ctx, roomId, caller.User.Id, receiverId)
		if err != nil {
			return SentInvite{}, err
		}

		delivered := s.router.SendToUser(receiverId, &types.Event{
			Name: EventReceiveInvite,
			Data: InvitePayload{InviteId: inv.Id, FromId: inv.SenderId, RoomId: roomId},
		})
		if !delivered && caller.Conn != nil {
			caller.Conn.Send(&types.Event{
				Name: EventUserNotConnected,
				Data: UserNotConnectedPayload{ToId: receiverId},
			})
		}

		s.log.Info().
			Str("room_id", roomId).
			Str("invite_id", inv.Id).
			Bool("delivered", delivered).
			Msg("invite sent")

		return SentInvite{Invite: inv, Delivered: delivered}, nil
	})
}

// RespondInvite accepts or rejects an invite addressed to the caller.
func (s *Service) RespondInvite(ctx context.Context, caller Caller, inviteId string, accept bool) (types.Invite, error) {
	inv, err := s.db.GetInvite(ctx, inviteId)
	if err != nil {
		return types.Invite{}, err
	}

	if inv.ReceiverId != caller.User.Id {
		return types.Invite{}, fmt.Errorf("respond to invite %q: %w", inviteId, types.ErrForbidden)
	}

	return exec(ctx, s, caller, inv.RoomId, "respond-invite", func(ctx context.Context) (types.Invite, error) {
		return s.resolveInvite(ctx, inv, accept)
	})
}

// RespondInviteFrom resolves the caller's pending invite from senderId into
// roomId. The realtime channel identifies invites this way.
func (s *Service) RespondInviteFrom(ctx context.Context, caller Caller, roomId, senderId string, accept bool) (types.Invite, error) {
	return exec(ctx, s, caller, roomId, "respond-invite", func(ctx context.Context) (types.Invite, error) {
		inv, err := s.db.FindPendingInvite(ctx, roomId, senderId, caller.User.Id)
		if err != nil {
			return types.Invite{}, err
		}
		return s.resolveInvite(ctx, inv, accept)
	})
}

// resolveInvite runs on the invite's room worker. Accepting an invite for a
// room that no longer exists fails with types.ErrNotFound.
func (s *Service) resolveInvite(ctx context.Context, inv types.Invite, accept bool) (types.Invite, error) {
	status := types.InviteRejected
	if accept {
		status = types.InviteAccepted
		if _, err := s.db.GetRoom(ctx, inv.RoomId); err != nil {
			return types.Invite{}, err
		}
	}

	resolved, err := s.db.ResolveInvite(ctx, inv.Id, status)
	if err != nil {
		return types.Invite{}, err
	}

	if accept {
		room, err := s.db.AddParticipant(ctx, inv.RoomId, inv.ReceiverId)
		if err != nil {
			return types.Invite{}, err
		}
		s.router.Broadcast(inv.RoomId, participantsEvent(room), nil)
	}

	s.router.SendToUser(inv.SenderId, &types.Event{
		Name: EventInviteResponse,
		Data: InviteResponsePayload{
			InviteId: resolved.Id,
			RoomId:   resolved.RoomId,
			ToId:     resolved.ReceiverId,
			Accepted: accept,
			Status:   resolved.Status,
		},
	})

	s.log.Info().
		Str("room_id", inv.RoomId).
		Str("invite_id", inv.Id).
		Str("status", string(resolved.Status)).
		Msg("invite resolved")

	return resolved, nil
}

// PendingInvites lists invites waiting on the caller.
func (s *Service) PendingInvites(ctx context.Context, caller Caller) ([]types.Invite, error) {
	return s.db.ListPendingInvites(ctx, caller.User.Id)
}
