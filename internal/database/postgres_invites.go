package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/blend/internal/types"
)

const inviteColumns = "id, room_id, sender_id, receiver_id, status, created_at, updated_at"

func scanInvite(row interface{ Scan(...any) error }) (types.Invite, error) {
	var inv types.Invite
	err := row.Scan(
		&inv.Id,
		&inv.RoomId,
		&inv.SenderId,
		&inv.ReceiverId,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	return inv, err
}

func (db *PgBlendRepository) CreateInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error) {
	now := time.Now().UTC()
	inv, err := scanInvite(db.conn.QueryRowContext(ctx,
		"INSERT INTO invites (id, room_id, sender_id, receiver_id, status, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, 'pending', $5, $5) "+
			"ON CONFLICT (room_id, sender_id, receiver_id) WHERE status = 'pending' DO NOTHING "+
			"RETURNING "+inviteColumns,
		uuid.NewString(), roomId, senderId, receiverId, now,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return db.FindPendingInvite(ctx, roomId, senderId, receiverId)
	}
	if err != nil {
		return types.Invite{}, fmt.Errorf("insert invite: %w", err)
	}

	return inv, nil
}

func (db *PgBlendRepository) GetInvite(ctx context.Context, inviteId string) (types.Invite, error) {
	inv, err := scanInvite(db.conn.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE id = $1",
		inviteId,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Invite{}, notFound("invite", inviteId)
	}

	return inv, err
}

func (db *PgBlendRepository) FindPendingInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error) {
	inv, err := scanInvite(db.conn.QueryRowContext(ctx,
		"SELECT "+inviteColumns+" FROM invites "+
			"WHERE room_id = $1 AND sender_id = $2 AND receiver_id = $3 AND status = 'pending'",
		roomId, senderId, receiverId,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Invite{}, fmt.Errorf("pending invite for room %q: %w", roomId, types.ErrNotFound)
	}

	return inv, err
}

func (db *PgBlendRepository) ListPendingInvites(ctx context.Context, receiverId string) ([]types.Invite, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+inviteColumns+" FROM invites WHERE receiver_id = $1 AND status = 'pending' ORDER BY created_at",
		receiverId,
	)
	if err != nil {
		return nil, fmt.Errorf("select invites: %w", err)
	}
	defer rows.Close()

	invites := []types.Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		invites = append(invites, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return invites, nil
}

func (db *PgBlendRepository) ResolveInvite(ctx context.Context, inviteId string, status types.InviteStatus) (types.Invite, error) {
	inv, err := scanInvite(db.conn.QueryRowContext(ctx,
		"UPDATE invites SET status = $2, updated_at = $3 WHERE id = $1 AND status = 'pending' RETURNING "+inviteColumns,
		inviteId, status, time.Now().UTC(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.GetInvite(ctx, inviteId); err != nil {
			return types.Invite{}, err
		}
		return types.Invite{}, fmt.Errorf("invite %q: %w", inviteId, types.ErrAlreadyResolved)
	}
	if err != nil {
		return types.Invite{}, fmt.Errorf("resolve invite: %w", err)
	}

	return inv, nil
}
