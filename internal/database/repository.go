package database

import (
	"context"

	"github.com/npezzotti/blend/internal/types"
)

// BlendRepository is the durable store behind rooms, invites and user
// libraries. Implementations report missing records with types.ErrNotFound,
// rejected input with *types.ValidationError and duplicates with
// types.ErrConflict.
type BlendRepository interface {
	RoomRepository
	InviteRepository
	LibraryRepository
	Ping(ctx context.Context) error
	Close() error
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, roomId, ownerId string) (types.Room, error)
	GetRoom(ctx context.Context, roomId string) (types.Room, error)
	AddParticipant(ctx context.Context, roomId, userId string) (types.Room, error)
	// RemoveParticipant returns deleted=true when the last participant left
	// and the room was removed.
	RemoveParticipant(ctx context.Context, roomId, userId string) (room types.Room, deleted bool, err error)
	AppendChatMessage(ctx context.Context, roomId string, msg types.ChatMessage) (types.ChatMessage, error)
	AddPlaylist(ctx context.Context, roomId string, playlist types.Playlist) (types.Playlist, error)
	UpdatePlaylist(ctx context.Context, roomId, playlistId string, params UpdatePlaylistParams) (types.Playlist, error)
	DeletePlaylist(ctx context.Context, roomId, playlistId string) ([]types.Playlist, error)
	AddMovieToPlaylist(ctx context.Context, roomId, playlistId string, movie types.Movie) (types.Playlist, error)
	DeleteMovieFromPlaylist(ctx context.Context, roomId, playlistId, movieId string) (types.Playlist, error)
}

type InviteRepository interface {
	// CreateInvite stores a pending invite, or returns the existing pending
	// invite for the same room, sender and receiver.
	CreateInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error)
	GetInvite(ctx context.Context, inviteId string) (types.Invite, error)
	FindPendingInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error)
	ListPendingInvites(ctx context.Context, receiverId string) ([]types.Invite, error)
	// ResolveInvite moves a pending invite to status. It returns
	// types.ErrAlreadyResolved if the invite is no longer pending.
	ResolveInvite(ctx context.Context, inviteId string, status types.InviteStatus) (types.Invite, error)
}

type LibraryRepository interface {
	GetLibrary(ctx context.Context, userId string) (types.Library, error)
	ListLibraries(ctx context.Context, userIds []string) ([]types.Library, error)
	CreateUserPlaylist(ctx context.Context, userId string, playlist types.Playlist) (types.Playlist, error)
	DeleteUserPlaylist(ctx context.Context, userId, playlistId string) error
	AddMovieToUserPlaylist(ctx context.Context, userId, playlistId string, movie types.Movie) (types.Playlist, error)
	DeleteMovieFromUserPlaylist(ctx context.Context, userId, playlistId, movieId string) (types.Playlist, error)
	AddFavorite(ctx context.Context, userId string, movie types.Movie) ([]types.Movie, error)
	RemoveFavorite(ctx context.Context, userId, movieId string) ([]types.Movie, error)
}
