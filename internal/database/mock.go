package database

import (
	"context"

	"github.com/npezzotti/blend/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockBlendRepository struct {
	mock.Mock
}

func (m *MockBlendRepository) Ping(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockBlendRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockBlendRepository) CreateRoom(ctx context.Context, roomId, ownerId string) (types.Room, error) {
	args := m.Called(roomId, ownerId)
	return args.Get(0).(types.Room), args.Error(1)
}
func (m *MockBlendRepository) GetRoom(ctx context.Context, roomId string) (types.Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(types.Room), args.Error(1)
}
func (m *MockBlendRepository) AddParticipant(ctx context.Context, roomId, userId string) (types.Room, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).(types.Room), args.Error(1)
}
func (m *MockBlendRepository) RemoveParticipant(ctx context.Context, roomId, userId string) (types.Room, bool, error) {
	args := m.Called(roomId, userId)
	return args.Get(0).(types.Room), args.Bool(1), args.Error(2)
}
func (m *MockBlendRepository) AppendChatMessage(ctx context.Context, roomId string, msg types.ChatMessage) (types.ChatMessage, error) {
	args := m.Called(roomId, msg)
	return args.Get(0).(types.ChatMessage), args.Error(1)
}
func (m *MockBlendRepository) AddPlaylist(ctx context.Context, roomId string, playlist types.Playlist) (types.Playlist, error) {
	args := m.Called(roomId, playlist)
	return args.Get(0).(types.Playlist), args.Error(1)
}
func (m *MockBlendRepository) UpdatePlaylist(ctx context.Context, roomId, playlistId string, params UpdatePlaylistParams) (types.Playlist, error) {
	args := m.Called(roomId, playlistId, params)
	return args.Get(0).(types.Playlist), args.Error(1)
}
func (m *MockBlendRepository) DeletePlaylist(ctx context.Context, roomId, playlistId string) ([]types.Playlist, error) {
	args := m.Called(roomId, playlistId)
	if playlists, ok := args.Get(0).([]types.Playlist); ok {
		return playlists, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockBlendRepository) AddMovieToPlaylist(ctx context.Context, roomId, playlistId string, movie types.Movie) (types.Playlist, error) {
	args := m.Called(roomId, playlistId, movie)
	return args.Get(0).(types.Playlist), args.Error(1)
}
func (m *MockBlendRepository) DeleteMovieFromPlaylist(ctx context.Context, roomId, playlistId, movieId string) (types.Playlist, error) {
	args := m.Called(roomId, playlistId, movieId)
	return args.Get(0).(types.Playlist), args.Error(1)
}
func (m *MockBlendRepository) CreateInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error) {
	args := m.Called(roomId, senderId, receiverId)
	return args.Get(0).(types.Invite), args.Error(1)
}
func (m *MockBlendRepository) GetInvite(ctx context.Context, inviteId string) (types.Invite, error) {
	args := m.Called(inviteId)
	return args.Get(0).(types.Invite), args.Error(1)
}
func (m *MockBlendRepository) FindPendingInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error) {
	args := m.Called(roomId, senderId, receiverId)
	return args.Get(0).(types.Invite), args.Error(1)
}
func (m *MockBlendRepository) ListPendingInvites(ctx context.Context, receiverId string) ([]types.Invite, error) {
	args := m.Called(receiverId)
	if invites, ok := args.Get(0).([]types.Invite); ok {
		return invites, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockBlendRepository) ResolveInvite(ctx context.Context, inviteId string, status types.InviteStatus) (types.Invite, error) {
	args := m.Called(inviteId, status)
	return args.Get(0).(types.Invite), args.Error(1)
}
func (m *MockBlendRepository) GetLibrary(ctx context.Context, userId string) (types.Library, error) {
	args := m.Called(userId)
	return args.Get(0).(types.Library), args.Error(1)
}
func (m *MockBlendRepository) ListLibraries(ctx context.Context, userIds []string) ([]types.Library, error) {
	args := m.Called(userIds)
	if libs, ok := args.Get(0).([]types.Library); ok {
		return libs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockBlendRepository) CreateUserPlaylist(ctx context.Context, userId string, playlist types.Playlist) (types.Playlist, error) {
	args := m.Called(userId, playlist)
	return args.Get(0).(types.Playlist), args.Error(1)
}
func (m *MockBlendRepository) DeleteUserPlaylist(ctx context.Context, userId, playlistId string) error {
	args := m.Called(userId, playlistId)
	return args.Error(0)
}
func (m *MockBlendRepository) AddMovieToUserPlaylist(ctx context.Context, userId, playlistId string, movie types.Movie) (types.Playlist, error) {
	args := m.Called(userId, playlistId, movie)
	return args.Get(0).(types.Playlist), args.Error(1)
}
func (m *MockBlendRepository) DeleteMovieFromUserPlaylist(ctx context.Context, userId, playlistId, movieId string) (types.Playlist, error) {
	args := m.Called(userId, playlistId, movieId)
	return args.Get(0).(types.Playlist), args.Error(1)
}
func (m *MockBlendRepository) AddFavorite(ctx context.Context, userId string, movie types.Movie) ([]types.Movie, error) {
	args := m.Called(userId, movie)
	if movies, ok := args.Get(0).([]types.Movie); ok {
		return movies, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockBlendRepository) RemoveFavorite(ctx context.Context, userId, movieId string) ([]types.Movie, error) {
	args := m.Called(userId, movieId)
	if movies, ok := args.Get(0).([]types.Movie); ok {
		return movies, args.Error(1)
	}
	return nil, args.Error(1)
}
