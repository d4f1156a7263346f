package database

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/npezzotti/blend/internal/types"
)

const (
	roomPrefix          = "room:"
	invitePrefix        = "invite:"
	pendingInvitePrefix = "invite-pending:"
	inboxPrefix         = "invite-inbox:"
	libraryPrefix       = "library:"

	maxTxnRetries = 32
)

// BadgerBlendRepository keeps each room, invite and library as one JSON
// document. Writes run in optimistic transactions that are retried on
// conflict.
type BadgerBlendRepository struct {
	db *badger.DB
}

// NewBadgerBlendRepository opens a Badger store at path. An empty path opens
// an in-memory store.
func NewBadgerBlendRepository(path string) (*BadgerBlendRepository, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &BadgerBlendRepository{db: db}, nil
}

func (b *BadgerBlendRepository) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return ctx.Err()
}

func (b *BadgerBlendRepository) Close() error {
	return b.db.Close()
}

func (b *BadgerBlendRepository) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := range maxTxnRetries {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := b.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}

		time.Sleep(time.Duration(rand.IntN(attempt+1)) * time.Millisecond)
	}

	return fmt.Errorf("badger: too many conflicts: %w", badger.ErrConflict)
}

func (b *BadgerBlendRepository) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(fn)
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return err
	}

	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func roomKey(id string) string    { return roomPrefix + id }
func inviteKey(id string) string  { return invitePrefix + id }
func libraryKey(id string) string { return libraryPrefix + id }

func pendingInviteKey(roomId, senderId, receiverId string) string {
	return pendingInvitePrefix + roomId + "\x00" + senderId + "\x00" + receiverId
}

// inboxKey indexes a pending invite under its receiver.
func inboxKey(receiverId, inviteId string) string {
	return inboxPrefix + receiverId + "\x00" + inviteId
}

func getRoom(txn *badger.Txn, roomId string) (types.Room, error) {
	var room types.Room
	if err := getJSON(txn, roomKey(roomId), &room); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.Room{}, notFound("room", roomId)
		}
		return types.Room{}, err
	}

	return room, nil
}

// mutateRoom loads a room, applies fn and writes the result back in a single
// transaction.
func (b *BadgerBlendRepository) mutateRoom(ctx context.Context, roomId string, fn func(room *types.Room) error) (types.Room, error) {
	var room types.Room
	err := b.update(ctx, func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, roomId)
		if err != nil {
			return err
		}

		if err := fn(&room); err != nil {
			return err
		}

		return setJSON(txn, roomKey(roomId), room)
	})

	return room, err
}

func playlistIndex(playlists []types.Playlist, id string) int {
	return slices.IndexFunc(playlists, func(p types.Playlist) bool { return p.Id == id })
}

func (b *BadgerBlendRepository) CreateRoom(ctx context.Context, roomId, ownerId string) (types.Room, error) {
	room := types.Room{
		RoomId:       roomId,
		OwnerId:      ownerId,
		Participants: []string{ownerId},
		Playlists:    []types.Playlist{},
		ChatHistory:  []types.ChatMessage{},
		CreatedAt:    time.Now().UTC(),
	}

	err := b.update(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(roomKey(roomId)))
		if err == nil {
			return fmt.Errorf("room %q: %w", roomId, types.ErrConflict)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		return setJSON(txn, roomKey(roomId), room)
	})
	if err != nil {
		return types.Room{}, err
	}

	return room, nil
}

func (b *BadgerBlendRepository) GetRoom(ctx context.Context, roomId string) (types.Room, error) {
	var room types.Room
	err := b.view(ctx, func(txn *badger.Txn) error {
		var err error
		room, err = getRoom(txn, roomId)
		return err
	})

	return room, err
}

func (b *BadgerBlendRepository) AddParticipant(ctx context.Context, roomId, userId string) (types.Room, error) {
	return b.mutateRoom(ctx, roomId, func(room *types.Room) error {
		if !room.HasParticipant(userId) {
			room.Participants = append(room.Participants, userId)
		}
		return nil
	})
}

func (b *BadgerBlendRepository) RemoveParticipant(ctx context.Context, roomId, userId string) (types.Room, bool, error) {
	var (
		room    types.Room
		deleted bool
	)
	err := b.update(ctx, func(txn *badger.Txn) error {
		var err error
		deleted = false
		room, err = getRoom(txn, roomId)
		if err != nil {
			return err
		}

		room.Participants = slices.DeleteFunc(room.Participants, func(p string) bool { return p == userId })
		if len(room.Participants) == 0 {
			deleted = true
			if err := rejectRoomInvites(txn, roomId); err != nil {
				return err
			}
			return txn.Delete([]byte(roomKey(roomId)))
		}

		if room.OwnerId == userId {
			room.OwnerId = room.Participants[0]
		}

		return setJSON(txn, roomKey(roomId), room)
	})

	return room, deleted, err
}

func (b *BadgerBlendRepository) AppendChatMessage(ctx context.Context, roomId string, msg types.ChatMessage) (types.ChatMessage, error) {
	if err := checkChatMessage(msg); err != nil {
		return types.ChatMessage{}, err
	}

	var stored types.ChatMessage
	_, err := b.mutateRoom(ctx, roomId, func(room *types.Room) error {
		var last time.Time
		if n := len(room.ChatHistory); n > 0 {
			last = room.ChatHistory[n-1].Timestamp
		}

		stored = msg
		stored.Timestamp = nextTimestamp(time.Now(), last)
		room.ChatHistory = append(room.ChatHistory, stored)
		return nil
	})
	if err != nil {
		return types.ChatMessage{}, err
	}

	return stored, nil
}

func (b *BadgerBlendRepository) AddPlaylist(ctx context.Context, roomId string, playlist types.Playlist) (types.Playlist, error) {
	if err := checkPlaylistName(playlist.Name); err != nil {
		return types.Playlist{}, err
	}

	playlist.Id = uuid.NewString()
	playlist.Movies = []types.Movie{}
	_, err := b.mutateRoom(ctx, roomId, func(room *types.Room) error {
		room.Playlists = append(room.Playlists, playlist)
		return nil
	})
	if err != nil {
		return types.Playlist{}, err
	}

	return playlist, nil
}

func (b *BadgerBlendRepository) UpdatePlaylist(ctx context.Context, roomId, playlistId string, params UpdatePlaylistParams) (types.Playlist, error) {
	if params.Name != nil {
		if err := checkPlaylistName(*params.Name); err != nil {
			return types.Playlist{}, err
		}
	}

	var playlist types.Playlist
	_, err := b.mutateRoom(ctx, roomId, func(room *types.Room) error {
		i := playlistIndex(room.Playlists, playlistId)
		if i < 0 {
			return notFound("playlist", playlistId)
		}

		if params.Name != nil {
			room.Playlists[i].Name = *params.Name
		}
		if params.CoverImage != nil {
			room.Playlists[i].CoverImage = *params.CoverImage
		}
		playlist = room.Playlists[i]
		return nil
	})

	return playlist, err
}

func (b *BadgerBlendRepository) DeletePlaylist(ctx context.Context, roomId, playlistId string) ([]types.Playlist, error) {
	room, err := b.mutateRoom(ctx, roomId, func(room *types.Room) error {
		room.Playlists = slices.DeleteFunc(room.Playlists, func(p types.Playlist) bool { return p.Id == playlistId })
		return nil
	})
	if err != nil {
		return nil, err
	}

	return room.Playlists, nil
}

func (b *BadgerBlendRepository) AddMovieToPlaylist(ctx context.Context, roomId, playlistId string, movie types.Movie) (types.Playlist, error) {
	if err := checkMovie(movie); err != nil {
		return types.Playlist{}, err
	}

	movie.Id = uuid.NewString()
	movie.Genres = cloneGenres(movie.Genres)

	var playlist types.Playlist
	_, err := b.mutateRoom(ctx, roomId, func(room *types.Room) error {
		i := playlistIndex(room.Playlists, playlistId)
		if i < 0 {
			return notFound("playlist", playlistId)
		}

		room.Playlists[i].Movies = append(room.Playlists[i].Movies, movie)
		playlist = room.Playlists[i]
		return nil
	})

	return playlist, err
}

func (b *BadgerBlendRepository) DeleteMovieFromPlaylist(ctx context.Context, roomId, playlistId, movieId string) (types.Playlist, error) {
	var playlist types.Playlist
	_, err := b.mutateRoom(ctx, roomId, func(room *types.Room) error {
		i := playlistIndex(room.Playlists, playlistId)
		if i < 0 {
			return notFound("playlist", playlistId)
		}

		room.Playlists[i].Movies = slices.DeleteFunc(room.Playlists[i].Movies, func(m types.Movie) bool {
			return m.Id == movieId
		})
		playlist = room.Playlists[i]
		return nil
	})

	return playlist, err
}
