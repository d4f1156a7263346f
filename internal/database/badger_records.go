package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/npezzotti/blend/internal/types"
)

func (b *BadgerBlendRepository) CreateInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error) {
	var inv types.Invite
	err := b.update(ctx, func(txn *badger.Txn) error {
		idxKey := pendingInviteKey(roomId, senderId, receiverId)
		item, err := txn.Get([]byte(idxKey))
		switch {
		case err == nil:
			return item.Value(func(val []byte) error {
				return getJSON(txn, inviteKey(string(val)), &inv)
			})
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		now := time.Now().UTC()
		inv = types.Invite{
			Id:         uuid.NewString(),
			RoomId:     roomId,
			SenderId:   senderId,
			ReceiverId: receiverId,
			Status:     types.InvitePending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := setJSON(txn, inviteKey(inv.Id), inv); err != nil {
			return err
		}
		if err := txn.Set([]byte(inboxKey(receiverId, inv.Id)), []byte(inv.Id)); err != nil {
			return err
		}
		return txn.Set([]byte(idxKey), []byte(inv.Id))
	})

	return inv, err
}

func (b *BadgerBlendRepository) GetInvite(ctx context.Context, inviteId string) (types.Invite, error) {
	var inv types.Invite
	err := b.view(ctx, func(txn *badger.Txn) error {
		if err := getJSON(txn, inviteKey(inviteId), &inv); err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return notFound("invite", inviteId)
			}
			return err
		}
		return nil
	})

	return inv, err
}

func (b *BadgerBlendRepository) FindPendingInvite(ctx context.Context, roomId, senderId, receiverId string) (types.Invite, error) {
	var inv types.Invite
	err := b.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pendingInviteKey(roomId, senderId, receiverId)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("pending invite for room %q: %w", roomId, types.ErrNotFound)
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return getJSON(txn, inviteKey(string(val)), &inv)
		})
	})

	return inv, err
}

func (b *BadgerBlendRepository) ListPendingInvites(ctx context.Context, receiverId string) ([]types.Invite, error) {
	invites := []types.Invite{}
	err := b.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(inboxPrefix + receiverId + "\x00")
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var inviteId string
			if err := it.Item().Value(func(val []byte) error {
				inviteId = string(val)
				return nil
			}); err != nil {
				return err
			}

			var inv types.Invite
			if err := getJSON(txn, inviteKey(inviteId), &inv); err != nil {
				return err
			}
			invites = append(invites, inv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(invites, func(a, b types.Invite) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return invites, nil
}

func (b *BadgerBlendRepository) ResolveInvite(ctx context.Context, inviteId string, status types.InviteStatus) (types.Invite, error) {
	var inv types.Invite
	err := b.update(ctx, func(txn *badger.Txn) error {
		var err error
		inv, err = resolvePending(txn, inviteId, status)
		return err
	})

	return inv, err
}

// resolvePending moves a pending invite to status and drops it from the
// pending and inbox indexes.
func resolvePending(txn *badger.Txn, inviteId string, status types.InviteStatus) (types.Invite, error) {
	var inv types.Invite
	if err := getJSON(txn, inviteKey(inviteId), &inv); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.Invite{}, notFound("invite", inviteId)
		}
		return types.Invite{}, err
	}

	if inv.Status != types.InvitePending {
		return types.Invite{}, fmt.Errorf("invite %q: %w", inviteId, types.ErrAlreadyResolved)
	}

	inv.Status = status
	inv.UpdatedAt = time.Now().UTC()
	if err := setJSON(txn, inviteKey(inviteId), inv); err != nil {
		return types.Invite{}, err
	}
	if err := txn.Delete([]byte(inboxKey(inv.ReceiverId, inviteId))); err != nil {
		return types.Invite{}, err
	}
	if err := txn.Delete([]byte(pendingInviteKey(inv.RoomId, inv.SenderId, inv.ReceiverId))); err != nil {
		return types.Invite{}, err
	}

	return inv, nil
}

// rejectRoomInvites rejects every invite still pending for roomId.
func rejectRoomInvites(txn *badger.Txn, roomId string) error {
	prefix := []byte(pendingInvitePrefix + roomId + "\x00")
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	var ids []string
	it := txn.NewIterator(opts)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		}); err != nil {
			it.Close()
			return err
		}
	}
	it.Close()

	for _, id := range ids {
		if _, err := resolvePending(txn, id, types.InviteRejected); err != nil {
			return err
		}
	}
	return nil
}

func getLibrary(txn *badger.Txn, userId string) (types.Library, error) {
	lib := types.Library{UserId: userId}
	if err := getJSON(txn, libraryKey(userId), &lib); err != nil && !errors.Is(err, types.ErrNotFound) {
		return types.Library{}, err
	}

	if lib.Playlists == nil {
		lib.Playlists = []types.Playlist{}
	}
	if lib.Favorites == nil {
		lib.Favorites = []types.Movie{}
	}
	return lib, nil
}

func (b *BadgerBlendRepository) mutateLibrary(ctx context.Context, userId string, fn func(lib *types.Library) error) (types.Library, error) {
	var lib types.Library
	err := b.update(ctx, func(txn *badger.Txn) error {
		var err error
		lib, err = getLibrary(txn, userId)
		if err != nil {
			return err
		}

		if err := fn(&lib); err != nil {
			return err
		}

		return setJSON(txn, libraryKey(userId), lib)
	})

	return lib, err
}

func (b *BadgerBlendRepository) GetLibrary(ctx context.Context, userId string) (types.Library, error) {
	var lib types.Library
	err := b.view(ctx, func(txn *badger.Txn) error {
		var err error
		lib, err = getLibrary(txn, userId)
		return err
	})

	return lib, err
}

func (b *BadgerBlendRepository) ListLibraries(ctx context.Context, userIds []string) ([]types.Library, error) {
	libraries := make([]types.Library, 0, len(userIds))
	err := b.view(ctx, func(txn *badger.Txn) error {
		for _, id := range userIds {
			lib, err := getLibrary(txn, id)
			if err != nil {
				return err
			}
			libraries = append(libraries, lib)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return libraries, nil
}

func (b *BadgerBlendRepository) CreateUserPlaylist(ctx context.Context, userId string, playlist types.Playlist) (types.Playlist, error) {
	if err := checkPlaylistName(playlist.Name); err != nil {
		return types.Playlist{}, err
	}

	playlist.Id = uuid.NewString()
	playlist.Movies = []types.Movie{}
	_, err := b.mutateLibrary(ctx, userId, func(lib *types.Library) error {
		lib.Playlists = append(lib.Playlists, playlist)
		return nil
	})
	if err != nil {
		return types.Playlist{}, err
	}

	return playlist, nil
}

func (b *BadgerBlendRepository) DeleteUserPlaylist(ctx context.Context, userId, playlistId string) error {
	_, err := b.mutateLibrary(ctx, userId, func(lib *types.Library) error {
		lib.Playlists = slices.DeleteFunc(lib.Playlists, func(p types.Playlist) bool { return p.Id == playlistId })
		return nil
	})
	return err
}

func (b *BadgerBlendRepository) AddMovieToUserPlaylist(ctx context.Context, userId, playlistId string, movie types.Movie) (types.Playlist, error) {
	if err := checkMovie(movie); err != nil {
		return types.Playlist{}, err
	}

	movie.Id = uuid.NewString()
	movie.AddedBy = userId
	movie.Genres = cloneGenres(movie.Genres)

	var playlist types.Playlist
	_, err := b.mutateLibrary(ctx, userId, func(lib *types.Library) error {
		i := playlistIndex(lib.Playlists, playlistId)
		if i < 0 {
			return notFound("playlist", playlistId)
		}

		lib.Playlists[i].Movies = append(lib.Playlists[i].Movies, movie)
		playlist = lib.Playlists[i]
		return nil
	})

	return playlist, err
}

func (b *BadgerBlendRepository) DeleteMovieFromUserPlaylist(ctx context.Context, userId, playlistId, movieId string) (types.Playlist, error) {
	var playlist types.Playlist
	_, err := b.mutateLibrary(ctx, userId, func(lib *types.Library) error {
		i := playlistIndex(lib.Playlists, playlistId)
		if i < 0 {
			return notFound("playlist", playlistId)
		}

		lib.Playlists[i].Movies = slices.DeleteFunc(lib.Playlists[i].Movies, func(m types.Movie) bool {
			return m.Id == movieId
		})
		playlist = lib.Playlists[i]
		return nil
	})

	return playlist, err
}

func (b *BadgerBlendRepository) AddFavorite(ctx context.Context, userId string, movie types.Movie) ([]types.Movie, error) {
	if err := checkMovie(movie); err != nil {
		return nil, err
	}

	movie.Id = uuid.NewString()
	movie.AddedBy = ""
	movie.Genres = cloneGenres(movie.Genres)

	lib, err := b.mutateLibrary(ctx, userId, func(lib *types.Library) error {
		if slices.ContainsFunc(lib.Favorites, func(m types.Movie) bool { return m.Title == movie.Title }) {
			return fmt.Errorf("favorite %q: %w", movie.Title, types.ErrConflict)
		}

		lib.Favorites = append(lib.Favorites, movie)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lib.Favorites, nil
}

func (b *BadgerBlendRepository) RemoveFavorite(ctx context.Context, userId, movieId string) ([]types.Movie, error) {
	lib, err := b.mutateLibrary(ctx, userId, func(lib *types.Library) error {
		lib.Favorites = slices.DeleteFunc(lib.Favorites, func(m types.Movie) bool { return m.Id == movieId })
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lib.Favorites, nil
}
