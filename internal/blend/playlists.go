package blend

import (
	"context"
	"strings"

	"github.com/npezzotti/blend/internal/database"
	"github.com/npezzotti/blend/internal/types"
)

type PlaylistUpdate struct {
	Name       *string `json:"name"`
	CoverImage *string `json:"coverImage"`
}

func (s *Service) AddPlaylist(ctx context.Context, caller Caller, roomId, name, coverImage string) (types.Playlist, error) {
	in := playlistInput{Name: strings.TrimSpace(name), CoverImage: strings.TrimSpace(coverImage)}
	if err := validateStruct(in); err != nil {
		return types.Playlist{}, err
	}

	return exec(ctx, s, caller, roomId, "add-playlist", func(ctx context.Context) (types.Playlist, error) {
		if _, err := s.loadMember(ctx, roomId, caller.User.Id); err != nil {
			return types.Playlist{}, err
		}

		p, err := s.db.AddPlaylist(ctx, roomId, types.Playlist{Name: in.Name, CoverImage: in.CoverImage})
		if err != nil {
			return types.Playlist{}, err
		}

		if err := s.broadcastPlaylists(ctx, roomId); err != nil {
			return types.Playlist{}, err
		}
		return p, nil
	})
}

// UpdatePlaylist renames a playlist or changes its cover. Nil fields are
// left as they are.
func (s *Service) UpdatePlaylist(ctx context.Context, caller Caller, roomId, playlistId string, upd PlaylistUpdate) (types.Playlist, error) {
	params := database.UpdatePlaylistParams{CoverImage: upd.CoverImage}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		in := playlistInput{Name: name}
		if upd.CoverImage != nil {
			in.CoverImage = *upd.CoverImage
		}
		if err := validateStruct(in); err != nil {
			return types.Playlist{}, err
		}
		params.Name = &name
	}

	return exec(ctx, s, caller, roomId, "update-playlist", func(ctx context.Context) (types.Playlist, error) {
		if _, err := s.loadMember(ctx, roomId, caller.User.Id); err != nil {
			return types.Playlist{}, err
		}

		p, err := s.db.UpdatePlaylist(ctx, roomId, playlistId, params)
		if err != nil {
			return types.Playlist{}, err
		}

		s.router.Broadcast(roomId, playlistEvent(roomId, p), nil)
		if err := s.broadcastPlaylists(ctx, roomId); err != nil {
			return types.Playlist{}, err
		}
		return p, nil
	})
}

// DeletePlaylist removes a playlist from the room and returns the remaining
// playlists. Deleting an absent playlist changes nothing.
func (s *Service) DeletePlaylist(ctx context.Context, caller Caller, roomId, playlistId string) ([]types.Playlist, error) {
	return exec(ctx, s, caller, roomId, "delete-playlist", func(ctx context.Context) ([]types.Playlist, error) {
		if _, err := s.loadMember(ctx, roomId, caller.User.Id); err != nil {
			return nil, err
		}

		playlists, err := s.db.DeletePlaylist(ctx, roomId, playlistId)
		if err != nil {
			return nil, err
		}

		s.router.Broadcast(roomId, playlistsEvent(roomId, playlists), nil)
		return playlists, nil
	})
}

// AddMovie adds a movie to a room playlist. The poster is looked up in the
// catalog first; a failed lookup keeps whatever poster the caller supplied.
// Realtime callers get the lookup off their connection's reader.
func (s *Service) AddMovie(ctx context.Context, caller Caller, roomId, playlistId string, movie types.Movie) (types.Playlist, error) {
	movie, err := normalizeMovie(movie, caller.User.Id)
	if err != nil {
		return types.Playlist{}, err
	}

	add := func(ctx context.Context, movie types.Movie) (types.Playlist, error) {
		return exec(ctx, s, caller, roomId, "playlist-add-movie", func(ctx context.Context) (types.Playlist, error) {
			if _, err := s.loadMember(ctx, roomId, caller.User.Id); err != nil {
				return types.Playlist{}, err
			}

			p, err := s.db.AddMovieToPlaylist(ctx, roomId, playlistId, movie)
			if err != nil {
				return types.Playlist{}, err
			}

			s.router.Broadcast(roomId, playlistEvent(roomId, p), nil)
			if err := s.broadcastPlaylists(ctx, roomId); err != nil {
				return types.Playlist{}, err
			}
			return p, nil
		})
	}

	if !caller.realtime() {
		movie.Poster = s.lookupPoster(ctx, movie)
		return add(ctx, movie)
	}

	ctx = context.WithoutCancel(ctx)
	started := s.goBackground(func() {
		movie.Poster = s.lookupPoster(ctx, movie)
		if _, err := add(ctx, movie); err != nil {
			s.log.Warn().Err(err).
				Str("room_id", roomId).
				Str("user_id", caller.User.Id).
				Str("event", "playlist-add-movie").
				Msg("dropping event")
		}
	})
	if !started {
		return types.Playlist{}, errShuttingDown
	}
	return types.Playlist{}, nil
}

// DeleteMovie removes a movie from a room playlist. Removing an absent movie
// changes nothing.
func (s *Service) DeleteMovie(ctx context.Context, caller Caller, roomId, playlistId, movieId string) (types.Playlist, error) {
	return exec(ctx, s, caller, roomId, "playlist-delete-movie", func(ctx context.Context) (types.Playlist, error) {
		if _, err := s.loadMember(ctx, roomId, caller.User.Id); err != nil {
			return types.Playlist{}, err
		}

		p, err := s.db.DeleteMovieFromPlaylist(ctx, roomId, playlistId, movieId)
		if err != nil {
			return types.Playlist{}, err
		}

		s.router.Broadcast(roomId, playlistEvent(roomId, p), nil)
		if err := s.broadcastPlaylists(ctx, roomId); err != nil {
			return types.Playlist{}, err
		}
		return p, nil
	})
}

// lookupPoster returns the catalog poster for the movie, falling back to the
// poster it already carries.
func (s *Service) lookupPoster(ctx context.Context, movie types.Movie) string {
	if s.catalog == nil {
		return movie.Poster
	}

	poster, err := s.catalog.PosterURL(ctx, movie.Title)
	if err != nil {
		s.log.Warn().Err(err).Str("title", movie.Title).Msg("poster lookup failed")
		return movie.Poster
	}
	if poster == "" {
		return movie.Poster
	}
	return poster
}

func (s *Service) broadcastPlaylists(ctx context.Context, roomId string) error {
	room, err := s.db.GetRoom(ctx, roomId)
	if err != nil {
		return err
	}

	s.router.Broadcast(roomId, playlistsEvent(roomId, room.Playlists), nil)
	return nil
}
