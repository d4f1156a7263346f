package blend

import (
	"context"
	"strings"

	"github.com/npezzotti/blend/internal/types"
)

// A user's library is private to that user and does not go through the room
// workers.

func (s *Service) Library(ctx context.Context, caller Caller) (types.Library, error) {
	return s.db.GetLibrary(ctx, caller.User.Id)
}

func (s *Service) CreateUserPlaylist(ctx context.Context, caller Caller, name, coverImage string) (types.Playlist, error) {
	in := playlistInput{Name: strings.TrimSpace(name), CoverImage: strings.TrimSpace(coverImage)}
	if err := validateStruct(in); err != nil {
		return types.Playlist{}, err
	}

	return s.db.CreateUserPlaylist(ctx, caller.User.Id, types.Playlist{Name: in.Name, CoverImage: in.CoverImage})
}

func (s *Service) DeleteUserPlaylist(ctx context.Context, caller Caller, playlistId string) error {
	return s.db.DeleteUserPlaylist(ctx, caller.User.Id, playlistId)
}

func (s *Service) AddMovieToUserPlaylist(ctx context.Context, caller Caller, playlistId string, movie types.Movie) (types.Playlist, error) {
	movie, err := normalizeMovie(movie, caller.User.Id)
	if err != nil {
		return types.Playlist{}, err
	}
	movie.Poster = s.lookupPoster(ctx, movie)

	return s.db.AddMovieToUserPlaylist(ctx, caller.User.Id, playlistId, movie)
}

func (s *Service) DeleteMovieFromUserPlaylist(ctx context.Context, caller Caller, playlistId, movieId string) (types.Playlist, error) {
	return s.db.DeleteMovieFromUserPlaylist(ctx, caller.User.Id, playlistId, movieId)
}

// AddFavorite stores movie in the caller's favorites. A title can be a
// favorite only once.
func (s *Service) AddFavorite(ctx context.Context, caller Caller, movie types.Movie) ([]types.Movie, error) {
	movie, err := normalizeMovie(movie, caller.User.Id)
	if err != nil {
		return nil, err
	}
	movie.Poster = s.lookupPoster(ctx, movie)

	return s.db.AddFavorite(ctx, caller.User.Id, movie)
}

func (s *Service) RemoveFavorite(ctx context.Context, caller Caller, movieId string) ([]types.Movie, error) {
	return s.db.RemoveFavorite(ctx, caller.User.Id, movieId)
}
