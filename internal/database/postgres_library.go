package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/npezzotti/blend/internal/types"
)

func (db *PgBlendRepository) GetLibrary(ctx context.Context, userId string) (types.Library, error) {
	return loadLibrary(ctx, db.conn, userId)
}

func (db *PgBlendRepository) ListLibraries(ctx context.Context, userIds []string) ([]types.Library, error) {
	libraries := make([]types.Library, 0, len(userIds))
	for _, id := range userIds {
		lib, err := loadLibrary(ctx, db.conn, id)
		if err != nil {
			return nil, err
		}
		libraries = append(libraries, lib)
	}

	return libraries, nil
}

func (db *PgBlendRepository) CreateUserPlaylist(ctx context.Context, userId string, playlist types.Playlist) (types.Playlist, error) {
	if err := checkPlaylistName(playlist.Name); err != nil {
		return types.Playlist{}, err
	}

	playlist.Id = uuid.NewString()
	if _, err := db.conn.ExecContext(ctx,
		"INSERT INTO playlists (id, user_id, name, cover_image) VALUES ($1, $2, $3, $4)",
		playlist.Id, userId, playlist.Name, playlist.CoverImage,
	); err != nil {
		return types.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}

	playlist.Movies = []types.Movie{}
	return playlist, nil
}

func (db *PgBlendRepository) DeleteUserPlaylist(ctx context.Context, userId, playlistId string) error {
	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM playlists WHERE id = $1 AND user_id = $2",
		playlistId, userId,
	)
	return err
}

func (db *PgBlendRepository) AddMovieToUserPlaylist(ctx context.Context, userId, playlistId string, movie types.Movie) (types.Playlist, error) {
	if err := checkMovie(movie); err != nil {
		return types.Playlist{}, err
	}

	var playlist types.Playlist
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := ownPlaylist(ctx, tx, userId, playlistId); err != nil {
			return err
		}

		movie.AddedBy = userId
		if err := insertMovie(ctx, tx, playlistId, movie); err != nil {
			return err
		}

		var err error
		playlist, err = loadPlaylist(ctx, tx, playlistId)
		return err
	})

	return playlist, err
}

func (db *PgBlendRepository) DeleteMovieFromUserPlaylist(ctx context.Context, userId, playlistId, movieId string) (types.Playlist, error) {
	var playlist types.Playlist
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := ownPlaylist(ctx, tx, userId, playlistId); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM playlist_movies WHERE id = $1 AND playlist_id = $2",
			movieId, playlistId,
		); err != nil {
			return fmt.Errorf("delete movie: %w", err)
		}

		var err error
		playlist, err = loadPlaylist(ctx, tx, playlistId)
		return err
	})

	return playlist, err
}

func (db *PgBlendRepository) AddFavorite(ctx context.Context, userId string, movie types.Movie) ([]types.Movie, error) {
	if err := checkMovie(movie); err != nil {
		return nil, err
	}

	if _, err := db.conn.ExecContext(ctx,
		"INSERT INTO favorites (id, user_id, title, poster, description, genres, rating) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7)",
		uuid.NewString(),
		userId,
		movie.Title,
		movie.Poster,
		movie.Description,
		pq.Array(cloneGenres(movie.Genres)),
		nullFloat(movie.Rating),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("favorite %q: %w", movie.Title, types.ErrConflict)
		}
		return nil, fmt.Errorf("insert favorite: %w", err)
	}

	return loadFavorites(ctx, db.conn, userId)
}

func (db *PgBlendRepository) RemoveFavorite(ctx context.Context, userId, movieId string) ([]types.Movie, error) {
	if _, err := db.conn.ExecContext(ctx,
		"DELETE FROM favorites WHERE id = $1 AND user_id = $2",
		movieId, userId,
	); err != nil {
		return nil, fmt.Errorf("delete favorite: %w", err)
	}

	return loadFavorites(ctx, db.conn, userId)
}

func ownPlaylist(ctx context.Context, q querier, userId, playlistId string) error {
	var id string
	err := q.QueryRowContext(ctx,
		"SELECT id FROM playlists WHERE id = $1 AND user_id = $2 FOR UPDATE",
		playlistId, userId,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("playlist", playlistId)
	}

	return err
}

func loadLibrary(ctx context.Context, q querier, userId string) (types.Library, error) {
	playlists, err := loadPlaylists(ctx, q, "WHERE p.user_id = $1", userId)
	if err != nil {
		return types.Library{}, err
	}

	favorites, err := loadFavorites(ctx, q, userId)
	if err != nil {
		return types.Library{}, err
	}

	return types.Library{
		UserId:    userId,
		Playlists: playlists,
		Favorites: favorites,
	}, nil
}

func loadFavorites(ctx context.Context, q querier, userId string) ([]types.Movie, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, title, poster, description, genres, rating FROM favorites WHERE user_id = $1 ORDER BY position",
		userId,
	)
	if err != nil {
		return nil, fmt.Errorf("select favorites: %w", err)
	}
	defer rows.Close()

	favorites := []types.Movie{}
	for rows.Next() {
		var (
			m      types.Movie
			genres pq.StringArray
			rating sql.NullFloat64
		)
		if err := rows.Scan(&m.Id, &m.Title, &m.Poster, &m.Description, &genres, &rating); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}

		m.Genres = cloneGenres(genres)
		if rating.Valid {
			r := rating.Float64
			m.Rating = &r
		}
		favorites = append(favorites, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return favorites, nil
}
