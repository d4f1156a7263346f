package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/npezzotti/blend/internal/types"
)

const playlistSelect = `
	SELECT
		p.id,
		p.name,
		p.cover_image,
		m.id,
		m.title,
		m.poster,
		m.description,
		m.genres,
		m.rating,
		m.added_by
	FROM playlists p
	LEFT JOIN playlist_movies m ON m.playlist_id = p.id
`

func (db *PgBlendRepository) CreateRoom(ctx context.Context, roomId, ownerId string) (types.Room, error) {
	var room types.Room
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO rooms (room_id, owner_id, created_at) VALUES ($1, $2, $3)",
			roomId, ownerId, time.Now().UTC(),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("room %q: %w", roomId, types.ErrConflict)
			}
			return fmt.Errorf("insert room: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2)",
			roomId, ownerId,
		); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}

		room, err = loadRoom(ctx, tx, roomId)
		return err
	})

	return room, err
}

func (db *PgBlendRepository) GetRoom(ctx context.Context, roomId string) (types.Room, error) {
	var room types.Room
	err := db.withTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}, func(tx *sql.Tx) error {
		var err error
		room, err = loadRoom(ctx, tx, roomId)
		return err
	})

	return room, err
}

func (db *PgBlendRepository) AddParticipant(ctx context.Context, roomId, userId string) (types.Room, error) {
	var room types.Room
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := lockRoom(ctx, tx, roomId); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO room_participants (room_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			roomId, userId,
		); err != nil {
			return fmt.Errorf("insert participant: %w", err)
		}

		var err error
		room, err = loadRoom(ctx, tx, roomId)
		return err
	})

	return room, err
}

func (db *PgBlendRepository) RemoveParticipant(ctx context.Context, roomId, userId string) (types.Room, bool, error) {
	var (
		room    types.Room
		deleted bool
	)
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		ownerId, err := lockRoom(ctx, tx, roomId)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2",
			roomId, userId,
		); err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}

		var next string
		err = tx.QueryRowContext(ctx,
			"SELECT user_id FROM room_participants WHERE room_id = $1 ORDER BY position LIMIT 1",
			roomId,
		).Scan(&next)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				"UPDATE invites SET status = 'rejected', updated_at = $2 WHERE room_id = $1 AND status = 'pending'",
				roomId, time.Now().UTC(),
			); err != nil {
				return fmt.Errorf("reject invites: %w", err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM rooms WHERE room_id = $1", roomId); err != nil {
				return fmt.Errorf("delete room: %w", err)
			}
			deleted = true
			room = types.Room{RoomId: roomId, OwnerId: ownerId, Participants: []string{}}
			return nil
		case err != nil:
			return fmt.Errorf("next owner: %w", err)
		}

		if ownerId == userId {
			if _, err := tx.ExecContext(ctx,
				"UPDATE rooms SET owner_id = $2 WHERE room_id = $1",
				roomId, next,
			); err != nil {
				return fmt.Errorf("reassign owner: %w", err)
			}
		}

		room, err = loadRoom(ctx, tx, roomId)
		return err
	})

	return room, deleted, err
}

func (db *PgBlendRepository) AppendChatMessage(ctx context.Context, roomId string, msg types.ChatMessage) (types.ChatMessage, error) {
	if err := checkChatMessage(msg); err != nil {
		return types.ChatMessage{}, err
	}

	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := lockRoom(ctx, tx, roomId); err != nil {
			return err
		}

		var last sql.NullTime
		if err := tx.QueryRowContext(ctx,
			"SELECT max(created_at) FROM chat_messages WHERE room_id = $1",
			roomId,
		).Scan(&last); err != nil {
			return fmt.Errorf("last message: %w", err)
		}

		msg.Timestamp = nextTimestamp(time.Now(), last.Time)
		_, err := tx.ExecContext(ctx,
			"INSERT INTO chat_messages (room_id, sender, message, created_at) VALUES ($1, $2, $3, $4)",
			roomId, msg.Sender, msg.Message, msg.Timestamp,
		)
		return err
	})

	return msg, err
}

func (db *PgBlendRepository) AddPlaylist(ctx context.Context, roomId string, playlist types.Playlist) (types.Playlist, error) {
	if err := checkPlaylistName(playlist.Name); err != nil {
		return types.Playlist{}, err
	}

	playlist.Id = uuid.NewString()
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := lockRoom(ctx, tx, roomId); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO playlists (id, room_id, name, cover_image) VALUES ($1, $2, $3, $4)",
			playlist.Id, roomId, playlist.Name, playlist.CoverImage,
		)
		return err
	})
	if err != nil {
		return types.Playlist{}, err
	}

	playlist.Movies = []types.Movie{}
	return playlist, nil
}

func (db *PgBlendRepository) UpdatePlaylist(ctx context.Context, roomId, playlistId string, params UpdatePlaylistParams) (types.Playlist, error) {
	if params.Name != nil {
		if err := checkPlaylistName(*params.Name); err != nil {
			return types.Playlist{}, err
		}
	}

	var playlist types.Playlist
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE playlists SET name = COALESCE($3, name), cover_image = COALESCE($4, cover_image) "+
				"WHERE id = $1 AND room_id = $2",
			playlistId, roomId, nullString(params.Name), nullString(params.CoverImage),
		)
		if err != nil {
			return fmt.Errorf("update playlist: %w", err)
		}

		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("playlist", playlistId)
		}

		playlist, err = loadPlaylist(ctx, tx, playlistId)
		return err
	})

	return playlist, err
}

func (db *PgBlendRepository) DeletePlaylist(ctx context.Context, roomId, playlistId string) ([]types.Playlist, error) {
	var playlists []types.Playlist
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if _, err := lockRoom(ctx, tx, roomId); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM playlists WHERE id = $1 AND room_id = $2",
			playlistId, roomId,
		); err != nil {
			return fmt.Errorf("delete playlist: %w", err)
		}

		var err error
		playlists, err = loadPlaylists(ctx, tx, "WHERE p.room_id = $1", roomId)
		return err
	})

	return playlists, err
}

func (db *PgBlendRepository) AddMovieToPlaylist(ctx context.Context, roomId, playlistId string, movie types.Movie) (types.Playlist, error) {
	if err := checkMovie(movie); err != nil {
		return types.Playlist{}, err
	}

	var playlist types.Playlist
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := lockRoomPlaylist(ctx, tx, roomId, playlistId); err != nil {
			return err
		}

		if err := insertMovie(ctx, tx, playlistId, movie); err != nil {
			return err
		}

		var err error
		playlist, err = loadPlaylist(ctx, tx, playlistId)
		return err
	})

	return playlist, err
}

func (db *PgBlendRepository) DeleteMovieFromPlaylist(ctx context.Context, roomId, playlistId, movieId string) (types.Playlist, error) {
	var playlist types.Playlist
	err := db.withTx(ctx, nil, func(tx *sql.Tx) error {
		if err := lockRoomPlaylist(ctx, tx, roomId, playlistId); err != nil {
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

// lockRoom takes a row lock on the room and returns its owner.
func lockRoom(ctx context.Context, q querier, roomId string) (string, error) {
	var ownerId string
	err := q.QueryRowContext(ctx,
		"SELECT owner_id FROM rooms WHERE room_id = $1 FOR UPDATE",
		roomId,
	).Scan(&ownerId)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("room", roomId)
	}
	if err != nil {
		return "", fmt.Errorf("lock room: %w", err)
	}

	return ownerId, nil
}

func lockRoomPlaylist(ctx context.Context, q querier, roomId, playlistId string) error {
	if _, err := lockRoom(ctx, q, roomId); err != nil {
		return err
	}

	var id string
	err := q.QueryRowContext(ctx,
		"SELECT id FROM playlists WHERE id = $1 AND room_id = $2",
		playlistId, roomId,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("playlist", playlistId)
	}

	return err
}

func insertMovie(ctx context.Context, q querier, playlistId string, movie types.Movie) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO playlist_movies (id, playlist_id, title, poster, description, genres, rating, added_by) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		uuid.NewString(),
		playlistId,
		movie.Title,
		movie.Poster,
		movie.Description,
		pq.Array(cloneGenres(movie.Genres)),
		nullFloat(movie.Rating),
		movie.AddedBy,
	)
	if err != nil {
		return fmt.Errorf("insert movie: %w", err)
	}

	return nil
}

func loadRoom(ctx context.Context, q querier, roomId string) (types.Room, error) {
	room := types.Room{
		Participants: []string{},
		ChatHistory:  []types.ChatMessage{},
	}

	err := q.QueryRowContext(ctx,
		"SELECT room_id, owner_id, created_at FROM rooms WHERE room_id = $1",
		roomId,
	).Scan(&room.RoomId, &room.OwnerId, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Room{}, notFound("room", roomId)
	}
	if err != nil {
		return types.Room{}, fmt.Errorf("select room: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT user_id FROM room_participants WHERE room_id = $1 ORDER BY position",
		roomId,
	)
	if err != nil {
		return types.Room{}, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userId string
		if err := rows.Scan(&userId); err != nil {
			return types.Room{}, fmt.Errorf("scan participant: %w", err)
		}
		room.Participants = append(room.Participants, userId)
	}
	if err := rows.Err(); err != nil {
		return types.Room{}, fmt.Errorf("rows error: %w", err)
	}

	room.Playlists, err = loadPlaylists(ctx, q, "WHERE p.room_id = $1", roomId)
	if err != nil {
		return types.Room{}, err
	}

	msgRows, err := q.QueryContext(ctx,
		"SELECT sender, message, created_at FROM chat_messages WHERE room_id = $1 ORDER BY id",
		roomId,
	)
	if err != nil {
		return types.Room{}, fmt.Errorf("select chat history: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var msg types.ChatMessage
		if err := msgRows.Scan(&msg.Sender, &msg.Message, &msg.Timestamp); err != nil {
			return types.Room{}, fmt.Errorf("scan message: %w", err)
		}
		room.ChatHistory = append(room.ChatHistory, msg)
	}
	if err := msgRows.Err(); err != nil {
		return types.Room{}, fmt.Errorf("rows error: %w", err)
	}

	return room, nil
}

func loadPlaylist(ctx context.Context, q querier, playlistId string) (types.Playlist, error) {
	playlists, err := loadPlaylists(ctx, q, "WHERE p.id = $1", playlistId)
	if err != nil {
		return types.Playlist{}, err
	}
	if len(playlists) == 0 {
		return types.Playlist{}, notFound("playlist", playlistId)
	}

	return playlists[0], nil
}

// loadPlaylists reads playlists with their movies in insertion order. where
// must be one of the package's constant filters.
func loadPlaylists(ctx context.Context, q querier, where string, arg any) ([]types.Playlist, error) {
	rows, err := q.QueryContext(ctx, playlistSelect+where+" ORDER BY p.position, m.position", arg)
	if err != nil {
		return nil, fmt.Errorf("select playlists: %w", err)
	}
	defer rows.Close()

	playlists := []types.Playlist{}
	index := make(map[string]int)
	for rows.Next() {
		var (
			p           types.Playlist
			movieId     sql.NullString
			title       sql.NullString
			poster      sql.NullString
			description sql.NullString
			genres      pq.StringArray
			rating      sql.NullFloat64
			addedBy     sql.NullString
		)

		if err := rows.Scan(
			&p.Id,
			&p.Name,
			&p.CoverImage,
			&movieId,
			&title,
			&poster,
			&description,
			&genres,
			&rating,
			&addedBy,
		); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}

		i, ok := index[p.Id]
		if !ok {
			p.Movies = []types.Movie{}
			playlists = append(playlists, p)
			i = len(playlists) - 1
			index[p.Id] = i
		}

		if movieId.Valid {
			m := types.Movie{
				Id:          movieId.String,
				Title:       title.String,
				Poster:      poster.String,
				Description: description.String,
				Genres:      cloneGenres(genres),
				AddedBy:     addedBy.String,
			}
			if rating.Valid {
				r := rating.Float64
				m.Rating = &r
			}
			playlists[i].Movies = append(playlists[i].Movies, m)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return playlists, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
