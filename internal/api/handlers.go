package api

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/blend/internal/blend"
	"github.com/npezzotti/blend/internal/types"
)

const maxBodySize = 1 << 20

type CreatePlaylistRequest struct {
	Name       string `json:"name"`
	CoverImage string `json:"coverImage"`
}

type AddMovieRequest struct {
	Movie types.Movie `json:"movie"`
}

type PostMessageRequest struct {
	Message string `json:"message"`
}

type SendInviteRequest struct {
	RoomId     string `json:"roomId"`
	ReceiverId string `json:"receiverId"`
}

type RespondInviteRequest struct {
	Accepted bool `json:"accepted"`
}

type LeaveRoomResponse struct {
	Deleted bool        `json:"deleted"`
	Room    *types.Room `json:"room,omitempty"`
}

type SuggestionsResponse struct {
	Titles []string `json:"titles"`
}

func (s *BlendApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("json encode")
	}
}

func (s *BlendApp) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errResp := errorFrom(err)
	if errResp.StatusCode >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *BlendApp) decodeJson(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return false
	}
	return true
}

func caller(r *http.Request) blend.Caller {
	return blend.Caller{User: mustUser(r)}
}

func (s *BlendApp) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *BlendApp) createRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.svc.CreateRoom(r.Context(), caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, room)
}

func (s *BlendApp) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.svc.GetRoom(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *BlendApp) joinRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.svc.JoinRoom(r.Context(), caller(r), chi.URLParam(r, "roomId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, room)
}

func (s *BlendApp) leaveRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "roomId")
	if err := s.svc.LeaveRoom(r.Context(), caller(r), roomId); err != nil {
		s.writeError(w, r, err)
		return
	}

	room, err := s.svc.GetRoom(r.Context(), roomId)
	if errors.Is(err, types.ErrNotFound) {
		s.writeJson(w, http.StatusOK, LeaveRoomResponse{Deleted: true})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, LeaveRoomResponse{Room: &room})
}

func (s *BlendApp) postMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	msg, err := s.svc.PostMessage(r.Context(), caller(r), chi.URLParam(r, "roomId"), req.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, msg)
}

func (s *BlendApp) addPlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	p, err := s.svc.AddPlaylist(r.Context(), caller(r), chi.URLParam(r, "roomId"), req.Name, req.CoverImage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, p)
}

func (s *BlendApp) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req blend.PlaylistUpdate
	if !s.decodeJson(w, r, &req) {
		return
	}

	p, err := s.svc.UpdatePlaylist(r.Context(), caller(r), chi.URLParam(r, "roomId"), chi.URLParam(r, "playlistId"), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *BlendApp) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.svc.DeletePlaylist(r.Context(), caller(r), chi.URLParam(r, "roomId"), chi.URLParam(r, "playlistId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, playlists)
}

func (s *BlendApp) addMovie(w http.ResponseWriter, r *http.Request) {
	var req AddMovieRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	p, err := s.svc.AddMovie(r.Context(), caller(r), chi.URLParam(r, "roomId"), chi.URLParam(r, "playlistId"), req.Movie)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, p)
}

func (s *BlendApp) deleteMovie(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.DeleteMovie(r.Context(), caller(r),
		chi.URLParam(r, "roomId"), chi.URLParam(r, "playlistId"), chi.URLParam(r, "movieId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *BlendApp) recommendations(w http.ResponseWriter, r *http.Request) {
	movies, err := s.svc.Recommendations(r.Context(), caller(r), chi.URLParam(r, "roomId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, movies)
}

func (s *BlendApp) suggestTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := s.svc.SuggestTitles(r.Context(), caller(r), chi.URLParam(r, "roomId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, SuggestionsResponse{Titles: titles})
}

func (s *BlendApp) pendingInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := s.svc.PendingInvites(r.Context(), caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, invites)
}

func (s *BlendApp) sendInvite(w http.ResponseWriter, r *http.Request) {
	var req SendInviteRequest
	if !s.decodeJson(w, r, &req) {
		return
	}
	if req.RoomId == "" {
		s.writeError(w, r, types.NewValidationError("roomId", "is required"))
		return
	}

	inv, err := s.svc.SendInvite(r.Context(), caller(r), req.RoomId, req.ReceiverId)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, inv)
}

func (s *BlendApp) respondInvite(w http.ResponseWriter, r *http.Request) {
	var req RespondInviteRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	inv, err := s.svc.RespondInvite(r.Context(), caller(r), chi.URLParam(r, "inviteId"), req.Accepted)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, inv)
}

func (s *BlendApp) userPlaylists(w http.ResponseWriter, r *http.Request) {
	lib, err := s.svc.Library(r.Context(), caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, lib.Playlists)
}

func (s *BlendApp) createUserPlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	p, err := s.svc.CreateUserPlaylist(r.Context(), caller(r), req.Name, req.CoverImage)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, p)
}

func (s *BlendApp) deleteUserPlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteUserPlaylist(r.Context(), caller(r), chi.URLParam(r, "playlistId")); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *BlendApp) addUserPlaylistMovie(w http.ResponseWriter, r *http.Request) {
	var req AddMovieRequest
	if !s.decodeJson(w, r, &req) {
		return
	}

	p, err := s.svc.AddMovieToUserPlaylist(r.Context(), caller(r), chi.URLParam(r, "playlistId"), req.Movie)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, p)
}

func (s *BlendApp) deleteUserPlaylistMovie(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.DeleteMovieFromUserPlaylist(r.Context(), caller(r), chi.URLParam(r, "playlistId"), chi.URLParam(r, "movieId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, p)
}

func (s *BlendApp) favorites(w http.ResponseWriter, r *http.Request) {
	lib, err := s.svc.Library(r.Context(), caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, lib.Favorites)
}

func (s *BlendApp) addFavorite(w http.ResponseWriter, r *http.Request) {
	var movie types.Movie
	if !s.decodeJson(w, r, &movie) {
		return
	}

	favs, err := s.svc.AddFavorite(r.Context(), caller(r), movie)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusCreated, favs)
}

func (s *BlendApp) removeFavorite(w http.ResponseWriter, r *http.Request) {
	favs, err := s.svc.RemoveFavorite(r.Context(), caller(r), chi.URLParam(r, "movieId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJson(w, http.StatusOK, favs)
}

func (s *BlendApp) serveWs(w http.ResponseWriter, r *http.Request) {
	user := mustUser(r)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("error upgrading connection")
		return
	}

	s.cs.Connect(user, conn)
}
