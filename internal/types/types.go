package types

import (
	"time"
)

// User is the identity attached to a request or connection. Identities are
// issued by an external provider and only referenced here.
type User struct {
	Id    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// DisplayName is the name recorded as the sender of chat messages.
func (u User) DisplayName() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Id
}

type Movie struct {
	Id          string   `json:"id"`
	Title       string   `json:"title" validate:"required,max=300"`
	Poster      string   `json:"poster,omitempty" validate:"omitempty,max=2048"`
	Description string   `json:"description,omitempty"`
	Genres      []string `json:"genres"`
	Rating      *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	AddedBy     string   `json:"addedBy,omitempty"`
}

type Playlist struct {
	Id         string  `json:"id"`
	Name       string  `json:"name"`
	CoverImage string  `json:"coverImage,omitempty"`
	Movies     []Movie `json:"movies"`
}

type ChatMessage struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Room is the persisted aggregate for a blend room.
type Room struct {
	RoomId       string        `json:"roomId"`
	OwnerId      string        `json:"createdBy"`
	Participants []string      `json:"participants"`
	Playlists    []Playlist    `json:"playlists"`
	ChatHistory  []ChatMessage `json:"chatHistory"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// HasParticipant reports whether userId is a member of the room.
func (r Room) HasParticipant(userId string) bool {
	for _, p := range r.Participants {
		if p == userId {
			return true
		}
	}
	return false
}

// Playlist returns the playlist with the given id.
func (r Room) Playlist(id string) (Playlist, bool) {
	for _, p := range r.Playlists {
		if p.Id == id {
			return p, true
		}
	}
	return Playlist{}, false
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
)

type Invite struct {
	Id         string       `json:"id"`
	RoomId     string       `json:"roomId"`
	SenderId   string       `json:"senderId"`
	ReceiverId string       `json:"receiverId"`
	Status     InviteStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Library holds the playlists and favorites a user keeps outside of any room.
type Library struct {
	UserId    string     `json:"userId"`
	Playlists []Playlist `json:"playlists"`
	Favorites []Movie    `json:"favorites"`
}

// Event is a server to client realtime message.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}
