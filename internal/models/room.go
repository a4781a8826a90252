package models

import "time"

type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Purpose     string    `json:"purpose"`
	IsPrivate   bool      `json:"isPrivate"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	Members     []User    `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasMember reports whether userID is listed in the room's members.
func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// CanAccess reports whether userID may read and post in the room.
func (r *Room) CanAccess(userID string) bool {
	return !r.IsPrivate || r.HasMember(userID)
}

type RoomCreationData struct {
	Name        string `json:"name"`
	Purpose     string `json:"purpose"`
	IsPrivate   bool   `json:"isPrivate"`
	Description string `json:"description,omitempty"`
}

type RoomMembers struct {
	RoomID  string   `json:"roomId"`
	Members []string `json:"members"`
}

// AddMembersRequest mirrors the body the web client PUTs: the member list is
// nested under "membersData".
type AddMembersRequest struct {
	MembersData RoomMembers `json:"membersData"`
}

// Purposes a room can be created with.
var PurposeOptions = []string{"chat", "gossip", "education", "study", "work"}

// ValidPurpose reports whether p is one of PurposeOptions.
func ValidPurpose(p string) bool {
	for _, o := range PurposeOptions {
		if o == p {
			return true
		}
	}
	return false
}
