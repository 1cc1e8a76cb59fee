package domain

import "time"

type (
	RoomID    string
	MeetingID string
)

// Meeting is the persisted metadata behind a room. Its lifetime is
// independent of who is currently connected: a meeting with an empty
// peer list is still a valid meeting.
type Meeting struct {
	ID        MeetingID `json:"id"`
	Title     string    `json:"title"`
	HostID    UserID    `json:"hostId"`
	Peers     []ConnID  `json:"peers"`
	CreatedAt time.Time `json:"createdAt"`
}
