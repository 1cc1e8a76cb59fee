package domain

// ConnID identifies one live signaling channel. A user may hold several.
type ConnID string

const StatusOnline = "online"

// PresenceEntry is the per-connection record published in the online-users
// snapshot. Entries are not deduplicated by user: two devices of the same
// user yield two entries.
type PresenceEntry struct {
	UserID UserID `json:"id"`
	Status string `json:"status"`
}
