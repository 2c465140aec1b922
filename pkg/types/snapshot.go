package types

// Snapshot is the full view of a room pushed to every subscriber after
// each mutation. While votes_revealed is false, Vote is null for every
// participant and only HasVoted leaks.
type Snapshot struct {
	RoomID        string            `json:"room_id"`
	HostID        string            `json:"host_id"`
	Topic         string            `json:"topic"`
	VotesRevealed bool              `json:"votes_revealed"`
	AllVoted      bool              `json:"all_voted"`
	Participants  []ParticipantView `json:"participants"`
}

// ParticipantView is one row of the snapshot, in join order so the
// client grid doesn't reshuffle as votes arrive.
type ParticipantView struct {
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	IsHost   bool    `json:"is_host"`
	HasVoted bool    `json:"has_voted"`
	Vote     *string `json:"vote"`
}

// Reaction is a best-effort side-channel event. It never touches room
// state and may be dropped on a congested connection.
type Reaction struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Payload    string `json:"payload"`
}
