package session

import "github.com/DoyleJ11/planning-poker-backend/pkg/types"

// BuildSnapshot is the one place snapshots come from, so every push
// path (initial subscribe, post-mutation broadcast, HTTP GET) applies
// the same redaction and the same allVoted derivation.
func BuildSnapshot(r *Room) types.Snapshot {
	all := r.Participants.All()
	snap := types.Snapshot{
		RoomID:        r.ID,
		HostID:        r.HostID,
		Topic:         r.Topic,
		VotesRevealed: r.VotesRevealed,
		AllVoted:      len(all) > 0,
		Participants:  make([]types.ParticipantView, 0, len(all)),
	}
	for _, p := range all {
		if !p.HasVoted {
			snap.AllVoted = false
		}
		view := types.ParticipantView{
			UserID:   p.UserID,
			Name:     p.Name,
			IsHost:   p.IsHost,
			HasVoted: p.HasVoted,
		}
		if r.VotesRevealed && p.Vote != nil {
			v := *p.Vote // copy so later re-votes don't mutate the snapshot
			view.Vote = &v
		}
		snap.Participants = append(snap.Participants, view)
	}
	return snap
}
