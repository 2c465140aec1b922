package types

// Client -> Server
//
// Join:       name
// Rejoin:     user_id (previously issued by Join)
// Vote:       vote (member of the card deck, e.g. "5" or "break")
// Reveal:     {} (host only)
// Reset:      {} (host only)
// SetTopic:   topic (host only, <= 200 chars)
// Leave:      {}
// Reaction:   to_user_id, payload

// Server -> Client
//
// Joined:    user_id + snapshot (reply to Join/Rejoin, before the stream starts)
// Snapshot:  version + snapshot (one per room mutation, in mutation order)
// Reaction:  from_user_id, to_user_id, payload (best-effort)
// Error:     code + message (sent only to the offending caller)
