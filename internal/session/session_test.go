package session

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewRoom_HostIsSoleParticipant(t *testing.T) {
	r := NewRoom("Alice", t0)

	require.NotEmpty(t, r.ID)
	require.Equal(t, 1, r.Participants.Len())

	host, ok := r.Participants.Get(r.HostID)
	require.True(t, ok)
	require.True(t, host.IsHost)
	require.Equal(t, "Alice", host.Name)
	require.False(t, r.VotesRevealed)
	require.Empty(t, r.Topic)
}

func TestNewRoom_EmptyHostNameGetsDefault(t *testing.T) {
	r := NewRoom("", t0)
	host, _ := r.Participants.Get(r.HostID)
	require.Equal(t, "Host", host.Name)
}

func TestJoin_AddsNonHostWithNoVote(t *testing.T) {
	r := NewRoom("Alice", t0)
	p := r.Join("Bob", t0)

	require.False(t, p.IsHost)
	require.Nil(t, p.Vote)
	require.False(t, p.HasVoted)
	require.Equal(t, 2, r.Participants.Len())
	require.NotEqual(t, r.HostID, p.UserID)
}

func TestJoin_IDsNeverCollide(t *testing.T) {
	r := NewRoom("Alice", t0)
	seen := map[string]bool{r.HostID: true}
	for i := 0; i < 100; i++ {
		p := r.Join("Bob", t0)
		require.False(t, seen[p.UserID])
		seen[p.UserID] = true
	}
}

func TestSetVote_LastWriteWins(t *testing.T) {
	r := NewRoom("Alice", t0)
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.SetVote(r.HostID, "13", t0))
	require.NoError(t, r.SetVote(r.HostID, "8", t0))

	require.NoError(t, r.Reveal(r.HostID, t0))
	snap := BuildSnapshot(r)
	require.Equal(t, "8", *snap.Participants[0].Vote)
}

func TestSetVote_RejectsValueOutsideDeck(t *testing.T) {
	r := NewRoom("Alice", t0)
	err := r.SetVote(r.HostID, "999", t0)
	require.ErrorIs(t, err, ErrInvalidVote)

	host, _ := r.Participants.Get(r.HostID)
	require.Nil(t, host.Vote)
	require.False(t, host.HasVoted)
}

func TestSetVote_UnknownParticipant(t *testing.T) {
	r := NewRoom("Alice", t0)
	require.ErrorIs(t, r.SetVote("nope", "5", t0), ErrNotFound)
}

func TestSetVote_BreakCardIsValid(t *testing.T) {
	r := NewRoom("Alice", t0)
	require.NoError(t, r.SetVote(r.HostID, "break", t0))
}

func TestSetVote_AllowedAfterReveal(t *testing.T) {
	r := NewRoom("Alice", t0)
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.Reveal(r.HostID, t0))

	// Reveal gates visibility, not mutation.
	require.NoError(t, r.SetVote(r.HostID, "21", t0))
	snap := BuildSnapshot(r)
	require.Equal(t, "21", *snap.Participants[0].Vote)
}

func TestReveal_HostOnly(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)

	require.ErrorIs(t, r.Reveal(bob.UserID, t0), ErrForbidden)
	require.False(t, r.VotesRevealed)

	require.NoError(t, r.Reveal(r.HostID, t0))
	require.True(t, r.VotesRevealed)
}

func TestReveal_Idempotent(t *testing.T) {
	r := NewRoom("Alice", t0)
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.Reveal(r.HostID, t0))
	first := BuildSnapshot(r)

	require.NoError(t, r.Reveal(r.HostID, t0))
	second := BuildSnapshot(r)
	require.Equal(t, first, second)
}

func TestReset_ClearsVotesKeepsParticipantsAndTopic(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)
	require.NoError(t, r.SetTopic(r.HostID, "sprint 42", t0))
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.SetVote(bob.UserID, "8", t0))
	require.NoError(t, r.Reveal(r.HostID, t0))

	require.ErrorIs(t, r.Reset(bob.UserID, t0), ErrForbidden)
	require.NoError(t, r.Reset(r.HostID, t0))

	require.False(t, r.VotesRevealed)
	require.Equal(t, "sprint 42", r.Topic)
	require.Equal(t, 2, r.Participants.Len())
	for _, p := range r.Participants.All() {
		require.Nil(t, p.Vote)
		require.False(t, p.HasVoted)
	}
}

func TestReset_ThenRecastReproducesVotedPattern(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.SetVote(bob.UserID, "8", t0))
	before := BuildSnapshot(r)

	require.NoError(t, r.Reset(r.HostID, t0))
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.SetVote(bob.UserID, "8", t0))
	after := BuildSnapshot(r)

	require.Equal(t, before, after)
}

func TestSetTopic_LengthBound(t *testing.T) {
	r := NewRoom("Alice", t0)

	longest := strings.Repeat("x", MaxTopicLen)
	require.NoError(t, r.SetTopic(r.HostID, longest, t0))
	require.Equal(t, longest, r.Topic)

	err := r.SetTopic(r.HostID, longest+"x", t0)
	require.ErrorIs(t, err, ErrInvalidArgument)
	require.Equal(t, longest, r.Topic) // rejected, not clamped
}

func TestRemove_HostLeavesNoAutoPromotion(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)

	require.True(t, r.Remove(r.HostID, t0))

	// Host slot is vacant; host-only commands fail until a rejoin.
	require.ErrorIs(t, r.Reveal(bob.UserID, t0), ErrForbidden)
	snap := BuildSnapshot(r)
	require.Len(t, snap.Participants, 1)
	require.False(t, snap.Participants[0].IsHost)
}

func TestRejoin_WithinGraceKeepsVote(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)
	require.NoError(t, r.SetVote(bob.UserID, "13", t0))

	r.MarkDisconnected(bob.UserID, t0.Add(time.Minute))

	p, err := r.Rejoin(bob.UserID, t0.Add(30*time.Second))
	require.NoError(t, err)
	require.True(t, p.RemoveAfter.IsZero())
	require.True(t, p.HasVoted)
	require.Equal(t, "13", *p.Vote)

	// Deadline cleared: a later sweep must not remove the rejoined seat.
	require.Empty(t, r.SweepDisconnected(t0.Add(time.Hour)))
}

func TestSweepDisconnected_RemovesOverdueOnly(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)
	carol := r.Join("Carol", t0)

	r.MarkDisconnected(bob.UserID, t0.Add(time.Minute))
	r.MarkDisconnected(carol.UserID, t0.Add(time.Hour))

	removed := r.SweepDisconnected(t0.Add(2 * time.Minute))
	require.Equal(t, []string{bob.UserID}, removed)
	require.Equal(t, 2, r.Participants.Len())

	_, err := r.Rejoin(bob.UserID, t0.Add(3*time.Minute))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAllVoted(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)
	carol := r.Join("Carol", t0)

	require.NoError(t, r.SetVote(bob.UserID, "5", t0))
	require.NoError(t, r.SetVote(carol.UserID, "8", t0))
	require.False(t, BuildSnapshot(r).AllVoted) // host hasn't voted

	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.True(t, BuildSnapshot(r).AllVoted)
}

func TestAllVoted_FlipsTrueWhenNonVoterLeaves(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)
	require.NoError(t, r.SetVote(r.HostID, "3", t0))
	require.False(t, BuildSnapshot(r).AllVoted)

	r.Remove(bob.UserID, t0)
	require.True(t, BuildSnapshot(r).AllVoted)
}

func TestAllVoted_EmptyRoomIsFalse(t *testing.T) {
	r := NewRoom("Alice", t0)
	r.Remove(r.HostID, t0)
	require.False(t, BuildSnapshot(r).AllVoted)
}

func TestSnapshot_RedactsVotesUntilRevealed(t *testing.T) {
	r := NewRoom("Alice", t0)
	bob := r.Join("Bob", t0)
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.SetVote(bob.UserID, "8", t0))

	snap := BuildSnapshot(r)
	for _, p := range snap.Participants {
		require.True(t, p.HasVoted)
		require.Nil(t, p.Vote)
	}

	// The serialized form must not leak values either.
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NotContains(t, string(raw), `"vote":"5"`)
	require.NotContains(t, string(raw), `"vote":"8"`)
	require.Contains(t, string(raw), `"vote":null`)

	require.NoError(t, r.Reveal(r.HostID, t0))
	revealed := BuildSnapshot(r)
	require.Equal(t, "5", *revealed.Participants[0].Vote)
	require.Equal(t, "8", *revealed.Participants[1].Vote)
}

func TestSnapshot_ParticipantsInJoinOrder(t *testing.T) {
	r := NewRoom("Alice", t0)
	names := []string{"Bob", "Carol", "Dave"}
	for _, n := range names {
		r.Join(n, t0)
	}
	// Voting must not reshuffle the grid.
	last := r.Participants.All()[3]
	require.NoError(t, r.SetVote(last.UserID, "1", t0))

	snap := BuildSnapshot(r)
	require.Equal(t, "Alice", snap.Participants[0].Name)
	for i, n := range names {
		require.Equal(t, n, snap.Participants[i+1].Name)
	}
}

func TestSnapshot_CopiesVoteValues(t *testing.T) {
	r := NewRoom("Alice", t0)
	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.NoError(t, r.Reveal(r.HostID, t0))

	snap := BuildSnapshot(r)
	require.NoError(t, r.SetVote(r.HostID, "89", t0))
	require.Equal(t, "5", *snap.Participants[0].Vote)
}

func TestFullRound_CreateVoteRevealScenario(t *testing.T) {
	r := NewRoom("U1", t0)
	u2 := r.Join("U2", t0)
	u3 := r.Join("U3", t0)

	require.NoError(t, r.SetVote(u2.UserID, "5", t0))
	require.NoError(t, r.SetVote(u3.UserID, "8", t0))
	require.False(t, BuildSnapshot(r).AllVoted)

	require.NoError(t, r.SetVote(r.HostID, "5", t0))
	require.True(t, BuildSnapshot(r).AllVoted)

	require.ErrorIs(t, r.Reveal(u2.UserID, t0), ErrForbidden)
	require.NoError(t, r.Reveal(r.HostID, t0))

	snap := BuildSnapshot(r)
	require.True(t, snap.VotesRevealed)
	votes := map[string]string{}
	for _, p := range snap.Participants {
		votes[p.Name] = *p.Vote
	}
	require.Equal(t, map[string]string{"U1": "5", "U2": "5", "U3": "8"}, votes)
}
