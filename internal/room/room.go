package room

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/planning-poker-backend/internal/session"
	"github.com/DoyleJ11/planning-poker-backend/internal/store"
	"github.com/DoyleJ11/planning-poker-backend/pkg/types"
)

type Msg interface{ isRoomMsg() }

// Subscribe registers a connection for snapshot pushes. The current
// snapshot is delivered immediately, then one per mutation in mutation
// order.
type Subscribe struct {
	ClientID string
	Outbox   chan Outbound
}

type Unsubscribe struct{ ClientID string }

type Join struct {
	Name  string
	Reply chan JoinResult
}

type JoinResult struct {
	UserID   string
	Snapshot types.Snapshot
}

type Rejoin struct {
	UserID string
	Reply  chan RejoinResult
}

type RejoinResult struct {
	Snapshot types.Snapshot
	Err      error
}

type CastVote struct {
	UserID string
	Value  string
	Reply  chan error
}

type Reveal struct {
	CallerID string
	Reply    chan error
}

type Reset struct {
	CallerID string
	Reply    chan error
}

type UpdateTopic struct {
	CallerID string
	Text     string
	Reply    chan error
}

// Leave removes the participant immediately, no grace period. A
// transport-level drop should send Disconnected instead.
type Leave struct{ UserID string }

// Disconnected starts the grace window for a participant whose socket
// went away. The entry is kept for one rejoin until the deadline.
type Disconnected struct{ UserID string }

// Throw relays a reaction to current subscribers. Best-effort: no
// state change, no version bump, silent drop on congestion.
type Throw struct{ Reaction types.Reaction }

// GetView reflects internal state without data races. Used by the hub
// sweep and by tests.
type GetView struct{ Reply chan View }

type Shutdown struct{}

func (Subscribe) isRoomMsg()    {}
func (Unsubscribe) isRoomMsg()  {}
func (Join) isRoomMsg()         {}
func (Rejoin) isRoomMsg()       {}
func (CastVote) isRoomMsg()     {}
func (Reveal) isRoomMsg()       {}
func (Reset) isRoomMsg()        {}
func (UpdateTopic) isRoomMsg()  {}
func (Leave) isRoomMsg()        {}
func (Disconnected) isRoomMsg() {}
func (Throw) isRoomMsg()        {}
func (GetView) isRoomMsg()      {}
func (Shutdown) isRoomMsg()     {}

// Outbound is one element of a subscriber's stream: either a snapshot
// or a reaction, never both.
type Outbound struct {
	Version  int
	Snapshot *types.Snapshot
	Reaction *types.Reaction
}

type View struct {
	Version         int
	NumSubscribers  int
	NumParticipants int
	LastActivityAt  time.Time
	Snapshot        types.Snapshot
}

type Options struct {
	Clock       clockwork.Clock
	GracePeriod time.Duration
	// TickEvery is how often the grace deadlines are evaluated.
	TickEvery time.Duration
	Store     store.Store
	Logger    *zap.Logger
}

// Room is the actor owning one session.Room. Every command for the
// room flows through its inbox, so no two mutations ever interleave;
// rooms are fully independent of each other.
type Room struct {
	inbox   chan Msg
	state   *session.Room
	version int
	subs    map[string]chan Outbound
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewRoom(parent context.Context, state *session.Room, opts Options) *Room {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TickEvery <= 0 {
		opts.TickEvery = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:  make(chan Msg, 64),
		state:  state,
		subs:   make(map[string]chan Outbound),
		opts:   opts,
		log:    opts.Logger.With(zap.String("room_id", state.ID)),
		ctx:    ctx,
		cancel: cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) loop() {
	ticker := r.opts.Clock.NewTicker(r.opts.TickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-ticker.Chan():
			r.sweepGrace()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Subscribe:
				r.subs[msg.ClientID] = msg.Outbox
				snap := session.BuildSnapshot(r.state)
				msg.Outbox <- Outbound{Version: r.version, Snapshot: &snap}

			case Unsubscribe:
				delete(r.subs, msg.ClientID)

			case Join:
				now := r.opts.Clock.Now()
				p := r.state.Join(msg.Name, now)
				r.mutated()
				msg.Reply <- JoinResult{UserID: p.UserID, Snapshot: session.BuildSnapshot(r.state)}

			case Rejoin:
				now := r.opts.Clock.Now()
				_, err := r.state.Rejoin(msg.UserID, now)
				if err != nil {
					msg.Reply <- RejoinResult{Err: err}
					break
				}
				r.mutated()
				msg.Reply <- RejoinResult{Snapshot: session.BuildSnapshot(r.state)}

			case CastVote:
				err := r.state.SetVote(msg.UserID, msg.Value, r.opts.Clock.Now())
				msg.Reply <- err
				if err == nil {
					r.mutated()
				}

			case Reveal:
				err := r.state.Reveal(msg.CallerID, r.opts.Clock.Now())
				msg.Reply <- err
				if err == nil {
					r.mutated()
				}

			case Reset:
				err := r.state.Reset(msg.CallerID, r.opts.Clock.Now())
				msg.Reply <- err
				if err == nil {
					r.mutated()
				}

			case UpdateTopic:
				err := r.state.SetTopic(msg.CallerID, msg.Text, r.opts.Clock.Now())
				msg.Reply <- err
				if err == nil {
					r.mutated()
				}

			case Leave:
				if r.state.Remove(msg.UserID, r.opts.Clock.Now()) {
					r.mutated()
				}

			case Disconnected:
				deadline := r.opts.Clock.Now().Add(r.opts.GracePeriod)
				r.state.MarkDisconnected(msg.UserID, deadline)

			case Throw:
				r.relay(msg.Reaction)

			case GetView:
				msg.Reply <- View{
					Version:         r.version,
					NumSubscribers:  len(r.subs),
					NumParticipants: r.state.Participants.Len(),
					LastActivityAt:  r.state.LastActivityAt,
					Snapshot:        session.BuildSnapshot(r.state),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// mutated runs after every successful state transition: bump the
// version, write behind to the store, push the new snapshot to
// everyone.
func (r *Room) mutated() {
	r.version++
	r.persist()
	snap := session.BuildSnapshot(r.state)
	r.broadcast(Outbound{Version: r.version, Snapshot: &snap})
}

func (r *Room) sweepGrace() {
	removed := r.state.SweepDisconnected(r.opts.Clock.Now())
	if len(removed) == 0 {
		return
	}
	for _, id := range removed {
		r.log.Info("grace period elapsed, participant removed", zap.String("user_id", id))
	}
	r.mutated()
}

func (r *Room) broadcast(out Outbound) {
	for id, ch := range r.subs {
		select {
		case ch <- out:
		default:
			// Subscriber is slow/full - drop it. Reconnect is the
			// recovery path.
			close(ch)
			delete(r.subs, id)
			r.log.Warn("dropped slow subscriber", zap.String("client_id", id))
		}
	}
}

// relay differs from broadcast: a congested subscriber just misses the
// reaction, it is not dropped. At-most-once is the contract.
func (r *Room) relay(reaction types.Reaction) {
	for _, ch := range r.subs {
		select {
		case ch <- Outbound{Reaction: &reaction}:
		default:
		}
	}
}

func (r *Room) persist() {
	if r.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.opts.Store.Put(ctx, r.record()); err != nil {
		// In-memory state stays authoritative; the store is a
		// durability aid, so a failed write is logged, not fatal.
		r.log.Warn("store write failed", zap.Error(err))
	}
}

func (r *Room) record() *store.RoomRecord {
	rec := &store.RoomRecord{
		RoomID:        r.state.ID,
		HostID:        r.state.HostID,
		Topic:         r.state.Topic,
		VotesRevealed: r.state.VotesRevealed,
		CreatedAt:     r.state.CreatedAt,
		UpdatedAt:     r.state.LastActivityAt,
	}
	for _, p := range r.state.Participants.All() {
		pr := store.ParticipantRecord{
			UserID:   p.UserID,
			Name:     p.Name,
			IsHost:   p.IsHost,
			HasVoted: p.HasVoted,
			JoinedAt: p.ConnectedAt,
		}
		if p.Vote != nil {
			v := *p.Vote
			pr.Vote = &v
		}
		rec.Participants = append(rec.Participants, pr)
	}
	return rec
}

func (r *Room) shutdown() {
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
	r.cancel()
}
