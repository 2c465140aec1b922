package hub

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/planning-poker-backend/internal/room"
	"github.com/DoyleJ11/planning-poker-backend/internal/session"
	"github.com/DoyleJ11/planning-poker-backend/internal/store"
	"github.com/DoyleJ11/planning-poker-backend/pkg/types"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	HostName string
	Reply    chan CreateResult
}

type CreateResult struct {
	Room     *room.Room
	RoomID   string
	HostID   string
	Snapshot types.Snapshot
}

type GetRoom struct {
	ID    string
	Reply chan *room.Room
}

type RemoveRoom struct {
	ID string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Clock       clockwork.Clock
	GracePeriod time.Duration
	// RoomIdleTTL is how long an empty room survives before the sweep
	// deletes it. Any join or rejoin restarts the clock.
	RoomIdleTTL   time.Duration
	SweepInterval time.Duration
	Store         store.Store
	Logger        *zap.Logger
}

// Hub owns the roomID -> room actor map. Like the rooms it is an
// actor: the map is touched only from the loop goroutine.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		opts:   opts,
		log:    opts.Logger.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	ticker := h.opts.Clock.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.Chan():
			h.sweepIdle()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				state := session.NewRoom(msg.HostName, h.opts.Clock.Now())
				rm := room.NewRoom(h.ctx, state, room.Options{
					Clock:       h.opts.Clock,
					GracePeriod: h.opts.GracePeriod,
					Store:       h.opts.Store,
					Logger:      h.opts.Logger,
				})
				h.rooms[state.ID] = rm
				h.log.Info("room created",
					zap.String("room_id", state.ID),
					zap.String("host_id", state.HostID))
				msg.Reply <- CreateResult{
					Room:     rm,
					RoomID:   state.ID,
					HostID:   state.HostID,
					Snapshot: session.BuildSnapshot(state),
				}

			case GetRoom:
				msg.Reply <- h.rooms[msg.ID] // may be nil

			case RemoveRoom:
				if rm := h.rooms[msg.ID]; rm != nil {
					rm.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.ID)
				}

			case ShutdownHub:
				for _, rm := range h.rooms {
					rm.Inbox() <- room.Shutdown{}
				}
				clear(h.rooms)
				h.cancel()
				return
			}
		}
	}
}

// sweepIdle deletes rooms that have sat empty past the idle TTL, then
// lets the store drop any records older than the same cutoff (covers
// rooms left over from prior runs of the process).
func (h *Hub) sweepIdle() {
	now := h.opts.Clock.Now()
	cutoff := now.Add(-h.opts.RoomIdleTTL)

	for id, rm := range h.rooms {
		view, ok := h.viewOf(rm)
		if !ok {
			continue
		}
		if view.NumParticipants > 0 || view.LastActivityAt.After(cutoff) {
			continue
		}
		rm.Inbox() <- room.Shutdown{}
		delete(h.rooms, id)
		h.deleteRecord(id)
		h.log.Info("idle room expired", zap.String("room_id", id))
	}

	if h.opts.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if n, err := h.opts.Store.SweepExpired(ctx, cutoff); err != nil {
			h.log.Warn("store sweep failed", zap.Error(err))
		} else if n > 0 {
			h.log.Info("store sweep deleted rooms", zap.Int("count", n))
		}
	}
}

func (h *Hub) viewOf(rm *room.Room) (room.View, bool) {
	reply := make(chan room.View, 1)
	rm.Inbox() <- room.GetView{Reply: reply}
	select {
	case v := <-reply:
		return v, true
	case <-time.After(time.Second):
		return room.View{}, false
	}
}

func (h *Hub) deleteRecord(roomID string) {
	if h.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.opts.Store.Delete(ctx, roomID); err != nil {
		h.log.Warn("store delete failed",
			zap.String("room_id", roomID), zap.Error(err))
	}
}
