package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/DoyleJ11/planning-poker-backend/internal/hub"
	"github.com/DoyleJ11/planning-poker-backend/internal/room"
	"github.com/DoyleJ11/planning-poker-backend/internal/session"
	"github.com/DoyleJ11/planning-poker-backend/internal/types"
	pkgtypes "github.com/DoyleJ11/planning-poker-backend/pkg/types"
	"github.com/google/uuid"
)

const writeTimeout = 3 * time.Second

// Handler upgrades /ws?room=<roomId> and drives the connection
// through its lifecycle: Connecting until the first Join/Rejoin is
// accepted, Joined while the reader loop runs, Disconnected on any
// read error, which starts the participant's grace period.
func Handler(h *hub.Hub, log *zap.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{ID: roomID, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &client{
			conn:     conn,
			room:     rm,
			clientID: uuid.NewString(),
			log:      log.With(zap.String("room_id", roomID)),
		}
		c.run(r.Context())
	}
}

type client struct {
	conn     *websocket.Conn
	room     *room.Room
	clientID string
	userID   string
	log      *zap.Logger
}

func (c *client) run(ctx context.Context) {
	// Connecting: the first message must establish identity.
	first, err := c.read(ctx)
	if err != nil {
		return
	}
	switch first.Type {
	case "Join":
		reply := make(chan room.JoinResult, 1)
		c.room.Inbox() <- room.Join{Name: first.Name, Reply: reply}
		res := <-reply
		c.userID = res.UserID
		c.write(ctx, types.ServerMessage{Type: "Joined", UserID: res.UserID, Snapshot: &res.Snapshot})

	case "Rejoin":
		reply := make(chan room.RejoinResult, 1)
		c.room.Inbox() <- room.Rejoin{UserID: first.UserID, Reply: reply}
		res := <-reply
		if res.Err != nil {
			// Fatal for this session: the client must not fall back
			// to a fresh join here or one human becomes two ghosts.
			c.writeErr(ctx, res.Err)
			return
		}
		c.userID = first.UserID
		c.write(ctx, types.ServerMessage{Type: "Joined", UserID: c.userID, Snapshot: &res.Snapshot})

	default:
		c.write(ctx, types.ServerMessage{Type: "Error", Code: "bad_message", Error: "expected Join or Rejoin"})
		return
	}

	c.log = c.log.With(zap.String("user_id", c.userID))
	c.log.Info("connection joined")

	// Joined: subscribe, then pump.
	out := make(chan room.Outbound, 8)
	c.room.Inbox() <- room.Subscribe{ClientID: c.clientID, Outbox: out}

	left := false
	defer func() {
		c.room.Inbox() <- room.Unsubscribe{ClientID: c.clientID}
		if !left {
			// Disconnected: keep the seat for a grace-period rejoin.
			c.room.Inbox() <- room.Disconnected{UserID: c.userID}
			c.log.Info("connection dropped, grace period started")
		}
	}()

	writeCtx, writeCancel := context.WithCancel(ctx)
	defer writeCancel()
	go c.writer(writeCtx, out)

	for {
		msg, err := c.read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			return
		}

		if msg.Type == "Leave" {
			left = true
			c.room.Inbox() <- room.Leave{UserID: c.userID}
			return
		}
		c.dispatch(ctx, msg)
	}
}

// dispatch maps one Joined-state message to a room command and writes
// the failure, if any, back to this caller only.
func (c *client) dispatch(ctx context.Context, msg types.ClientMessage) {
	switch msg.Type {
	case "Vote":
		reply := make(chan error, 1)
		c.room.Inbox() <- room.CastVote{UserID: c.userID, Value: msg.Vote, Reply: reply}
		c.replyErr(ctx, <-reply)

	case "Reveal":
		reply := make(chan error, 1)
		c.room.Inbox() <- room.Reveal{CallerID: c.userID, Reply: reply}
		c.replyErr(ctx, <-reply)

	case "Reset":
		reply := make(chan error, 1)
		c.room.Inbox() <- room.Reset{CallerID: c.userID, Reply: reply}
		c.replyErr(ctx, <-reply)

	case "SetTopic":
		reply := make(chan error, 1)
		c.room.Inbox() <- room.UpdateTopic{CallerID: c.userID, Text: msg.Topic, Reply: reply}
		c.replyErr(ctx, <-reply)

	case "Reaction":
		c.room.Inbox() <- room.Throw{Reaction: pkgtypes.Reaction{
			FromUserID: c.userID,
			ToUserID:   msg.ToUserID,
			Payload:    msg.Payload,
		}}

	default:
		c.write(ctx, types.ServerMessage{Type: "Error", Code: "bad_message", Error: "unknown type"})
	}
}

func (c *client) writer(ctx context.Context, out <-chan room.Outbound) {
	for ob := range out {
		var sm types.ServerMessage
		switch {
		case ob.Snapshot != nil:
			sm = types.ServerMessage{Type: "Snapshot", Version: ob.Version, Snapshot: ob.Snapshot}
		case ob.Reaction != nil:
			sm = types.ServerMessage{Type: "Reaction", Reaction: ob.Reaction}
		default:
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		payload, _ := json.Marshal(sm)
		_ = c.conn.Write(wctx, websocket.MessageText, payload)
		cancel()
	}
}

func (c *client) read(ctx context.Context) (types.ClientMessage, error) {
	var msg types.ClientMessage
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return msg, err
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			c.write(ctx, types.ServerMessage{Type: "Error", Code: "bad_message", Error: "bad json"})
			continue
		}
		return msg, nil
	}
}

func (c *client) write(ctx context.Context, sm types.ServerMessage) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	payload, _ := json.Marshal(sm)
	_ = c.conn.Write(wctx, websocket.MessageText, payload)
}

func (c *client) replyErr(ctx context.Context, err error) {
	if err == nil {
		return
	}
	c.writeErr(ctx, err)
}

func (c *client) writeErr(ctx context.Context, err error) {
	c.write(ctx, types.ServerMessage{Type: "Error", Code: errCode(err), Error: err.Error()})
}

func errCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	case errors.Is(err, session.ErrForbidden):
		return "forbidden"
	case errors.Is(err, session.ErrInvalidVote):
		return "invalid_vote"
	case errors.Is(err, session.ErrInvalidArgument):
		return "invalid_argument"
	default:
		return "internal"
	}
}
