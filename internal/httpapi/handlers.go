package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/planning-poker-backend/internal/hub"
	"github.com/DoyleJ11/planning-poker-backend/internal/room"
	"github.com/DoyleJ11/planning-poker-backend/pkg/types"
)

type createRoomRequest struct {
	HostName string `json:"host_name"`
}

type createRoomResponse struct {
	RoomID   string         `json:"room_id"`
	HostID   string         `json:"host_id"`
	Snapshot types.Snapshot `json:"snapshot"`
}

// CreateRoom allocates a room with the caller as host. The caller
// keeps host_id as its bearer token for host-only commands.
func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&req) // empty body -> default host name
		}

		reply := make(chan hub.CreateResult, 1)
		h.Inbox() <- hub.CreateRoom{HostName: req.HostName, Reply: reply}
		res := <-reply

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createRoomResponse{
			RoomID:   res.RoomID,
			HostID:   res.HostID,
			Snapshot: res.Snapshot,
		})
	}
}

// GetRoom returns the current snapshot, same redaction rules as the
// socket stream.
func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")

		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.GetRoom{ID: roomID, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, `{"error":"room not found"}`, http.StatusNotFound)
			return
		}

		viewReply := make(chan room.View, 1)
		rm.Inbox() <- room.GetView{Reply: viewReply}
		select {
		case view := <-viewReply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(view.Snapshot)
		case <-time.After(2 * time.Second):
			http.Error(w, `{"error":"room unavailable"}`, http.StatusServiceUnavailable)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
