package types

import "github.com/DoyleJ11/planning-poker-backend/pkg/types"

type ClientMessage struct {
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Vote     string `json:"vote,omitempty"`
	Topic    string `json:"topic,omitempty"`
	ToUserID string `json:"to_user_id,omitempty"`
	Payload  string `json:"payload,omitempty"`
}

type ServerMessage struct {
	Type     string          `json:"type"` // "Joined" | "Snapshot" | "Reaction" | "Error"
	Version  int             `json:"version,omitempty"`
	UserID   string          `json:"user_id,omitempty"`
	Snapshot *types.Snapshot `json:"snapshot,omitempty"`
	Reaction *types.Reaction `json:"reaction,omitempty"`
	Code     string          `json:"code,omitempty"`
	Error    string          `json:"error,omitempty"`
}
