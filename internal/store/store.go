package store

import (
	"github.com/huddlechat/huddle/internal/types"
)

// RoomStore is the single source of truth for rooms, messages and
// participants. All operations are safe for concurrent use and never
// fail the caller because of durable-layer faults.
type RoomStore interface {
	// CreateRoomIfAbsent returns the room with the given code, creating
	// it when absent. The name from the original create wins on repeat
	// calls. An empty code allocates a generated one.
	CreateRoomIfAbsent(code, name string) (types.Room, error)
	RoomByCode(code string) (types.Room, bool)
	SetParticipantCount(code string, n int)
	SetRoomName(code, name string) bool
	SetRoomTheme(code string, theme types.Theme) bool

	// AppendMessage assigns the message an id and stores it. The append
	// is atomic with respect to concurrent appends to the same room.
	AppendMessage(msg types.Message) (types.Message, error)
	// MessagesByRoom returns a room's history in ascending timestamp
	// order.
	MessagesByRoom(roomId string) []types.Message
	UpdateMessage(id string, fn func(*types.Message)) (types.Message, bool)
	DeleteMessage(id string) bool
	// AddReaction records a reaction, keeping each username at most once
	// per emoji.
	AddReaction(messageId, emoji, username string) (types.Message, bool)

	UpsertParticipant(roomId, username string, p types.Participant) types.Participant
	RemoveParticipant(roomId, username string)
	ParticipantsByRoom(roomId string) []types.Participant
	// UpdateParticipant merges the partial update into an existing
	// participant. A missing participant is a benign race with a
	// concurrent leave and reports false.
	UpdateParticipant(roomId, username string, upd types.ParticipantUpdate) (types.Participant, bool)
}

// MessageArchive is the optional durable backend for message history.
// Writes are best-effort; the store serves from memory regardless of
// archive health.
type MessageArchive interface {
	SaveMessage(msg types.Message) error
	MessagesByRoom(roomId string) ([]types.Message, error)
	Close() error
}
