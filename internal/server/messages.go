package server

import (
	"encoding/json"
	"time"

	"github.com/huddlechat/huddle/internal/types"
)

// Protocol tags. Client-originated tags are interpreted by the relay;
// server-originated tags are only ever produced. The rtc_* tags flow in
// both directions unchanged.
const (
	TypeJoinRoom        = "join_room"
	TypeLeaveRoom       = "leave_room"
	TypeChatMessage     = "chat_message"
	TypeTypingStart     = "typing_start"
	TypeTypingStop      = "typing_stop"
	TypePresenceUpdate  = "presence_update"
	TypeAddReaction     = "add_reaction"
	TypeEditMessage     = "edit_message"
	TypeDeleteMessage   = "delete_message"
	TypeUpdateRoomName  = "update_room_name"
	TypeUpdateRoomTheme = "update_room_theme"
	TypeToggleVideo     = "toggle_video"
	TypeRTCOffer        = "rtc_offer"
	TypeRTCAnswer       = "rtc_answer"
	TypeRTCICECandidate = "rtc_ice_candidate"

	TypeRoomList         = "room_list"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypeMessageReaction  = "message_reaction"
	TypeMessageUpdated   = "message_updated"
	TypeMessageDeleted   = "message_deleted"
	TypeRoomNameUpdated  = "room_name_updated"
	TypeRoomThemeUpdated = "room_theme_updated"
)

// Envelope is the unit exchanged on the wire. Payload stays raw until
// the relay decodes it against the tag's payload type.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

type JoinRoomPayload struct {
	RoomId   string `json:"roomId" validate:"required,max=32"`
	Username string `json:"username" validate:"required,max=32"`
}

type LeaveRoomPayload struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username"`
}

type ChatMessagePayload struct {
	RoomId     string            `json:"roomId"`
	Content    string            `json:"content" validate:"max=2000"`
	Attachment *types.Attachment `json:"attachment,omitempty"`
}

type TypingPayload struct {
	RoomId   string `json:"roomId"`
	Username string `json:"username,omitempty"`
}

type PresenceUpdatePayload struct {
	RoomId   string                  `json:"roomId"`
	Username string                  `json:"username,omitempty"`
	Updates  types.ParticipantUpdate `json:"updates"`
}

type AddReactionPayload struct {
	RoomId    string `json:"roomId" validate:"required"`
	MessageId string `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required,max=16"`
	Username  string `json:"username" validate:"required"`
}

type EditMessagePayload struct {
	RoomId    string `json:"roomId" validate:"required"`
	MessageId string `json:"messageId" validate:"required"`
	Content   string `json:"content" validate:"required,max=2000"`
}

type DeleteMessagePayload struct {
	RoomId    string `json:"roomId" validate:"required"`
	MessageId string `json:"messageId" validate:"required"`
}

type UpdateRoomNamePayload struct {
	RoomId string `json:"roomId" validate:"required"`
	Name   string `json:"name" validate:"required,min=1,max=50"`
}

type UpdateRoomThemePayload struct {
	RoomId string      `json:"roomId" validate:"required"`
	Theme  types.Theme `json:"theme" validate:"required"`
}

type ToggleVideoPayload struct {
	RoomId string `json:"roomId"`
	IsOn   bool   `json:"isOn"`
}

// RTCSignalPayload carries call-setup metadata. The offer, answer and
// candidate values are opaque to the relay and forwarded verbatim.
type RTCSignalPayload struct {
	RoomId     string          `json:"roomId" validate:"required"`
	Username   string          `json:"username" validate:"required"`
	TargetUser string          `json:"targetUser" validate:"required"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

type RoomListPayload struct {
	Messages     []types.Message     `json:"messages"`
	Participants []types.Participant `json:"participants"`
	RoomName     string              `json:"roomName"`
	Theme        types.Theme         `json:"theme"`
}

type UserJoinedPayload struct {
	Username    string            `json:"username"`
	Participant types.Participant `json:"participant"`
}

type UserLeftPayload struct {
	Username string `json:"username"`
}

type MessageReactionPayload struct {
	MessageId string `json:"messageId"`
	Emoji     string `json:"emoji"`
	Username  string `json:"username"`
}

type MessageDeletedPayload struct {
	MessageId string `json:"messageId"`
}

type RoomNameUpdatedPayload struct {
	RoomId string `json:"roomId"`
	Name   string `json:"name"`
}

type RoomThemeUpdatedPayload struct {
	RoomId string      `json:"roomId"`
	Theme  types.Theme `json:"theme"`
}

// newEnvelope builds a server-originated envelope, stamping the send
// time regardless of any client-supplied timestamp.
func newEnvelope(typ string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Type:      typ,
		Payload:   raw,
		Timestamp: Now(),
	}, nil
}

// Now returns the current time in epoch milliseconds, the protocol's
// timestamp unit.
func Now() int64 {
	return time.Now().UnixMilli()
}
