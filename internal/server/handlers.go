package server

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/huddlechat/huddle/internal/stats"
	"github.com/huddlechat/huddle/internal/store"
	"github.com/huddlechat/huddle/internal/types"
)

func decodePayload[T any](v *validator.Validate, raw json.RawMessage) (T, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	if err := v.Struct(&p); err != nil {
		return p, err
	}
	return p, nil
}

func (cs *ChatServer) handleEnvelope(c *Client, env *Envelope) {
	switch env.Type {
	case TypeJoinRoom:
		cs.handleJoinRoom(c, env)
	case TypeLeaveRoom:
		cs.handleLeaveRoom(c, env)
	case TypeChatMessage:
		cs.handleChatMessage(c, env)
	case TypeTypingStart, TypeTypingStop:
		cs.handleTyping(c, env)
	case TypePresenceUpdate:
		cs.handlePresenceUpdate(c, env)
	case TypeAddReaction:
		cs.handleAddReaction(c, env)
	case TypeEditMessage:
		cs.handleEditMessage(c, env)
	case TypeDeleteMessage:
		cs.handleDeleteMessage(c, env)
	case TypeUpdateRoomName:
		cs.handleUpdateRoomName(c, env)
	case TypeUpdateRoomTheme:
		cs.handleUpdateRoomTheme(c, env)
	case TypeToggleVideo:
		cs.handleToggleVideo(c, env)
	case TypeRTCOffer, TypeRTCAnswer, TypeRTCICECandidate:
		cs.handleRTCSignal(c, env)
	default:
		cs.log.Printf("unknown envelope type %q", env.Type)
	}
}

// resolveRoom picks the room a client-supplied payload refers to,
// falling back to the client's binding, and returns the bound username.
func (cs *ChatServer) resolveRoom(c *Client, payloadRoomId string) (roomId, username string, ok bool) {
	boundRoom, boundUser, bound := cs.registry.Binding(c)

	roomId = store.CanonicalCode(payloadRoomId)
	if roomId == "" {
		roomId = boundRoom
	}

	if !bound || roomId == "" {
		return "", "", false
	}
	return roomId, boundUser, true
}

func (cs *ChatServer) handleJoinRoom(c *Client, env *Envelope) {
	p, err := decodePayload[JoinRoomPayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("join_room:", err)
		return
	}

	code := store.CanonicalCode(p.RoomId)
	_, existed := cs.store.RoomByCode(code)

	room, err := cs.store.CreateRoomIfAbsent(code, "Room "+code)
	if err != nil {
		cs.log.Printf("create room %q: %v", code, err)
		return
	}
	if !existed {
		cs.stats.Incr(stats.RoomsCreated)
	}

	cs.registry.Bind(c, room.Code, p.Username)

	// Snapshot the room as it was before this join; the joiner learns
	// of itself from the join it just sent, not from the snapshot.
	participants := cs.store.ParticipantsByRoom(room.Code)

	participant := cs.store.UpsertParticipant(room.Code, p.Username, types.Participant{
		Status:   types.StatusOnline,
		JoinedAt: Now(),
	})

	cs.store.SetParticipantCount(room.Code, len(cs.store.ParticipantsByRoom(room.Code)))

	messages := cs.store.MessagesByRoom(room.Code)
	if messages == nil {
		messages = []types.Message{}
	}
	if participants == nil {
		participants = []types.Participant{}
	}

	c.queueEnvelope(TypeRoomList, RoomListPayload{
		Messages:     messages,
		Participants: participants,
		RoomName:     room.Name,
		Theme:        room.Theme,
	})

	cs.broadcastToRoom(room.Code, TypeUserJoined, UserJoinedPayload{
		Username:    p.Username,
		Participant: participant,
	}, c)
}

func (cs *ChatServer) handleLeaveRoom(c *Client, env *Envelope) {
	p, err := decodePayload[LeaveRoomPayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("leave_room:", err)
		return
	}

	boundRoom, boundUser, _ := cs.registry.Binding(c)

	roomId := store.CanonicalCode(p.RoomId)
	if roomId == "" {
		roomId = boundRoom
	}
	username := p.Username
	if username == "" {
		username = boundUser
	}

	if roomId != "" && username != "" {
		if _, ok := cs.store.RoomByCode(roomId); ok {
			cs.store.RemoveParticipant(roomId, username)
			cs.store.SetParticipantCount(roomId, len(cs.store.ParticipantsByRoom(roomId)))

			cs.broadcastToRoom(roomId, TypeUserLeft, UserLeftPayload{Username: username}, c)
		}
	}

	cs.registry.Unbind(c)
}

// handleDisconnect runs the leave_room path for a connection that went
// away without saying so.
func (cs *ChatServer) handleDisconnect(c *Client) {
	roomId, username, ok := cs.registry.Binding(c)
	cs.registry.Unbind(c)
	if !ok {
		return
	}

	if _, exists := cs.store.RoomByCode(roomId); exists {
		cs.store.RemoveParticipant(roomId, username)
		cs.store.SetParticipantCount(roomId, len(cs.store.ParticipantsByRoom(roomId)))

		cs.broadcastToRoom(roomId, TypeUserLeft, UserLeftPayload{Username: username}, c)
	}
}

func (cs *ChatServer) handleChatMessage(c *Client, env *Envelope) {
	p, err := decodePayload[ChatMessagePayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("chat_message:", err)
		return
	}

	roomId, username, ok := cs.resolveRoom(c, p.RoomId)
	if !ok {
		return
	}

	// A message needs something to say.
	if p.Content == "" && p.Attachment == nil {
		cs.log.Printf("empty chat_message from %q, dropping", username)
		return
	}

	room, ok := cs.store.RoomByCode(roomId)
	if !ok {
		return
	}

	if p.Attachment != nil {
		sniffAttachmentType(p.Attachment)
	}

	saved, err := cs.store.AppendMessage(types.Message{
		RoomId:     room.Code,
		UserId:     username,
		Username:   username,
		Content:    p.Content,
		Timestamp:  Now(),
		Type:       types.MessageTypeUser,
		Attachment: p.Attachment,
	})
	if err != nil {
		cs.log.Println("append message:", err)
		return
	}

	cs.stats.Incr(stats.MessagesRelayed)
	cs.broadcastToRoom(room.Code, TypeChatMessage, saved, nil)
}

func (cs *ChatServer) handleTyping(c *Client, env *Envelope) {
	p, err := decodePayload[TypingPayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println(env.Type+":", err)
		return
	}

	roomId, username, ok := cs.resolveRoom(c, p.RoomId)
	if !ok {
		return
	}

	cs.broadcastToRoom(roomId, env.Type, TypingPayload{
		RoomId:   roomId,
		Username: username,
	}, c)
}

func (cs *ChatServer) handlePresenceUpdate(c *Client, env *Envelope) {
	p, err := decodePayload[PresenceUpdatePayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("presence_update:", err)
		return
	}

	roomId, username, ok := cs.resolveRoom(c, p.RoomId)
	if !ok {
		return
	}

	if _, ok := cs.store.RoomByCode(roomId); !ok {
		return
	}

	// An absent participant is a race with a concurrent leave, fan out
	// nothing.
	if _, ok := cs.store.UpdateParticipant(roomId, username, p.Updates); !ok {
		return
	}

	// The sender gets the echo too, so its own state converges.
	cs.broadcastToRoom(roomId, TypePresenceUpdate, PresenceUpdatePayload{
		RoomId:   roomId,
		Username: username,
		Updates:  p.Updates,
	}, nil)
}

func (cs *ChatServer) handleAddReaction(c *Client, env *Envelope) {
	p, err := decodePayload[AddReactionPayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("add_reaction:", err)
		return
	}

	roomId := store.CanonicalCode(p.RoomId)

	// Record the reaction so later history fetches agree with what was
	// fanned out. A missing message is a benign race with a delete.
	if _, ok := cs.store.AddReaction(p.MessageId, p.Emoji, p.Username); !ok {
		return
	}

	cs.broadcastToRoom(roomId, TypeMessageReaction, MessageReactionPayload{
		MessageId: p.MessageId,
		Emoji:     p.Emoji,
		Username:  p.Username,
	}, nil)
}

func (cs *ChatServer) handleEditMessage(c *Client, env *Envelope) {
	p, err := decodePayload[EditMessagePayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("edit_message:", err)
		return
	}

	roomId := store.CanonicalCode(p.RoomId)

	updated, ok := cs.store.UpdateMessage(p.MessageId, func(m *types.Message) {
		m.Content = p.Content
		m.IsEdited = true
		m.EditedAt = Now()
	})
	if !ok {
		return
	}

	cs.broadcastToRoom(roomId, TypeMessageUpdated, updated, nil)
}

func (cs *ChatServer) handleDeleteMessage(c *Client, env *Envelope) {
	p, err := decodePayload[DeleteMessagePayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("delete_message:", err)
		return
	}

	roomId := store.CanonicalCode(p.RoomId)

	if !cs.store.DeleteMessage(p.MessageId) {
		return
	}

	cs.broadcastToRoom(roomId, TypeMessageDeleted, MessageDeletedPayload{
		MessageId: p.MessageId,
	}, nil)
}

func (cs *ChatServer) handleUpdateRoomName(c *Client, env *Envelope) {
	p, err := decodePayload[UpdateRoomNamePayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("update_room_name:", err)
		return
	}

	roomId := store.CanonicalCode(p.RoomId)
	if !cs.store.SetRoomName(roomId, p.Name) {
		return
	}

	cs.broadcastToRoom(roomId, TypeRoomNameUpdated, RoomNameUpdatedPayload{
		RoomId: roomId,
		Name:   p.Name,
	}, nil)
}

func (cs *ChatServer) handleUpdateRoomTheme(c *Client, env *Envelope) {
	p, err := decodePayload[UpdateRoomThemePayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("update_room_theme:", err)
		return
	}

	if !p.Theme.Valid() {
		cs.log.Printf("update_room_theme: unknown theme %q", p.Theme)
		return
	}

	roomId := store.CanonicalCode(p.RoomId)
	if !cs.store.SetRoomTheme(roomId, p.Theme) {
		return
	}

	cs.broadcastToRoom(roomId, TypeRoomThemeUpdated, RoomThemeUpdatedPayload{
		RoomId: roomId,
		Theme:  p.Theme,
	}, nil)
}

func (cs *ChatServer) handleToggleVideo(c *Client, env *Envelope) {
	p, err := decodePayload[ToggleVideoPayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println("toggle_video:", err)
		return
	}

	roomId, username, ok := cs.resolveRoom(c, p.RoomId)
	if !ok {
		return
	}

	isOn := p.IsOn
	if _, ok := cs.store.UpdateParticipant(roomId, username, types.ParticipantUpdate{IsVideoOn: &isOn}); !ok {
		return
	}

	cs.broadcastToRoom(roomId, TypePresenceUpdate, PresenceUpdatePayload{
		RoomId:   roomId,
		Username: username,
		Updates:  types.ParticipantUpdate{IsVideoOn: &isOn},
	}, nil)
}

// handleRTCSignal relays a call-setup envelope verbatim to the target
// user's connection. Delivery is fire-and-forget.
func (cs *ChatServer) handleRTCSignal(c *Client, env *Envelope) {
	p, err := decodePayload[RTCSignalPayload](cs.validate, env.Payload)
	if err != nil {
		cs.log.Println(env.Type+":", err)
		return
	}

	forwarded := &Envelope{
		Type:      env.Type,
		Payload:   env.Payload,
		Timestamp: Now(),
	}

	cs.relayToUser(p.TargetUser, forwarded)
}
