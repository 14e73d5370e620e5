package store

import (
	"github.com/stretchr/testify/mock"

	"github.com/huddlechat/huddle/internal/types"
)

type MockRoomStore struct {
	mock.Mock
}

func (m *MockRoomStore) CreateRoomIfAbsent(code, name string) (types.Room, error) {
	args := m.Called(code, name)
	return args.Get(0).(types.Room), args.Error(1)
}
func (m *MockRoomStore) RoomByCode(code string) (types.Room, bool) {
	args := m.Called(code)
	return args.Get(0).(types.Room), args.Bool(1)
}
func (m *MockRoomStore) SetParticipantCount(code string, n int) {
	m.Called(code, n)
}
func (m *MockRoomStore) SetRoomName(code, name string) bool {
	args := m.Called(code, name)
	return args.Bool(0)
}
func (m *MockRoomStore) SetRoomTheme(code string, theme types.Theme) bool {
	args := m.Called(code, theme)
	return args.Bool(0)
}
func (m *MockRoomStore) AppendMessage(msg types.Message) (types.Message, error) {
	args := m.Called(msg)
	return args.Get(0).(types.Message), args.Error(1)
}
func (m *MockRoomStore) MessagesByRoom(roomId string) []types.Message {
	args := m.Called(roomId)
	if msgs, ok := args.Get(0).([]types.Message); ok {
		return msgs
	}
	return nil
}
func (m *MockRoomStore) UpdateMessage(id string, fn func(*types.Message)) (types.Message, bool) {
	args := m.Called(id, fn)
	return args.Get(0).(types.Message), args.Bool(1)
}
func (m *MockRoomStore) DeleteMessage(id string) bool {
	args := m.Called(id)
	return args.Bool(0)
}
func (m *MockRoomStore) AddReaction(messageId, emoji, username string) (types.Message, bool) {
	args := m.Called(messageId, emoji, username)
	return args.Get(0).(types.Message), args.Bool(1)
}
func (m *MockRoomStore) UpsertParticipant(roomId, username string, p types.Participant) types.Participant {
	args := m.Called(roomId, username, p)
	return args.Get(0).(types.Participant)
}
func (m *MockRoomStore) RemoveParticipant(roomId, username string) {
	m.Called(roomId, username)
}
func (m *MockRoomStore) ParticipantsByRoom(roomId string) []types.Participant {
	args := m.Called(roomId)
	if parts, ok := args.Get(0).([]types.Participant); ok {
		return parts
	}
	return nil
}
func (m *MockRoomStore) UpdateParticipant(roomId, username string, upd types.ParticipantUpdate) (types.Participant, bool) {
	args := m.Called(roomId, username, upd)
	return args.Get(0).(types.Participant), args.Bool(1)
}

type MockMessageArchive struct {
	mock.Mock
}

func (m *MockMessageArchive) SaveMessage(msg types.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}
func (m *MockMessageArchive) MessagesByRoom(roomId string) ([]types.Message, error) {
	args := m.Called(roomId)
	if msgs, ok := args.Get(0).([]types.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessageArchive) Close() error {
	args := m.Called()
	return args.Error(0)
}
