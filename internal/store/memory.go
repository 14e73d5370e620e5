package store

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/teris-io/shortid"

	"github.com/huddlechat/huddle/internal/types"
)

const archiveQueueSize = 512

// MemStore is the in-memory RoomStore. An optional MessageArchive is
// written behind a buffered queue so archive latency or faults never
// reach the protocol path.
type MemStore struct {
	log     *log.Logger
	archive MessageArchive
	// historyLimit caps per-room in-memory history; zero means unlimited.
	historyLimit int

	mu           sync.RWMutex
	rooms        map[string]types.Room        // canonical code -> room
	messages     map[string]types.Message     // message id -> message
	participants map[string]types.Participant // roomId + username -> participant

	archiveCh chan types.Message
	done      chan struct{}
}

func NewMemStore(logger *log.Logger, archive MessageArchive, historyLimit int) *MemStore {
	s := &MemStore{
		log:          logger,
		archive:      archive,
		historyLimit: historyLimit,
		rooms:        make(map[string]types.Room),
		messages:     make(map[string]types.Message),
		participants: make(map[string]types.Participant),
		archiveCh:    make(chan types.Message, archiveQueueSize),
		done:         make(chan struct{}),
	}

	go s.drainArchiveQueue()

	return s
}

// Close stops the archive writer after flushing any queued messages.
func (s *MemStore) Close() {
	close(s.archiveCh)
	<-s.done
}

func (s *MemStore) drainArchiveQueue() {
	defer close(s.done)

	for msg := range s.archiveCh {
		if s.archive == nil {
			continue
		}
		if err := s.archive.SaveMessage(msg); err != nil {
			s.log.Printf("archive save for message %q: %v", msg.Id, err)
		}
	}
}

// CanonicalCode normalizes a room code to its canonical form. Codes are
// case-insensitive and compared upper-cased.
func CanonicalCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func participantKey(roomId, username string) string {
	return roomId + "\x00" + username
}

func (s *MemStore) CreateRoomIfAbsent(code, name string) (types.Room, error) {
	code = CanonicalCode(code)
	if code == "" {
		generated, err := shortid.Generate()
		if err != nil {
			return types.Room{}, err
		}
		code = CanonicalCode(generated)
	}

	s.mu.RLock()
	room, ok := s.rooms[code]
	s.mu.RUnlock()
	if ok {
		return room, nil
	}

	// Warm-load archived history for the room before it goes live.
	// Best-effort: an archive fault degrades to an empty history.
	var archived []types.Message
	if s.archive != nil {
		var err error
		archived, err = s.archive.MessagesByRoom(code)
		if err != nil {
			s.log.Printf("archive load for room %q: %v", code, err)
			archived = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock, a concurrent create may have won.
	if room, ok := s.rooms[code]; ok {
		return room, nil
	}

	room = types.Room{
		Id:               uuid.NewString(),
		Code:             code,
		Name:             name,
		CreatedAt:        nowMillis(),
		ParticipantCount: 0,
		Theme:            types.ThemeDark,
	}
	s.rooms[code] = room

	for _, msg := range archived {
		if _, ok := s.messages[msg.Id]; !ok {
			s.messages[msg.Id] = msg
		}
	}

	return room, nil
}

func (s *MemStore) RoomByCode(code string) (types.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[CanonicalCode(code)]
	return room, ok
}

func (s *MemStore) SetParticipantCount(code string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = CanonicalCode(code)
	if room, ok := s.rooms[code]; ok {
		room.ParticipantCount = n
		s.rooms[code] = room
	}
}

func (s *MemStore) SetRoomName(code, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = CanonicalCode(code)
	room, ok := s.rooms[code]
	if !ok {
		return false
	}

	room.Name = name
	s.rooms[code] = room
	return true
}

func (s *MemStore) SetRoomTheme(code string, theme types.Theme) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	code = CanonicalCode(code)
	room, ok := s.rooms[code]
	if !ok {
		return false
	}

	room.Theme = theme
	s.rooms[code] = room
	return true
}

func (s *MemStore) AppendMessage(msg types.Message) (types.Message, error) {
	msg.Id = uuid.NewString()

	s.mu.Lock()
	s.messages[msg.Id] = msg
	if s.historyLimit > 0 {
		s.trimHistoryLocked(msg.RoomId)
	}
	s.mu.Unlock()

	// Write-behind to the archive. A full queue drops the write rather
	// than blocking the caller.
	select {
	case s.archiveCh <- msg:
	default:
		s.log.Printf("archive queue full, dropping write for message %q", msg.Id)
	}

	return msg, nil
}

// trimHistoryLocked evicts the oldest messages of a room beyond the
// configured limit. Caller holds the write lock.
func (s *MemStore) trimHistoryLocked(roomId string) {
	msgs := s.messagesByRoomLocked(roomId)
	for i := 0; i < len(msgs)-s.historyLimit; i++ {
		delete(s.messages, msgs[i].Id)
	}
}

func (s *MemStore) MessagesByRoom(roomId string) []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.messagesByRoomLocked(roomId)
}

func (s *MemStore) messagesByRoomLocked(roomId string) []types.Message {
	msgs := lo.Filter(lo.Values(s.messages), func(m types.Message, _ int) bool {
		return m.RoomId == roomId
	})

	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].Id < msgs[j].Id
	})

	return msgs
}

func (s *MemStore) UpdateMessage(id string, fn func(*types.Message)) (types.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[id]
	if !ok {
		return types.Message{}, false
	}

	fn(&msg)
	msg.Id = id
	s.messages[id] = msg
	return msg, true
}

func (s *MemStore) DeleteMessage(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return false
	}

	delete(s.messages, id)
	return true
}

func (s *MemStore) AddReaction(messageId, emoji, username string) (types.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[messageId]
	if !ok {
		return types.Message{}, false
	}

	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	if !lo.Contains(msg.Reactions[emoji], username) {
		msg.Reactions[emoji] = append(msg.Reactions[emoji], username)
	}

	s.messages[messageId] = msg
	return msg, true
}

func (s *MemStore) UpsertParticipant(roomId, username string, p types.Participant) types.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := participantKey(roomId, username)
	p.RoomId = roomId
	p.Username = username

	if existing, ok := s.participants[key]; ok {
		// Re-join: merge onto the existing record, keeping its identity.
		p.Id = existing.Id
		s.participants[key] = p
		return p
	}

	p.Id = uuid.NewString()
	s.participants[key] = p
	return p
}

func (s *MemStore) RemoveParticipant(roomId, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.participants, participantKey(roomId, username))
}

func (s *MemStore) ParticipantsByRoom(roomId string) []types.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(lo.Values(s.participants), func(p types.Participant, _ int) bool {
		return p.RoomId == roomId
	})
}

func (s *MemStore) UpdateParticipant(roomId, username string, upd types.ParticipantUpdate) (types.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := participantKey(roomId, username)
	p, ok := s.participants[key]
	if !ok {
		return types.Participant{}, false
	}

	upd.Apply(&p)
	s.participants[key] = p
	return p, true
}
