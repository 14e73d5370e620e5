package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/huddlechat/huddle/internal/stats"
	"github.com/huddlechat/huddle/internal/store"
	"github.com/huddlechat/huddle/internal/testutil"
)

// newTestChatServer creates a ChatServer over a fresh in-memory store.
// The run loop is not started; tests drive handlers directly.
func newTestChatServer(t *testing.T) *ChatServer {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	st := store.NewMemStore(testutil.TestLogger(t), nil, 0)
	t.Cleanup(st.Close)

	cs, err := NewChatServer(testutil.TestLogger(t), st, su)
	if err != nil {
		t.Fatalf("failed to create test ChatServer: %v", err)
	}
	return cs
}

func newTestClient(t *testing.T, cs *ChatServer) *Client {
	return NewClient(nil, cs, testutil.TestLogger(t))
}

func mustEnvelope(t *testing.T, typ string, payload any) *Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &Envelope{Type: typ, Payload: raw, Timestamp: Now()}
}

func recvEnvelope(t *testing.T, c *Client) *Envelope {
	t.Helper()
	select {
	case env := <-c.send:
		return env
	case <-time.After(time.Second):
		t.Fatal("expected an envelope, got none")
		return nil
	}
}

func recvPayload[T any](t *testing.T, c *Client, wantType string) T {
	t.Helper()
	env := recvEnvelope(t, c)
	assert.Equal(t, wantType, env.Type, "expected envelope type")
	var p T
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal %s payload: %v", wantType, err)
	}
	return p
}

func assertNoEnvelope(t *testing.T, c *Client) {
	t.Helper()
	select {
	case env := <-c.send:
		t.Fatalf("expected no envelope, got %q", env.Type)
	default:
	}
}

// joinRoom drives a join_room through the relay and consumes the
// sender's room_list reply.
func joinRoom(t *testing.T, cs *ChatServer, c *Client, roomId, username string) RoomListPayload {
	t.Helper()
	cs.handleEnvelope(c, mustEnvelope(t, TypeJoinRoom, JoinRoomPayload{RoomId: roomId, Username: username}))
	return recvPayload[RoomListPayload](t, c, TypeRoomList)
}

func TestNewChatServer(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)
	su.On("RegisterMetric", mock.Anything).Times(4)

	st := store.NewMemStore(testutil.TestLogger(t), nil, 0)
	t.Cleanup(st.Close)

	cs, err := NewChatServer(testutil.TestLogger(t), st, su)
	assert.NoError(t, err, "expected no error creating ChatServer")
	assert.NotNil(t, cs, "expected ChatServer to be non-nil")
	assert.NotNil(t, cs.registry, "expected registry to be initialized")
	assert.NotNil(t, cs.validate, "expected validator to be initialized")
	assert.NotNil(t, cs.eventChan, "expected eventChan to be initialized")
	assert.NotNil(t, cs.clients, "expected clients map to be initialized")
}

func TestChatServerShutdown(t *testing.T) {
	t.Run("successful shutdown", func(t *testing.T) {
		cs := newTestChatServer(t)
		go cs.Run()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err := cs.Shutdown(ctx)
		assert.NoError(t, err, "expected successful shutdown without error")
	})

	t.Run("fails with context deadline exceeded when loop is not running", func(t *testing.T) {
		cs := newTestChatServer(t)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := cs.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "expected context deadline exceeded error")
	})
}

func TestRegisterAndDisconnectThroughRunLoop(t *testing.T) {
	cs := newTestChatServer(t)
	go cs.Run()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, cs.Shutdown(ctx))
	}()

	a := newTestClient(t, cs)
	b := newTestClient(t, cs)
	cs.RegisterClient(a)
	cs.RegisterClient(b)

	cs.dispatch(a, mustEnvelope(t, TypeJoinRoom, JoinRoomPayload{RoomId: "ABC123", Username: "alice"}))
	env := recvEnvelope(t, a)
	assert.Equal(t, TypeRoomList, env.Type, "expected room_list for the joining client")

	cs.dispatch(b, mustEnvelope(t, TypeJoinRoom, JoinRoomPayload{RoomId: "ABC123", Username: "bob"}))
	env = recvEnvelope(t, b)
	assert.Equal(t, TypeRoomList, env.Type)
	env = recvEnvelope(t, a)
	assert.Equal(t, TypeUserJoined, env.Type, "expected user_joined broadcast to the other client")

	// Abrupt disconnect runs the leave path.
	cs.deRegisterChan <- b
	left := recvPayload[UserLeftPayload](t, a, TypeUserLeft)
	assert.Equal(t, "bob", left.Username, "expected user_left for the dropped connection")

	assert.Eventually(t, func() bool {
		room, ok := cs.store.RoomByCode("ABC123")
		return ok && room.ParticipantCount == 1
	}, time.Second, 10*time.Millisecond, "expected participant count to drop to 1")
}

func TestDispatchDropsWhenQueueFull(t *testing.T) {
	cs := newTestChatServer(t)
	c := newTestClient(t, cs)

	// Run loop intentionally not started; fill the queue.
	for i := 0; i < eventQueueSize; i++ {
		cs.dispatch(c, mustEnvelope(t, TypeTypingStart, TypingPayload{RoomId: "ABC123"}))
	}

	// One more must not block.
	done := make(chan struct{})
	go func() {
		cs.dispatch(c, mustEnvelope(t, TypeTypingStart, TypingPayload{RoomId: "ABC123"}))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full event queue")
	}
}
