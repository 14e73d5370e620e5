package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEnvelope(t *testing.T) {
	before := time.Now().UnixMilli()
	env, err := newEnvelope(TypeUserLeft, UserLeftPayload{Username: "alice"})
	after := time.Now().UnixMilli()

	assert.NoError(t, err, "expected no error building envelope")
	assert.Equal(t, TypeUserLeft, env.Type)
	assert.GreaterOrEqual(t, env.Timestamp, before, "expected timestamp stamped at send time")
	assert.LessOrEqual(t, env.Timestamp, after)

	var p UserLeftPayload
	assert.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "alice", p.Username)
}

func TestEnvelopeWireFormat(t *testing.T) {
	raw := []byte(`{"type":"typing_start","payload":{"roomId":"ABC123"},"timestamp":1700000000000}`)

	var env Envelope
	assert.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, TypeTypingStart, env.Type)
	assert.EqualValues(t, 1700000000000, env.Timestamp)

	var p TypingPayload
	assert.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "ABC123", p.RoomId)
}
