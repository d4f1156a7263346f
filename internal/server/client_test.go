package server

import (
	"testing"

	"github.com/npezzotti/blend/internal/testutil"
	"github.com/npezzotti/blend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *types.Event, 1),
			log:  testutil.TestLogger(t),
		}

		assert.True(t, c.Send(&types.Event{Name: "receive-message"}))

		select {
		case ev := <-c.send:
			assert.Equal(t, "receive-message", ev.Name)
		default:
			t.Error("expected an event to be queued")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *types.Event, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &types.Event{}
		assert.False(t, c.queueMessage(&types.Event{Name: "receive-message"}), "a full queue drops the event")
	})
}

func Test_serializeMessage(t *testing.T) {
	bytes, err := serializeMessage(&types.Event{
		Name: "user-not-connected",
		Data: map[string]string{"toId": "bob"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"user-not-connected","data":{"toId":"bob"}}`, string(bytes))
}

func Test_parseMessage(t *testing.T) {
	tcases := []struct {
		name    string
		raw     string
		event   string
		wantErr bool
	}{
		{name: "valid", raw: `{"event":"chat-message","data":{"roomId":"r1","message":"hi"}}`, event: "chat-message"},
		{name: "no data", raw: `{"event":"register-user"}`, event: "register-user"},
		{name: "missing event", raw: `{"data":{}}`, wantErr: true},
		{name: "not json", raw: `hello`, wantErr: true},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := parseMessage([]byte(tc.raw))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.event, msg.Event)
		})
	}
}

func Test_stopClient(t *testing.T) {
	c := &Client{stop: make(chan struct{})}
	assert.False(t, c.Closed())

	c.stopClient()
	c.Close()
	assert.True(t, c.Closed())

	select {
	case <-c.stop:
	default:
		t.Error("expected stop channel to be closed")
	}
}

func TestClientIdentity(t *testing.T) {
	c := NewClient(types.User{Id: "alice"}, nil, nil, testutil.TestLogger(t))
	assert.NotEmpty(t, c.Id())
	assert.Equal(t, "alice", c.UserId())

	other := NewClient(types.User{Id: "alice"}, nil, nil, testutil.TestLogger(t))
	assert.NotEqual(t, c.Id(), other.Id(), "each connection gets its own id")
}
