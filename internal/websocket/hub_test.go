package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"chatproxy-be/internal/dto"
	"chatproxy-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func attach(hub *Hub, userId string, buffer int) *Client {
	c := &Client{Hub: hub, UserId: userId, Send: make(chan []byte, buffer)}
	hub.register <- c
	return c
}

func receive(t *testing.T, c *Client) envelope {
	t.Helper()
	select {
	case raw := <-c.Send:
		var got envelope
		require.NoError(t, json.Unmarshal(raw, &got))
		return got
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return envelope{}
	}
}

func TestNotifySyncReachesEveryClient(t *testing.T) {
	hub := startHub(t)
	a1 := attach(hub, "a", 4)
	a2 := attach(hub, "a", 4)
	b := attach(hub, "b", 4)

	require.Eventually(t, func() bool { return hub.ConnectedClients() == 3 }, time.Second, 5*time.Millisecond)

	hub.NotifySync(&dto.SyncResultResponse{Fetched: 2, Created: 1})

	for _, c := range []*Client{a1, a2, b} {
		got := receive(t, c)
		assert.Equal(t, MessageTypeChatflowSync, got.Type)
		assert.EqualValues(t, 2, got.Data.(map[string]interface{})["fetched"])
	}
}

func TestFullBufferDoesNotBlock(t *testing.T) {
	hub := startHub(t)
	slow := attach(hub, "slow", 1)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		hub.NotifySync(&dto.SyncResultResponse{})
		hub.NotifySync(&dto.SyncResultResponse{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifySync blocked on a full client buffer")
	}
	assert.Len(t, slow.Send, 1)
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	c := attach(hub, "a", 1)
	hub.unregister <- c

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Zero(t, hub.ConnectedClients())
}

func TestRelayClusterMessageSkipsOwnOrigin(t *testing.T) {
	hub := startHub(t)
	c := attach(hub, "a", 4)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, time.Second, 5*time.Millisecond)

	inner, _ := json.Marshal(envelope{Type: MessageTypeChatflowSync, Data: map[string]int{"fetched": 7}})

	own, _ := json.Marshal(clusterMessage{Origin: hub.instanceId, Message: inner})
	hub.relayClusterMessage(own)
	assert.Empty(t, c.Send)

	other, _ := json.Marshal(clusterMessage{Origin: "other-instance", Message: inner})
	hub.relayClusterMessage(other)
	got := receive(t, c)
	assert.EqualValues(t, 7, got.Data.(map[string]interface{})["fetched"])

	hub.relayClusterMessage([]byte("not json"))
	assert.Empty(t, c.Send)
}
