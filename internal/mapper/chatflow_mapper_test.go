package mapper

import (
	"testing"
	"time"

	"chatproxy-be/pkg/flowise"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRemote(t *testing.T) {
	deployed := true
	category := "support;faq"
	updated := time.Date(2025, 3, 1, 10, 0, 0, 123_456_789, time.FixedZone("WIB", 7*3600))

	c := NewChatflowMapper().FromRemote(flowise.Chatflow{
		ID:          "abc",
		Name:        "Helpdesk",
		FlowData:    `{"nodes":[]}`,
		Deployed:    &deployed,
		Category:    &category,
		Type:        "CHATFLOW",
		UpdatedDate: &updated,
	})

	assert.Equal(t, "abc", c.RemoteId)
	assert.True(t, c.Deployed)
	assert.False(t, c.IsPublic)
	assert.Equal(t, "support;faq", c.Category)
	assert.Nil(t, c.RemoteCreatedAt)
	require.NotNil(t, c.RemoteUpdatedAt)
	assert.Equal(t, time.UTC, c.RemoteUpdatedAt.Location())
	assert.Equal(t, 123_000_000, c.RemoteUpdatedAt.Nanosecond())
}

func TestModelRoundTripKeepsMirrorEqual(t *testing.T) {
	m := NewChatflowMapper()
	updated := time.Date(2025, 3, 1, 10, 0, 0, 5_000_000, time.UTC)

	remote := m.FromRemote(flowise.Chatflow{ID: "abc", Name: "n", UpdatedDate: &updated})
	remote.SyncedAt = time.Now()

	back := m.ToEntity(m.ToModel(remote))
	assert.True(t, remote.SameMirror(back))
}

func TestNormalizeRemoteTimeZero(t *testing.T) {
	var zero time.Time
	assert.Nil(t, normalizeRemoteTime(&zero))
	assert.Nil(t, normalizeRemoteTime(nil))
}
