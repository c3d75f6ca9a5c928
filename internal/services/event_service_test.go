package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/voicecraft-be/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventService(t *testing.T) *EventService {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewEventService(db)
}

func TestEventService(t *testing.T) {
	svc := newEventService(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	svc.now = func() time.Time { return clock }

	alice, bob := "alice", "bob"
	for i, msg := range []string{"first", "second", "third"} {
		clock = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, svc.CreateEvent("tts.convert", "info", msg, &alice))
	}
	require.NoError(t, svc.CreateEvent("user.login", "info", "bob in", &bob))
	require.NoError(t, svc.CreateEvent("system.start", "info", "boot", nil))

	events, err := svc.GetRecentEvents("alice", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "third", events[0].Message)
	assert.Equal(t, "second", events[1].Message)
	require.NotNil(t, events[0].Username)
	assert.Equal(t, "alice", *events[0].Username)

	pruned, err := svc.PruneOlderThan(base.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	events, err = svc.GetRecentEvents("alice", 20)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "third", events[0].Message)

	events, err = svc.GetRecentEvents("nobody", 20)
	require.NoError(t, err)
	assert.Empty(t, events)
}
