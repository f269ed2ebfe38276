package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(start time.Time) (*Service, *time.Time) {
	now := start

	svc, err := New(nil)
	if err != nil {
		panic(err)
	}
	svc.now = func() time.Time { return now }

	return svc, &now
}

func TestSeen_FirstSighting(t *testing.T) {
	svc, _ := newTestService(time.Now())

	require.False(t, svc.Seen("file-1"))
	require.True(t, svc.Seen("file-1"))
}

func TestSeen_WithinWindow(t *testing.T) {
	svc, now := newTestService(time.Now())

	require.False(t, svc.Seen("file-1"))

	*now = now.Add(299 * time.Second)
	require.True(t, svc.Seen("file-1"))
}

func TestSeen_AfterWindow(t *testing.T) {
	svc, now := newTestService(time.Now())

	require.False(t, svc.Seen("file-1"))

	*now = now.Add(301 * time.Second)
	require.False(t, svc.Seen("file-1"))
}

func TestSeen_IndependentIDs(t *testing.T) {
	svc, _ := newTestService(time.Now())

	require.False(t, svc.Seen("file-1"))
	require.False(t, svc.Seen("file-2"))
	require.True(t, svc.Seen("file-1"))
	require.True(t, svc.Seen("file-2"))
}

func TestSeen_EvictsStaleEntries(t *testing.T) {
	svc, now := newTestService(time.Now())

	require.False(t, svc.Seen("file-1"))
	require.False(t, svc.Seen("file-2"))

	*now = now.Add(301 * time.Second)

	// Any call evicts everything older than the window.
	require.False(t, svc.Seen("file-3"))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.entries, 1)
}
