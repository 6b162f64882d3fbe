package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/tg-downloader/internal/model"
)

func testCatalog() *model.Catalog {
	return &model.Catalog{Options: []model.FormatOption{
		{Kind: model.FormatVideo, Resolution: "720p", Selector: "22"},
		{Kind: model.FormatAudio, Selector: "bestaudio/best"},
		{Kind: model.FormatBest, Selector: "best"},
	}}
}

func TestPut_ReplacesAwaitingSession(t *testing.T) {
	store := NewStore(time.Minute)

	first, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)
	second, err := store.Put(1, 10, "https://a.example/2", testCatalog())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)

	_, err = store.Lookup(first.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)

	cur, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, cur.ID)
	assert.Equal(t, "https://a.example/2", cur.URL)
	assert.Equal(t, 1, store.Len())
}

func TestPut_RejectsWhileJobActive(t *testing.T) {
	store := NewStore(time.Minute)

	sess, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)
	_, _, err = store.AttachJob(1, sess.ID, "job-1", 0)
	require.NoError(t, err)

	_, err = store.Put(1, 10, "https://a.example/2", testCatalog())
	assert.ErrorIs(t, err, ErrJobActive)
	assert.True(t, store.HasActiveJob(1))

	cur, err := store.Get(1)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, cur.ID)
	assert.Equal(t, model.SessionJobActive, cur.State)
	assert.Equal(t, "job-1", cur.JobID)
}

func TestAttachJob(t *testing.T) {
	store := NewStore(time.Minute)
	sess, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)

	_, _, err = store.AttachJob(2, sess.ID, "job-x", 0)
	assert.ErrorIs(t, err, ErrSessionExpired, "other requester")

	_, _, err = store.AttachJob(1, "missing", "job-x", 0)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, _, err = store.AttachJob(1, sess.ID, "job-x", 9)
	assert.ErrorIs(t, err, ErrUnknownOption)

	got, opt, err := store.AttachJob(1, sess.ID, "job-1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.FormatAudio, opt.Kind)
	assert.Equal(t, model.SessionJobActive, got.State)

	_, _, err = store.AttachJob(1, sess.ID, "job-2", 0)
	assert.ErrorIs(t, err, ErrJobActive)
}

func TestAttachJob_ConcurrentSelections(t *testing.T) {
	store := NewStore(time.Minute)
	sess, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := store.AttachJob(1, sess.ID, "job", i%3); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestRemove(t *testing.T) {
	store := NewStore(time.Minute)
	sess, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)

	store.Remove(sess.ID)
	store.Remove(sess.ID)

	_, err = store.Get(1)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 0, store.Len())
}

func TestStartDirect(t *testing.T) {
	store := NewStore(time.Minute)

	sess, err := store.StartDirect(1, 10, "https://a.example/1", "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.SessionJobActive, sess.State)

	_, err = store.StartDirect(1, 10, "https://a.example/2", "job-2")
	assert.ErrorIs(t, err, ErrJobActive)
}

func TestSweep(t *testing.T) {
	store := NewStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }

	stale, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)
	active, err := store.Put(2, 20, "https://a.example/2", testCatalog())
	require.NoError(t, err)
	_, _, err = store.AttachJob(2, active.ID, "job", 0)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := store.Put(3, 30, "https://a.example/3", testCatalog())
	require.NoError(t, err)

	expired := store.Sweep()
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.Equal(t, model.SessionTerminal, expired[0].State)

	_, err = store.Lookup(stale.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = store.Lookup(active.ID)
	assert.NoError(t, err)
	_, err = store.Lookup(fresh.ID)
	assert.NoError(t, err)
}

func TestStartJanitor(t *testing.T) {
	store := NewStore(time.Millisecond)
	_, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := make(chan model.Session, 1)
	time.Sleep(5 * time.Millisecond)
	store.StartJanitor(ctx, 5*time.Millisecond, func(s model.Session) { expired <- s })

	select {
	case s := <-expired:
		assert.Equal(t, int64(1), s.RequesterID)
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not expire the session")
	}
}

func TestSetMenu(t *testing.T) {
	store := NewStore(time.Minute)
	sess, err := store.Put(1, 10, "https://a.example/1", testCatalog())
	require.NoError(t, err)

	require.NoError(t, store.SetMenu(sess.ID, model.MessageRef{ChatID: 10, MessageID: 5}))
	got, err := store.Lookup(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Menu.MessageID)

	assert.ErrorIs(t, store.SetMenu("missing", model.MessageRef{}), ErrSessionExpired)
}
