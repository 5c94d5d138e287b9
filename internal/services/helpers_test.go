package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/repositories/kv"
	"github.com/dmitrijs2005/taskboard/internal/storage"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func openStore(t *testing.T) *storage.Store {
	t.Helper()
	st, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "taskboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// recordingStore wraps a Store, records every key touched and can be told
// to fail transactional writes or the next read of a key.
type recordingStore struct {
	Store

	mu        sync.Mutex
	keys      []string
	failWrite bool
	failGet   string
}

func (r *recordingStore) KV() kv.Repository {
	return &recordingRepo{Repository: r.Store.KV(), owner: r}
}

func (r *recordingStore) Update(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error {
	r.mu.Lock()
	fail := r.failWrite
	r.mu.Unlock()
	if fail {
		return errBoom
	}
	return r.Store.Update(ctx, func(ctx context.Context, repo kv.Repository) error {
		return fn(ctx, &recordingRepo{Repository: repo, owner: r})
	})
}

func (r *recordingStore) touched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func (r *recordingStore) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = nil
}

func (r *recordingStore) setFailWrite(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrite = v
}

// failNextGet makes the next Get of key return errBoom.
func (r *recordingStore) failNextGet(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failGet = key
}

func (r *recordingStore) takeGetFailure(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet == "" || r.failGet != key {
		return false
	}
	r.failGet = ""
	return true
}

type recordingRepo struct {
	kv.Repository
	owner *recordingStore
}

func (r *recordingRepo) note(key string) {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	r.owner.keys = append(r.owner.keys, key)
}

func (r *recordingRepo) Get(ctx context.Context, key string) ([]byte, error) {
	r.note(key)
	if r.owner.takeGetFailure(key) {
		return nil, errBoom
	}
	return r.Repository.Get(ctx, key)
}

func (r *recordingRepo) Set(ctx context.Context, key string, value []byte) error {
	r.note(key)
	return r.Repository.Set(ctx, key, value)
}

func (r *recordingRepo) Delete(ctx context.Context, key string) error {
	r.note(key)
	return r.Repository.Delete(ctx, key)
}

// fixedClock returns successive instants one second apart.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// seqIDs returns deterministic "<prefix>-<n>" ids.
func seqIDs() func(string) string {
	var mu sync.Mutex
	n := 0
	return func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type fixture struct {
	store    *recordingStore
	session  *sessionService
	entities *entityService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := &recordingStore{Store: openStore(t)}
	return newFixtureOn(t, st)
}

func newFixtureOn(t *testing.T, st *recordingStore) *fixture {
	t.Helper()
	ctx := context.Background()

	sess := NewSessionService(st, logging.Discard()).(*sessionService)
	require.NoError(t, sess.Restore(ctx))

	ent := NewEntityService(ctx, st, sess, logging.Discard()).(*entityService)
	ent.now = fixedClock()
	ent.newID = seqIDs()
	t.Cleanup(ent.Close)

	return &fixture{store: st, session: sess, entities: ent}
}

func (f *fixture) signup(t *testing.T, name, email, password string) {
	t.Helper()
	ok, err := f.session.Signup(context.Background(), name, email, []byte(password))
	require.NoError(t, err)
	require.True(t, ok)
}
