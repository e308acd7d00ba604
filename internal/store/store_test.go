package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

type stores struct {
	statuses monitor.StatusStore
	ledger   monitor.SessionLedger
	tokens   monitor.TokenRegistry
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// forEachBackend はSQLiteとin-memoryの両方で同じテストを実行する。
func forEachBackend(t *testing.T, fn func(t *testing.T, s stores)) {
	t.Run("sqlite", func(t *testing.T) {
		db := setupTestDB(t)
		fn(t, stores{
			statuses: NewStatusStore(db),
			ledger:   NewSessionLedger(db),
			tokens:   NewTokenRegistry(db),
		})
	})
	t.Run("memory", func(t *testing.T) {
		m := NewMemory()
		fn(t, stores{statuses: m, ledger: m, tokens: m})
	})
}

func TestStatusStore_GetMissing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		rec, err := s.statuses.Get(context.Background(), "alice")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestStatusStore_PutUpserts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		start := t0

		require.NoError(t, s.statuses.Put(ctx, monitor.StatusRecord{
			AccountID: "alice", IsLive: true, LastLiveStart: &start, LastCheck: t0,
		}))
		require.NoError(t, s.statuses.Put(ctx, monitor.StatusRecord{
			AccountID: "alice", IsLive: false, LastLiveStart: &start, LastCheck: t0.Add(time.Minute),
		}))

		rec, err := s.statuses.Get(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.False(t, rec.IsLive)
		assert.True(t, rec.LastCheck.Equal(t0.Add(time.Minute)))
		require.NotNil(t, rec.LastLiveStart)
		assert.True(t, rec.LastLiveStart.Equal(start))

		other, err := s.statuses.Get(ctx, "bob")
		require.NoError(t, err)
		assert.Nil(t, other)
	})
}

func TestStatusStore_NilLastLiveStart(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		require.NoError(t, s.statuses.Put(ctx, monitor.StatusRecord{AccountID: "alice", LastCheck: t0}))

		rec, err := s.statuses.Get(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Nil(t, rec.LastLiveStart)
	})
}

func TestSessionLedger_OpenFindClose(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		opened, err := s.ledger.OpenSession(ctx, "alice", t0, "2026-03-01")
		require.NoError(t, err)
		assert.NotEmpty(t, opened.ID)
		assert.True(t, opened.IsOpen())

		found, err := s.ledger.FindOpenSession(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, opened.ID, found.ID)
		assert.True(t, found.StartTime.Equal(t0))
		assert.Equal(t, "2026-03-01", found.Date)

		closed, err := s.ledger.CloseSession(ctx, *found, t0.Add(90*time.Minute+20*time.Second))
		require.NoError(t, err)
		require.NotNil(t, closed.EndTime)
		require.NotNil(t, closed.DurationMinutes)
		assert.Equal(t, 90, *closed.DurationMinutes)

		none, err := s.ledger.FindOpenSession(ctx, "alice")
		require.NoError(t, err)
		assert.Nil(t, none)

		list, err := s.ledger.ListSessions(ctx, monitor.SessionQuery{AccountID: "alice"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].DurationMinutes)
		assert.Equal(t, 90, *list[0].DurationMinutes)
		assert.True(t, list[0].EndTime.Equal(t0.Add(90*time.Minute+20*time.Second)))
	})
}

func TestSessionLedger_CloseTwiceFails(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		opened, err := s.ledger.OpenSession(ctx, "alice", t0, "2026-03-01")
		require.NoError(t, err)

		_, err = s.ledger.CloseSession(ctx, opened, t0.Add(time.Hour))
		require.NoError(t, err)

		// 古いスナップショット(EndTimeなし)で再度終了しても上書きしない
		_, err = s.ledger.CloseSession(ctx, opened, t0.Add(2*time.Hour))
		require.ErrorIs(t, err, ErrSessionClosed)

		list, err := s.ledger.ListSessions(ctx, monitor.SessionQuery{AccountID: "alice"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 60, *list[0].DurationMinutes)
	})
}

func TestSessionLedger_FindOpenReturnsMostRecent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		_, err := s.ledger.OpenSession(ctx, "alice", t0, "2026-03-01")
		require.NoError(t, err)
		newer, err := s.ledger.OpenSession(ctx, "alice", t0.Add(time.Hour), "2026-03-01")
		require.NoError(t, err)
		_, err = s.ledger.OpenSession(ctx, "bob", t0.Add(2*time.Hour), "2026-03-01")
		require.NoError(t, err)

		found, err := s.ledger.FindOpenSession(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, newer.ID, found.ID)
	})
}

func TestSessionLedger_ListNewestFirstWithLimit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			start := t0.Add(time.Duration(i) * time.Hour)
			_, err := s.ledger.OpenSession(ctx, "alice", start, start.Format(monitor.DateLayout))
			require.NoError(t, err)
		}
		_, err := s.ledger.OpenSession(ctx, "bob", t0.Add(10*time.Hour), "2026-03-02")
		require.NoError(t, err)

		all, err := s.ledger.ListSessions(ctx, monitor.SessionQuery{})
		require.NoError(t, err)
		require.Len(t, all, 6)
		assert.Equal(t, "bob", all[0].AccountID)

		limited, err := s.ledger.ListSessions(ctx, monitor.SessionQuery{AccountID: "alice", Limit: 2})
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.True(t, limited[0].StartTime.Equal(t0.Add(4*time.Hour)))
		assert.True(t, limited[1].StartTime.Equal(t0.Add(3*time.Hour)))
	})
}

func TestSessionLedger_ListEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		list, err := s.ledger.ListSessions(context.Background(), monitor.SessionQuery{AccountID: "nobody"})
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})
}

func TestTokenRegistry_RegisterIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		require.NoError(t, s.tokens.Register(ctx, "token-b"))
		require.NoError(t, s.tokens.Register(ctx, "token-a"))
		require.NoError(t, s.tokens.Register(ctx, " token-b "))

		tokens, err := s.tokens.ListAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"token-a", "token-b"}, tokens)
	})
}

func TestTokenRegistry_RejectsEmpty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s stores) {
		err := s.tokens.Register(context.Background(), "   ")
		require.ErrorIs(t, err, ErrEmptyToken)

		tokens, err := s.tokens.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})
}

func TestTokenRegistry_ListOrderedByRegistration(t *testing.T) {
	db := setupTestDB(t)
	r := NewTokenRegistry(db)
	now := t0
	r.now = func() time.Time { return now }

	ctx := context.Background()
	for _, tok := range []string{"zzz", "aaa", "mmm"} {
		require.NoError(t, r.Register(ctx, tok))
		now = now.Add(time.Second)
	}

	tokens, err := r.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zzz", "aaa", "mmm"}, tokens)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewStatusStore(db).Put(ctx, monitor.StatusRecord{AccountID: "alice", IsLive: true, LastCheck: t0}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	rec, err := NewStatusStore(db).Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsLive)
}

func TestOpenBackend(t *testing.T) {
	mem, err := OpenBackend(DriverMemory, "")
	require.NoError(t, err)
	assert.NoError(t, mem.Ping())
	assert.NoError(t, mem.Close())

	sq, err := OpenBackend(DriverSQLite, filepath.Join(t.TempDir(), "b.db"))
	require.NoError(t, err)
	assert.NoError(t, sq.Ping())
	assert.NoError(t, sq.Close())

	_, err = OpenBackend("postgres", "")
	assert.Error(t, err)
}
