package monitor

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func observe(live bool, at time.Time) LiveObservation {
	return LiveObservation{AccountID: "alice", IsLive: live, ObservedAt: at}
}

func TestEvaluate_DecisionTable(t *testing.T) {
	earlier := t0.Add(-time.Hour)

	tests := []struct {
		name       string
		current    *StatusRecord
		live       bool
		wantLedger LedgerOpKind
		wantNotify bool
	}{
		{name: "未記録→配信中", current: nil, live: true, wantLedger: LedgerOpen, wantNotify: true},
		{name: "未記録→オフライン", current: nil, live: false, wantLedger: LedgerNone},
		{name: "オフライン→配信中", current: &StatusRecord{AccountID: "alice", LastCheck: earlier}, live: true, wantLedger: LedgerOpen, wantNotify: true},
		{name: "オフライン→オフライン", current: &StatusRecord{AccountID: "alice", LastCheck: earlier}, live: false, wantLedger: LedgerNone},
		{name: "配信中→配信中", current: &StatusRecord{AccountID: "alice", IsLive: true, LastLiveStart: &earlier, LastCheck: earlier}, live: true, wantLedger: LedgerNone},
		{name: "配信中→オフライン", current: &StatusRecord{AccountID: "alice", IsLive: true, LastLiveStart: &earlier, LastCheck: earlier}, live: false, wantLedger: LedgerClose},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate("alice", observe(tt.live, t0), tt.current)

			assert.Equal(t, tt.wantLedger, d.Ledger.Kind)
			assert.Equal(t, tt.wantNotify, d.Notify)
			assert.Equal(t, tt.live, d.NewStatus.IsLive)
			assert.Equal(t, "alice", d.NewStatus.AccountID)
			assert.True(t, d.NewStatus.LastCheck.Equal(t0), "lastCheckは常に更新される")
		})
	}
}

func TestEvaluate_OpenSetsStartAndDate(t *testing.T) {
	d := Evaluate("alice", observe(true, t0), nil)

	require.Equal(t, LedgerOpen, d.Ledger.Kind)
	assert.True(t, d.Ledger.StartTime.Equal(t0))
	assert.Equal(t, "2026-01-01", d.Ledger.Date)
	require.NotNil(t, d.NewStatus.LastLiveStart)
	assert.True(t, d.NewStatus.LastLiveStart.Equal(t0))
}

func TestEvaluate_DateFollowsObservationZone(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	at := time.Date(2026, 1, 1, 16, 0, 0, 0, time.UTC).In(jst)

	d := Evaluate("alice", observe(true, at), nil)
	assert.Equal(t, "2026-01-02", d.Ledger.Date)
}

func TestEvaluate_CloseRetainsLastLiveStart(t *testing.T) {
	start := t0.Add(-30 * time.Minute)
	current := &StatusRecord{AccountID: "alice", IsLive: true, LastLiveStart: &start, LastCheck: start}

	d := Evaluate("alice", observe(false, t0), current)

	require.Equal(t, LedgerClose, d.Ledger.Kind)
	assert.True(t, d.Ledger.EndTime.Equal(t0))
	require.NotNil(t, d.NewStatus.LastLiveStart)
	assert.True(t, d.NewStatus.LastLiveStart.Equal(start))
	assert.NotSame(t, current.LastLiveStart, d.NewStatus.LastLiveStart)
}

func TestEvaluate_StillLiveKeepsStart(t *testing.T) {
	start := t0.Add(-10 * time.Minute)
	current := &StatusRecord{AccountID: "alice", IsLive: true, LastLiveStart: &start, LastCheck: start}

	d := Evaluate("alice", observe(true, t0), current)

	require.NotNil(t, d.NewStatus.LastLiveStart)
	assert.True(t, d.NewStatus.LastLiveStart.Equal(start))
	assert.False(t, d.Notify)
}

// 任意の観測列で、通知回数は配信開始エッジの数と一致し、
// オープン中のセッションは常に高々1つになる。
func TestEvaluate_NotifyCountMatchesLiveEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		var (
			current  *StatusRecord
			prevLive bool
			edges    int
			notifies int
			open     int
		)
		at := t0
		n := 1 + rng.Intn(50)

		for i := 0; i < n; i++ {
			live := rng.Intn(2) == 0
			if live && !prevLive {
				edges++
			}
			prevLive = live

			d := Evaluate("alice", observe(live, at), current)
			if d.Notify {
				notifies++
			}
			switch d.Ledger.Kind {
			case LedgerOpen:
				open++
			case LedgerClose:
				open--
			}
			require.GreaterOrEqual(t, open, 0)
			require.LessOrEqual(t, open, 1)
			require.Equal(t, d.Notify, d.Ledger.Kind == LedgerOpen)

			rec := d.NewStatus
			current = &rec
			at = at.Add(time.Minute)
		}

		assert.Equal(t, edges, notifies, "run %d", run)
	}
}

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{29 * time.Second, 0},
		{30 * time.Second, 1},
		{89 * time.Second, 1},
		{90 * time.Second, 2},
		{45 * time.Minute, 45},
		{2*time.Hour + 10*time.Second, 120},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DurationMinutes(t0, t0.Add(tt.elapsed)), tt.elapsed.String())
	}
}

func TestNormalizeAccountID(t *testing.T) {
	assert.Equal(t, "alice", NormalizeAccountID("  @Alice "))
	assert.Equal(t, "bob", NormalizeAccountID("bob"))
	assert.Equal(t, "", NormalizeAccountID("   "))
}

func TestAlertTemplate_Render(t *testing.T) {
	tmpl := AlertTemplate{Title: "配信開始!", Body: "{account} が配信を開始しました"}

	title, body := tmpl.Render("alice")
	assert.Equal(t, "配信開始!", title)
	assert.Equal(t, "alice が配信を開始しました", body)
}

func TestErrors_Unwrap(t *testing.T) {
	base := errors.New("boom")

	assert.ErrorIs(t, &FetchError{AccountID: "a", Err: base}, base)
	assert.ErrorIs(t, &StoreError{Op: "x", AccountID: "a", Err: base}, base)
	assert.ErrorIs(t, &AnomalyError{AccountID: "a", Reason: "r", Err: base}, base)
	assert.ErrorIs(t, &NotifyError{AccountID: "a", Err: base}, base)

	assert.True(t, IsFetchError(&FetchError{AccountID: "a", Err: base}))
	assert.False(t, IsFetchError(&StoreError{Op: "x", Err: base}))
	assert.Contains(t, (&AnomalyError{AccountID: "a", Reason: "r"}).Error(), "r")
}
