package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yuu1111/LiveNotifier/internal/monitor"
)

// Memory は状態・履歴・トークンをin-memoryで管理する。
// store.driverが"memory"の場合とテストで使う。再起動で内容は失われる。
type Memory struct {
	mu       sync.RWMutex
	statuses map[string]monitor.StatusRecord
	sessions []monitor.SessionRecord
	tokens   []string
	tokenSet map[string]struct{}
}

// NewMemory はMemoryインスタンスを作成する。
func NewMemory() *Memory {
	return &Memory{
		statuses: make(map[string]monitor.StatusRecord),
		tokenSet: make(map[string]struct{}),
	}
}

// Get は指定アカウントの状態を返す。存在しない場合はnilを返す。
func (m *Memory) Get(_ context.Context, accountID string) (*monitor.StatusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.statuses[accountID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put は指定アカウントの状態を更新する。
func (m *Memory) Put(_ context.Context, rec monitor.StatusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statuses[rec.AccountID] = rec
	return nil
}

// OpenSession は新しいセッションを追加する。
func (m *Memory) OpenSession(_ context.Context, accountID string, startTime time.Time, date string) (monitor.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := monitor.SessionRecord{
		ID:        uuid.New().String(),
		AccountID: accountID,
		StartTime: startTime,
		Date:      date,
	}
	m.sessions = append(m.sessions, rec)
	return rec, nil
}

// FindOpenSession は終了していないセッションのうち開始が最も新しいものを返す。
func (m *Memory) FindOpenSession(_ context.Context, accountID string) (*monitor.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found *monitor.SessionRecord
	for i := range m.sessions {
		s := m.sessions[i]
		if s.AccountID != accountID || !s.IsOpen() {
			continue
		}
		if found == nil || !s.StartTime.Before(found.StartTime) {
			found = &s
		}
	}
	return found, nil
}

// CloseSession はセッションを終了する。終了済みならErrSessionClosedを返す。
func (m *Memory) CloseSession(_ context.Context, session monitor.SessionRecord, endTime time.Time) (monitor.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.sessions {
		if m.sessions[i].ID != session.ID {
			continue
		}
		if !m.sessions[i].IsOpen() {
			return m.sessions[i], ErrSessionClosed
		}
		end := endTime
		duration := monitor.DurationMinutes(m.sessions[i].StartTime, endTime)
		m.sessions[i].EndTime = &end
		m.sessions[i].DurationMinutes = &duration
		return m.sessions[i], nil
	}
	return session, ErrSessionClosed
}

// ListSessions はセッション履歴を開始時刻の新しい順に返す。
func (m *Memory) ListSessions(_ context.Context, q monitor.SessionQuery) ([]monitor.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []monitor.SessionRecord{}
	for _, s := range m.sessions {
		if q.AccountID == "" || s.AccountID == q.AccountID {
			result = append(result, s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Register はトークンを登録する。登録済みなら何もしない。
func (m *Memory) Register(_ context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokenSet[token]; ok {
		return nil
	}
	m.tokenSet[token] = struct{}{}
	m.tokens = append(m.tokens, token)
	return nil
}

// ListAll は登録済みの全トークンを返す。
func (m *Memory) ListAll(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.tokens...), nil
}
