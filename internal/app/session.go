package app

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"broker-assistant/internal/dialogue"
)

// PricePoint 为会话内的一次行情打印。
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// Session 持有单个会话的对话状态与行情历史。
// 同一会话的处理经 mu 串行化，跨会话天然隔离。
type Session struct {
	ID string

	mu           sync.Mutex
	state        *dialogue.State
	quoteHistory map[string][]PricePoint
	lastSeen     time.Time
}

// recordQuote 追加一次行情打印并裁剪到 limit 条以内。
// 调用方必须持有会话锁。
func (s *Session) recordQuote(symbol string, price decimal.Decimal, limit int) {
	symbol = strings.ToUpper(symbol)
	prints := append(s.quoteHistory[symbol], PricePoint{
		Timestamp: time.Now().UTC(),
		Price:     price,
	})
	if limit > 0 && len(prints) > limit {
		prints = prints[len(prints)-limit:]
	}
	s.quoteHistory[symbol] = prints
}

// quotePrints 返回某标的在本会话内的行情历史副本。
// 调用方必须持有会话锁。
func (s *Session) quotePrints(symbol string) []PricePoint {
	prints := s.quoteHistory[strings.ToUpper(symbol)]
	out := make([]PricePoint, len(prints))
	copy(out, prints)
	return out
}

// sessionIdleTTL 为会话闲置回收阈值，超过后新请求视同开启新会话。
const sessionIdleTTL = 12 * time.Hour

// sessionManager 管理会话的创建、查找与闲置回收。
type sessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[string]*Session)}
}

// getOrCreate 返回既有会话；id 为空、未知或已闲置过期时创建新会话。
func (m *sessionManager) getOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pruneLocked(time.Now().UTC())

	if id != "" {
		if sess, ok := m.sessions[id]; ok {
			sess.lastSeen = time.Now().UTC()
			return sess
		}
	}

	if id == "" {
		id = uuid.NewString()
	}
	sess := &Session{
		ID:           id,
		state:        dialogue.NewState(),
		quoteHistory: make(map[string][]PricePoint),
		lastSeen:     time.Now().UTC(),
	}
	m.sessions[id] = sess
	return sess
}

// get 查找既有会话。
func (m *sessionManager) get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// pruneLocked 回收闲置超过阈值的会话。调用方必须持有 m.mu 写锁。
func (m *sessionManager) pruneLocked(now time.Time) {
	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) > sessionIdleTTL {
			delete(m.sessions, id)
		}
	}
}
