package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"broker-assistant/internal/dialogue"
	"broker-assistant/internal/intent"
)

func TestSessionManager_GetOrCreate(t *testing.T) {
	m := newSessionManager()

	created := m.getOrCreate("")
	if created.ID == "" {
		t.Fatalf("new session must get a generated id")
	}

	same := m.getOrCreate(created.ID)
	if same != created {
		t.Errorf("known id must return the existing session")
	}

	other := m.getOrCreate("client-supplied-id")
	if other == created {
		t.Errorf("unknown id must create a fresh session")
	}
	if other.ID != "client-supplied-id" {
		t.Errorf("client-supplied id should be kept, got %q", other.ID)
	}

	if _, ok := m.get(created.ID); !ok {
		t.Errorf("get should find an existing session")
	}
	if _, ok := m.get("missing"); ok {
		t.Errorf("get must not create sessions")
	}
}

func TestSessionManager_PrunesIdleSessions(t *testing.T) {
	m := newSessionManager()

	stale := m.getOrCreate("")
	stale.lastSeen = time.Now().UTC().Add(-sessionIdleTTL - time.Minute)
	fresh := m.getOrCreate("")

	// 任意一次创建触发回收，闲置会话消失、活跃会话保留。
	m.getOrCreate("")
	if _, ok := m.get(stale.ID); ok {
		t.Errorf("idle session should be pruned")
	}
	if _, ok := m.get(fresh.ID); !ok {
		t.Errorf("active session must survive pruning")
	}

	// 过期ID再次使用时得到全新会话。
	stale.state.Intent.Symbol = "NVDA"
	reborn := m.getOrCreate(stale.ID)
	if reborn == stale || reborn.state.Intent.Symbol != "" {
		t.Errorf("expired id must start a fresh session")
	}
}

func TestSessionManager_StateIsolation(t *testing.T) {
	m := newSessionManager()
	a := m.getOrCreate("")
	b := m.getOrCreate("")

	a.state.Mode = dialogue.ModeGathering
	a.state.PendingField = intent.FieldSide
	a.state.Intent.Symbol = "NVDA"

	if b.state.Mode != dialogue.ModeIdle || b.state.Intent.Symbol != "" {
		t.Errorf("sessions must not share state, got mode=%s symbol=%q", b.state.Mode, b.state.Intent.Symbol)
	}
}

func TestSession_QuoteHistoryTrimming(t *testing.T) {
	m := newSessionManager()
	sess := m.getOrCreate("")

	for i := 1; i <= 5; i++ {
		sess.recordQuote("nvda", decimal.NewFromInt(int64(100+i)), 3)
	}

	prints := sess.quotePrints("NVDA")
	if len(prints) != 3 {
		t.Fatalf("history should be trimmed to 3, got %d", len(prints))
	}
	if !prints[0].Price.Equal(decimal.NewFromInt(103)) || !prints[2].Price.Equal(decimal.NewFromInt(105)) {
		t.Errorf("oldest prints must drop first, got %v..%v", prints[0].Price, prints[2].Price)
	}

	// 副本不回写原历史。
	prints[0].Price = decimal.NewFromInt(1)
	if fresh := sess.quotePrints("NVDA"); !fresh[0].Price.Equal(decimal.NewFromInt(103)) {
		t.Errorf("quotePrints must return a copy")
	}
}

func TestSession_QuoteHistoryPerSymbol(t *testing.T) {
	m := newSessionManager()
	sess := m.getOrCreate("")

	sess.recordQuote("NVDA", decimal.NewFromInt(190), 10)
	sess.recordQuote("AAPL", decimal.NewFromInt(230), 10)

	if len(sess.quotePrints("NVDA")) != 1 || len(sess.quotePrints("AAPL")) != 1 {
		t.Errorf("histories must be kept per symbol")
	}
	if len(sess.quotePrints("TSLA")) != 0 {
		t.Errorf("unknown symbol should have empty history")
	}
}
