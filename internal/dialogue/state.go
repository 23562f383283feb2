package dialogue

import (
	"broker-assistant/internal/ai"
	"broker-assistant/internal/intent"
)

// Mode 表示对话状态机所处的阶段。
type Mode string

const (
	// ModeIdle 空闲，新消息交给意图抽取。
	ModeIdle Mode = "IDLE"
	// ModeGathering 逐字段补全中，新消息视为对 PendingField 的回答。
	ModeGathering Mode = "GATHERING"
	// ModeConfirming 等待确认或取消，委托载荷已构建。
	ModeConfirming Mode = "CONFIRMING"
	// ModeSubmitted 委托已提交，仅作为回复中的终态标记；
	// 会话状态随提交完成即回到 IDLE。
	ModeSubmitted Mode = "SUBMITTED"
)

// State 为单个会话的对话状态。意向记录只能经由引擎的字段更新操作修改；
// 同一会话的处理必须串行，跨会话相互隔离。
type State struct {
	Mode         Mode
	PendingField intent.Field
	Intent       intent.TradeIntent
	Order        *intent.OrderBody
	History      []ai.Message
	LastOrderID  string
}

// NewState 创建空闲状态的会话。
func NewState() *State {
	return &State{Mode: ModeIdle}
}

// reset 丢弃当前意向并回到空闲。对话历史与最近一次委托ID保留。
func (s *State) reset() {
	s.Mode = ModeIdle
	s.PendingField = ""
	s.Intent = intent.TradeIntent{}
	s.Order = nil
}

// appendHistory 追加一轮对话并裁剪到 limit 条以内。
func (s *State) appendHistory(role, content string, limit int) {
	s.History = append(s.History, ai.Message{Role: role, Content: content})
	if limit > 0 && len(s.History) > limit {
		s.History = s.History[len(s.History)-limit:]
	}
}
