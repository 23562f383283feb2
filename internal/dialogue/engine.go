package dialogue

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"broker-assistant/internal/ai"
	"broker-assistant/internal/broker"
	"broker-assistant/internal/intent"
)

// Interpreter 为意图抽取协作方，输出仅供参考，引擎自行重算缺失字段。
type Interpreter interface {
	Interpret(ctx context.Context, history []ai.Message) (ai.Interpretation, error)
}

// Phraser 将系统消息改写为更友好的表述，可为空。
type Phraser interface {
	Phrase(ctx context.Context, text string) (string, error)
}

// Broker 为引擎依赖的券商操作集合。
type Broker interface {
	ResolveSymbol(ctx context.Context, query string) (string, error)
	GetQuote(ctx context.Context, symbol string) (*broker.Quote, error)
	Preflight(ctx context.Context, body intent.OrderBody) (broker.PreflightResult, error)
	PlaceOrder(ctx context.Context, body intent.OrderBody) error
	GetOrder(ctx context.Context, orderID string) (*broker.OrderStatus, error)
}

// Options 控制引擎行为。
type Options struct {
	HistoryLimit       int
	StatusPollAttempts int
	StatusPollInterval time.Duration
}

// Reply 为一轮对话处理的结果。所有错误都已转译为 Text 中的
// 用户可读通知，状态未被破坏；Err 保留底层错误，供调用方写入会话日志。
type Reply struct {
	Text         string
	Mode         Mode
	PendingField intent.Field
	OrderID      string
	Quote        *broker.Quote
	Err          error
}

// Engine 驱动逐字段补全对话状态机。
type Engine struct {
	interpreter Interpreter
	broker      Broker
	phraser     Phraser
	logger      *zap.Logger
	opts        Options
}

// NewEngine 创建对话引擎。phraser 可为 nil，此时系统消息按原文返回。
func NewEngine(interpreter Interpreter, brokerClient Broker, phraser Phraser, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	if opts.StatusPollAttempts <= 0 {
		opts.StatusPollAttempts = 12
	}
	if opts.StatusPollInterval <= 0 {
		opts.StatusPollInterval = 1200 * time.Millisecond
	}

	return &Engine{
		interpreter: interpreter,
		broker:      brokerClient,
		phraser:     phraser,
		logger:      logger,
		opts:        opts,
	}
}

// 确认态只接受以下整句关键词（不区分大小写）。
var (
	confirmTokens = map[string]struct{}{
		"confirm": {}, "yes": {}, "y": {}, "place": {}, "ok": {},
	}
	cancelTokens = map[string]struct{}{
		"cancel": {}, "no": {}, "n": {}, "stop": {}, "abort": {},
	}
)

// HandleMessage 处理一轮用户消息并推进状态机。补全中的消息直接作为
// 待定字段的回答，绕过意图抽取；其余消息先经抽取再落槽位。
func (e *Engine) HandleMessage(ctx context.Context, st *State, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Text: "Please enter a message.", Mode: st.Mode, PendingField: st.PendingField}
	}

	st.appendHistory("user", text, e.opts.HistoryLimit)

	var reply Reply
	switch st.Mode {
	case ModeGathering:
		reply = e.handleAnswer(ctx, st, text)
	case ModeConfirming:
		reply = e.handleConfirmation(ctx, st, text)
	default:
		reply = e.handleNewMessage(ctx, st)
	}

	st.appendHistory("assistant", reply.Text, e.opts.HistoryLimit)
	return reply
}

// handleAnswer 将消息作为待定字段的回答校验并合并。
// 校验失败不修改意向，针对同一字段重新提问。
func (e *Engine) handleAnswer(ctx context.Context, st *State, text string) Reply {
	updated, err := intent.ApplyAnswer(ctx, e.broker, st.Intent, st.PendingField, text)
	if err != nil {
		if ve, ok := intent.AsValidationError(err); ok {
			return Reply{Text: ve.Message, Mode: st.Mode, PendingField: st.PendingField}
		}
		e.logger.Warn("字段回答处理失败",
			zap.String("field", string(st.PendingField)),
			zap.Error(err),
		)
		return Reply{
			Text:         "Sorry, the brokerage request failed. Please try again.",
			Mode:         st.Mode,
			PendingField: st.PendingField,
			Err:          err,
		}
	}

	st.Intent = updated
	return e.advance(ctx, st)
}

// handleConfirmation 仅接受确认/取消关键词，其余输入重发确认提示。
func (e *Engine) handleConfirmation(ctx context.Context, st *State, text string) Reply {
	token := strings.ToLower(strings.TrimSpace(text))

	if _, ok := cancelTokens[token]; ok {
		st.reset()
		return Reply{Text: "Order cancelled.", Mode: ModeIdle}
	}
	if _, ok := confirmTokens[token]; ok {
		return e.placeAndTrack(ctx, st)
	}

	return Reply{
		Text: "Please review: " + intent.Summary(st.Intent) + ". " + confirmInstruction,
		Mode: ModeConfirming,
	}
}

// handleNewMessage 将空闲态消息送入意图抽取并按分类分流。
func (e *Engine) handleNewMessage(ctx context.Context, st *State) Reply {
	parsed, err := e.interpreter.Interpret(ctx, st.History)
	if err != nil {
		e.logger.Warn("意图抽取失败", zap.Error(err))
		return Reply{Text: "Sorry, I couldn't process that right now. Please try again.", Mode: st.Mode, Err: err}
	}

	if parsed.Type == ai.TypeQuote {
		return e.handleQuote(ctx, st, parsed)
	}

	// ORDER 与 ASK 走同一条路：抽取结果只用来预填槽位，
	// 缺什么由 NextMissing 自行裁定。
	return e.seedIntent(ctx, st, parsed)
}

// seedIntent 用抽取结果预填意向。标的为用户原始文本，
// 必须先解析；解析不中则清空交由补全流程重新提问。
func (e *Engine) seedIntent(ctx context.Context, st *State, parsed ai.Interpretation) Reply {
	seeded := parsed.Intent
	var note string

	if seeded.Symbol != "" {
		raw := seeded.Symbol
		seeded.Symbol = ""
		resolved, err := intent.ApplyAnswer(ctx, e.broker, seeded, intent.FieldSymbol, raw)
		switch {
		case err == nil:
			seeded = resolved
		default:
			ve, ok := intent.AsValidationError(err)
			if !ok {
				e.logger.Warn("标的解析失败", zap.String("query", raw), zap.Error(err))
				return Reply{Text: "Sorry, the brokerage request failed. Please try again.", Mode: st.Mode, Err: err}
			}
			note = ve.Message
		}
	}

	st.Intent = seeded
	reply := e.advance(ctx, st)
	switch {
	case note != "" && reply.PendingField == intent.FieldSymbol:
		reply.Text = note
	case parsed.Question != "" && reply.Mode == ModeGathering:
		// 抽取方给出的追问比固定文案更贴合上下文，首轮进入补全时优先采用。
		reply.Text = parsed.Question
	}
	return reply
}

// advance 重算缺失字段：有缺失则提问，齐备则预检并进入确认态。
func (e *Engine) advance(ctx context.Context, st *State) Reply {
	if field, missing := intent.NextMissing(st.Intent); missing {
		st.Mode = ModeGathering
		st.PendingField = field
		return Reply{Text: promptFor(field), Mode: ModeGathering, PendingField: field}
	}

	body, err := intent.BuildOrderBody(st.Intent.Symbol, st.Intent)
	if err != nil {
		e.logger.Error("构建委托载荷失败", zap.Error(err))
		st.reset()
		return Reply{Text: "Something went wrong preparing the order. Please start over.", Mode: ModeIdle, Err: err}
	}

	preflight, err := e.broker.Preflight(ctx, body)
	if err != nil {
		// 预检被拒对本次下单是终结性的：不进入确认态，原始拒绝信息留给用户诊断。
		detail := "Sorry, the brokerage request failed. Please try again."
		if apiErr, ok := broker.AsAPIError(err); ok {
			detail = strings.TrimSpace(apiErr.Body)
		}
		e.logger.Warn("下单前试算未通过", zap.String("order_id", body.OrderID), zap.Error(err))
		st.reset()
		return Reply{Text: "Preflight failed, the order was not placed. " + detail, Mode: ModeIdle, Err: err}
	}

	st.Mode = ModeConfirming
	st.PendingField = ""
	st.Order = &body

	text := "Please review: " + intent.Summary(st.Intent) + ". " +
		e.phrase(ctx, formatPreflight(st.Intent.Symbol, preflight)) + " " +
		confirmInstruction

	return Reply{Text: text, Mode: ModeConfirming, OrderID: body.OrderID}
}

// placeAndTrack 提交已构建的委托并做有界状态轮询。
// 提交失败回到空闲；提交成功后无论轮询结果如何都报告为已提交。
func (e *Engine) placeAndTrack(ctx context.Context, st *State) Reply {
	if st.Order == nil {
		st.reset()
		return Reply{Text: "There is no order pending confirmation.", Mode: ModeIdle}
	}

	order := *st.Order
	if err := e.broker.PlaceOrder(ctx, order); err != nil {
		e.logger.Error("提交委托失败", zap.String("order_id", order.OrderID), zap.Error(err))
		st.reset()
		return Reply{Text: "Order placement failed, nothing was submitted. Please try again.", Mode: ModeIdle, Err: err}
	}

	st.LastOrderID = order.OrderID
	status := e.awaitTerminalStatus(ctx, order.OrderID)

	text := e.phrase(ctx, formatFinalStatus(status, order.OrderID))
	st.reset()
	return Reply{Text: text, Mode: ModeSubmitted, OrderID: order.OrderID}
}

// awaitTerminalStatus 以固定间隔轮询委托状态，最多 StatusPollAttempts 次，
// 到达终态立即返回；上下文取消时随会话一同放弃，不留后台工作。
func (e *Engine) awaitTerminalStatus(ctx context.Context, orderID string) *broker.OrderStatus {
	var last *broker.OrderStatus

	for attempt := 1; attempt <= e.opts.StatusPollAttempts; attempt++ {
		status, err := e.broker.GetOrder(ctx, orderID)
		if err != nil {
			e.logger.Warn("查询委托状态失败",
				zap.String("order_id", orderID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		} else if status != nil {
			last = status
			if broker.IsTerminalStatus(status.Status) {
				return last
			}
		}

		if attempt == e.opts.StatusPollAttempts {
			break
		}

		timer := time.NewTimer(e.opts.StatusPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last
		case <-timer.C:
		}
	}

	return last
}

// handleQuote 处理行情查询：解析标的、拉取行情并组织回复。
func (e *Engine) handleQuote(ctx context.Context, st *State, parsed ai.Interpretation) Reply {
	query := strings.TrimSpace(parsed.Intent.Symbol)
	if query == "" {
		return Reply{Text: "Please specify a symbol or company.", Mode: st.Mode, PendingField: st.PendingField}
	}

	symbol, err := e.broker.ResolveSymbol(ctx, query)
	if err != nil {
		e.logger.Warn("标的解析失败", zap.String("query", query), zap.Error(err))
		return Reply{Text: "Sorry, the brokerage request failed. Please try again.", Mode: st.Mode, PendingField: st.PendingField, Err: err}
	}
	if symbol == "" {
		return Reply{
			Text:         "Couldn't find a tradable symbol for \"" + query + "\". Try the exact ticker (e.g. NVDA).",
			Mode:         st.Mode,
			PendingField: st.PendingField,
		}
	}

	quote, err := e.broker.GetQuote(ctx, symbol)
	if err != nil {
		e.logger.Warn("拉取行情失败", zap.String("symbol", symbol), zap.Error(err))
		return Reply{Text: "Sorry, the quote lookup failed. Please try again.", Mode: st.Mode, PendingField: st.PendingField, Err: err}
	}
	if quote == nil {
		return Reply{Text: "No quote returned for " + symbol + ".", Mode: st.Mode, PendingField: st.PendingField}
	}

	text := e.phrase(ctx, formatQuote(*quote))
	return Reply{Text: text, Mode: st.Mode, PendingField: st.PendingField, Quote: quote}
}

// phrase 经 Phraser 改写消息，失败或为空时退回原文。
func (e *Engine) phrase(ctx context.Context, text string) string {
	if e.phraser == nil {
		return text
	}
	phrased, err := e.phraser.Phrase(ctx, text)
	if err != nil || strings.TrimSpace(phrased) == "" {
		return text
	}
	return phrased
}
