package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"broker-assistant/internal/intent"
)

// 模型对一条用户消息的分类结果。
const (
	TypeQuote = "QUOTE"
	TypeOrder = "ORDER"
	TypeAsk   = "ASK"
)

// Message 为传给模型的对话轮次。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Interpretation 是意图抽取协作方的输出。Missing 与 Type 仅供参考，
// 对话引擎进入逐字段补全后会自行重算缺失字段；Intent.Symbol 为用户
// 原始文本，须经标的解析后方可使用。
type Interpretation struct {
	Type     string
	Question string
	Missing  []string
	Intent   intent.TradeIntent
	Summary  string
}

// interpretationPayload 为模型输出的线格式。
type interpretationPayload struct {
	Type     string         `json:"type"`
	Question *string        `json:"question"`
	Missing  []string       `json:"missing"`
	Intent   *intentPayload `json:"intent"`
	Summary  *string        `json:"summary"`
}

type intentPayload struct {
	Symbol     *string  `json:"symbol"`
	Side       *string  `json:"side"`
	OrderType  *string  `json:"orderType"`
	Quantity   *float64 `json:"quantity"`
	Amount     *float64 `json:"amount"`
	LimitPrice *float64 `json:"limitPrice"`
	StopPrice  *float64 `json:"stopPrice"`
	Tif        *string  `json:"tif"`
}

// parseInterpretation 从模型原始输出中截取 JSON 并归一化。
func parseInterpretation(content string) (Interpretation, error) {
	jsonPayload, err := extractJSON(content)
	if err != nil {
		return Interpretation{}, err
	}

	var payload interpretationPayload
	if err = json.Unmarshal(jsonPayload, &payload); err != nil {
		return Interpretation{}, fmt.Errorf("ai: 解析意图JSON失败: %w", err)
	}

	return payload.normalize(), nil
}

// normalize 将线格式转换为内部表示，非法字段一律丢弃，交由引擎重新提问，
// 绝不猜测或默认任何影响订单语义的字段。
func (p interpretationPayload) normalize() Interpretation {
	out := Interpretation{
		Type:    strings.ToUpper(strings.TrimSpace(p.Type)),
		Missing: p.Missing,
	}
	switch out.Type {
	case TypeQuote, TypeOrder, TypeAsk:
	default:
		out.Type = TypeAsk
	}
	if p.Question != nil {
		out.Question = strings.TrimSpace(*p.Question)
	}
	if p.Summary != nil {
		out.Summary = strings.TrimSpace(*p.Summary)
	}
	if p.Intent != nil {
		out.Intent = p.Intent.toTradeIntent()
	}
	return out
}

func (p intentPayload) toTradeIntent() intent.TradeIntent {
	var it intent.TradeIntent

	if p.Symbol != nil {
		it.Symbol = strings.TrimSpace(*p.Symbol)
	}
	if p.Side != nil && intent.ValidSide(*p.Side) {
		side := intent.Side(strings.ToUpper(strings.TrimSpace(*p.Side)))
		it.Side = &side
	}
	if p.OrderType != nil && intent.ValidOrderType(*p.OrderType) {
		orderType := intent.OrderType(strings.ToUpper(strings.TrimSpace(*p.OrderType)))
		it.OrderType = &orderType
	}
	if p.Quantity != nil && *p.Quantity > 0 && *p.Quantity == math.Trunc(*p.Quantity) {
		qty := int64(*p.Quantity)
		it.Quantity = &qty
	}
	if p.Amount != nil && *p.Amount > 0 {
		amount := decimal.NewFromFloat(*p.Amount)
		it.Amount = &amount
	}
	if p.LimitPrice != nil && *p.LimitPrice > 0 {
		price := decimal.NewFromFloat(*p.LimitPrice)
		it.LimitPrice = &price
	}
	if p.StopPrice != nil && *p.StopPrice > 0 {
		price := decimal.NewFromFloat(*p.StopPrice)
		it.StopPrice = &price
	}
	if p.Tif != nil && intent.ValidTif(*p.Tif) {
		tif := intent.TimeInForce(strings.ToUpper(strings.TrimSpace(*p.Tif)))
		it.Tif = &tif
	}

	// 数量与金额互斥；两者同时出现时无法判断用户本意，全部丢弃待重问。
	if it.Quantity != nil && it.Amount != nil {
		it.Quantity = nil
		it.Amount = nil
	}

	return it
}

func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("ai: 模型输出未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}
