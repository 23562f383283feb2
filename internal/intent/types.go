package intent

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Side 表示买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType 表示订单类型。
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStop      OrderType = "STOP"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// TimeInForce 表示订单有效期策略。
type TimeInForce string

const (
	TifDay TimeInForce = "DAY"
	TifGTC TimeInForce = "GTC"
)

// Field 标识 TradeIntent 中的一个待补全槽位。
type Field string

const (
	FieldSymbol           Field = "symbol"
	FieldSide             Field = "side"
	FieldOrderType        Field = "orderType"
	FieldLimitPrice       Field = "limitPrice"
	FieldStopPrice        Field = "stopPrice"
	FieldQuantityOrAmount Field = "quantityOrAmount"
	FieldTif              Field = "tif"
)

// TradeIntent 为逐轮累积的意向订单记录。所有字段在校验通过前均为可缺省；
// 数量与金额互斥，二者最多同时存在一个。
type TradeIntent struct {
	Symbol     string
	Side       *Side
	OrderType  *OrderType
	Quantity   *int64
	Amount     *decimal.Decimal
	LimitPrice *decimal.Decimal
	StopPrice  *decimal.Decimal
	Tif        *TimeInForce
}

// ParseSide 解析买卖方向问答。
func ParseSide(raw string) (Side, bool) {
	switch normalizeToken(raw) {
	case "buy", "b":
		return SideBuy, true
	case "sell", "s":
		return SideSell, true
	default:
		return "", false
	}
}

// ParseOrderType 解析订单类型问答。
func ParseOrderType(raw string) (OrderType, bool) {
	switch normalizeToken(raw) {
	case "m", "market":
		return OrderTypeMarket, true
	case "l", "limit":
		return OrderTypeLimit, true
	case "stop":
		return OrderTypeStop, true
	case "stop limit", "stop_limit", "sl", "stoplimit":
		return OrderTypeStopLimit, true
	default:
		return "", false
	}
}

// ParseTif 解析订单有效期问答。
func ParseTif(raw string) (TimeInForce, bool) {
	switch normalizeToken(raw) {
	case "day":
		return TifDay, true
	case "gtc":
		return TifGTC, true
	default:
		return "", false
	}
}

// ValidSide 判断枚举值是否合法，用于接收外部协作方回传的字段。
func ValidSide(v string) bool {
	s := Side(strings.ToUpper(strings.TrimSpace(v)))
	return s == SideBuy || s == SideSell
}

// ValidOrderType 判断订单类型枚举是否合法。
func ValidOrderType(v string) bool {
	t := OrderType(strings.ToUpper(strings.TrimSpace(v)))
	switch t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop, OrderTypeStopLimit:
		return true
	default:
		return false
	}
}

// ValidTif 判断有效期枚举是否合法。
func ValidTif(v string) bool {
	t := TimeInForce(strings.ToUpper(strings.TrimSpace(v)))
	return t == TifDay || t == TifGTC
}

// normalizeToken 统一大小写并压缩词间空白。
func normalizeToken(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(raw))), " ")
}

func sidePtr(s Side) *Side                { return &s }
func orderTypePtr(t OrderType) *OrderType { return &t }
func tifPtr(t TimeInForce) *TimeInForce   { return &t }
func int64Ptr(v int64) *int64             { return &v }
func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
