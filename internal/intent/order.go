package intent

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Instrument 描述订单标的。
type Instrument struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
}

// Expiration 描述订单有效期。
type Expiration struct {
	TimeInForce TimeInForce `json:"timeInForce"`
}

// OrderBody 为提交给券商的委托载荷。数值字段按线上协议以字符串传输，
// 数量与金额恰好出现其一。
type OrderBody struct {
	OrderID    string     `json:"orderId"`
	Instrument Instrument `json:"instrument"`
	OrderSide  Side       `json:"orderSide"`
	OrderType  OrderType  `json:"orderType"`
	Expiration Expiration `json:"expiration"`
	Quantity   string     `json:"quantity,omitempty"`
	Amount     string     `json:"amount,omitempty"`
	LimitPrice string     `json:"limitPrice,omitempty"`
	StopPrice  string     `json:"stopPrice,omitempty"`
}

// BuildOrderBody 将校验完备的意向记录一比一映射为委托载荷。
// 每次调用生成全新的 orderId，调用方必须保留它用于后续状态查询。
func BuildOrderBody(symbol string, it TradeIntent) (OrderBody, error) {
	if symbol == "" {
		return OrderBody{}, errors.New("intent: 构建订单缺少标的代码")
	}
	if !Complete(it) {
		field, _ := NextMissing(it)
		return OrderBody{}, fmt.Errorf("intent: 意向记录不完整，缺少字段 %s", field)
	}

	body := OrderBody{
		OrderID:    uuid.NewString(),
		Instrument: Instrument{Symbol: strings.ToUpper(symbol), Type: "EQUITY"},
		OrderSide:  *it.Side,
		OrderType:  *it.OrderType,
		Expiration: Expiration{TimeInForce: *it.Tif},
	}

	if it.Quantity != nil {
		body.Quantity = strconv.FormatInt(*it.Quantity, 10)
	} else if it.Amount != nil {
		body.Amount = it.Amount.String()
	}
	if it.LimitPrice != nil {
		body.LimitPrice = it.LimitPrice.String()
	}
	if it.StopPrice != nil {
		body.StopPrice = it.StopPrice.String()
	}

	return body, nil
}

// Summary 为完备意向生成确定性的人类可读摘要，
// 字段顺序固定：方向、数量或金额、标的、类型、可选限价/止损价、有效期。
func Summary(it TradeIntent) string {
	if !Complete(it) {
		return ""
	}

	var b strings.Builder
	b.WriteString(string(*it.Side))
	b.WriteString(" ")
	if it.Quantity != nil {
		b.WriteString(fmt.Sprintf("%d share(s)", *it.Quantity))
	} else {
		b.WriteString("$" + formatPrice(*it.Amount))
	}
	b.WriteString(" of ")
	b.WriteString(it.Symbol)
	b.WriteString(" as ")
	b.WriteString(string(*it.OrderType))
	if it.LimitPrice != nil {
		b.WriteString(" @ " + formatPrice(*it.LimitPrice))
	}
	if it.StopPrice != nil {
		b.WriteString(" stop " + formatPrice(*it.StopPrice))
	}
	b.WriteString(fmt.Sprintf(" (%s)", *it.Tif))

	return b.String()
}

// formatPrice 保证摘要中的价格至少带一位小数，如 190 → 190.0。
func formatPrice(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
