package broker

import (
	"github.com/shopspring/decimal"
)

// Instrument 为券商标的目录中的一条记录。
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// Quote 为单标的行情快照。不同环境下最新价字段名不一致，
// 统一通过 LastTraded 读取。
type Quote struct {
	Symbol     string           `json:"symbol"`
	Last       *decimal.Decimal `json:"last"`
	LastPrice  *decimal.Decimal `json:"lastPrice"`
	Price      *decimal.Decimal `json:"price"`
	ClosePrice *decimal.Decimal `json:"closePrice"`
	Bid        *decimal.Decimal `json:"bid"`
	Ask        *decimal.Decimal `json:"ask"`
	Volume     *decimal.Decimal `json:"volume"`
}

// LastTraded 按 last → lastPrice → price → closePrice 顺序取最新价。
func (q Quote) LastTraded() *decimal.Decimal {
	for _, candidate := range []*decimal.Decimal{q.Last, q.LastPrice, q.Price, q.ClosePrice} {
		if candidate != nil {
			return candidate
		}
	}
	return nil
}

// PreflightResult 为下单前试算结果。
type PreflightResult struct {
	EstimatedCost     *decimal.Decimal `json:"estimatedCost"`
	BuyingPowerImpact *decimal.Decimal `json:"buyingPowerImpact"`
	Warnings          []string         `json:"warnings"`
}

// Execution 为一笔成交记录。
type Execution struct {
	Quantity  *decimal.Decimal `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Timestamp string           `json:"timestamp"`
}

// OrderStatus 为委托状态查询结果。
type OrderStatus struct {
	OrderID      string      `json:"orderId"`
	Status       string      `json:"status"`
	RejectReason string      `json:"rejectReason"`
	Executions   []Execution `json:"executions"`
}

// 终态集合：到达后委托不再发生状态变化。
const (
	StatusFilled    = "FILLED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
	StatusExpired   = "EXPIRED"
	StatusReplaced  = "REPLACED"
)

var terminalStatuses = map[string]struct{}{
	StatusFilled:    {},
	StatusRejected:  {},
	StatusCancelled: {},
	StatusExpired:   {},
	StatusReplaced:  {},
}

// IsTerminalStatus 判断委托状态是否为终态。
func IsTerminalStatus(status string) bool {
	_, ok := terminalStatuses[status]
	return ok
}
