package dialogue

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"broker-assistant/internal/broker"
	"broker-assistant/internal/intent"
)

const confirmInstruction = "Reply 'confirm' to place the order or 'cancel' to abandon it."

// promptFor 返回字段的固定提问文案，保证逐字段提问可复现。
func promptFor(field intent.Field) string {
	switch field {
	case intent.FieldSymbol:
		return "Which symbol or company?"
	case intent.FieldSide:
		return "Buy or sell?"
	case intent.FieldOrderType:
		return "What order type? (market, limit, stop, or stop limit)"
	case intent.FieldLimitPrice:
		return "What limit price?"
	case intent.FieldStopPrice:
		return "What stop price?"
	case intent.FieldQuantityOrAmount:
		return "How many shares, or how much in dollars (e.g. $500)?"
	case intent.FieldTif:
		return "Time in force? (DAY or GTC)"
	default:
		return "Please provide more details."
	}
}

// formatQuote 组织行情回复。
func formatQuote(q broker.Quote) string {
	return fmt.Sprintf("%s is around %s. Bid %s, ask %s. Volume %s.",
		q.Symbol,
		fmtDecimal(q.LastTraded()),
		fmtDecimal(q.Bid),
		fmtDecimal(q.Ask),
		fmtDecimal(q.Volume),
	)
}

// formatPreflight 组织试算回复，无内容时明确说明。
func formatPreflight(symbol string, pre broker.PreflightResult) string {
	var parts []string
	if pre.EstimatedCost != nil {
		parts = append(parts, fmt.Sprintf("Estimated cost: %s.", pre.EstimatedCost.String()))
	}
	if pre.BuyingPowerImpact != nil {
		parts = append(parts, fmt.Sprintf("Buying power impact: %s.", pre.BuyingPowerImpact.String()))
	}
	if len(pre.Warnings) > 0 {
		parts = append(parts, "Warnings: "+strings.Join(pre.Warnings, "; ")+".")
	}

	detail := strings.Join(parts, " ")
	if detail == "" {
		detail = "no details returned."
	}
	return fmt.Sprintf("Preflight for %s: %s", symbol, detail)
}

// formatFinalStatus 组织提交后的状态报告。轮询窗口内未取到终态时
// 报告"已提交、状态待定"，而不是无限等待。
func formatFinalStatus(status *broker.OrderStatus, orderID string) string {
	if status == nil {
		return fmt.Sprintf("Order %s was submitted. Current status isn't available yet.", orderID)
	}

	st := status.Status
	if st == "" {
		st = "UNKNOWN"
	}
	base := fmt.Sprintf("Order %s status: %s.", orderID, st)
	if status.RejectReason != "" {
		base += fmt.Sprintf(" Reject reason: %s.", status.RejectReason)
	}
	if len(status.Executions) > 0 {
		fills := make([]string, 0, len(status.Executions))
		for _, ex := range status.Executions {
			fills = append(fills, fmt.Sprintf("%s @ %s (%s)", fmtDecimal(ex.Quantity), fmtDecimal(ex.Price), ex.Timestamp))
		}
		base += " Executions: " + strings.Join(fills, "; ") + "."
	}
	return base
}

func fmtDecimal(d *decimal.Decimal) string {
	if d == nil {
		return "n/a"
	}
	return d.String()
}
