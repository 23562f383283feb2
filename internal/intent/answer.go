package intent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SymbolResolver 将用户输入的代码或公司名解析为可交易的标的代码。
// 未命中时应返回实现方的"未找到"错误，由 ApplyAnswer 统一转为校验失败。
type SymbolResolver interface {
	ResolveSymbol(ctx context.Context, query string) (string, error)
}

// exactTickerPattern 匹配可直接采信的标的代码：长度不超过8的
// 字母/点/连字符组合，且本身已是全大写。
var exactTickerPattern = regexp.MustCompile(`^[A-Za-z.\-]{1,8}$`)

// ApplyAnswer 将单字段问答校验、归一化后合并进意向记录并返回副本。
// 校验失败时返回 *ValidationError 且原记录保持不变。
func ApplyAnswer(ctx context.Context, resolver SymbolResolver, it TradeIntent, field Field, raw string) (TradeIntent, error) {
	raw = strings.TrimSpace(raw)

	switch field {
	case FieldSymbol:
		symbol, err := resolveSymbolAnswer(ctx, resolver, raw)
		if err != nil {
			return it, err
		}
		it.Symbol = symbol
		return it, nil

	case FieldSide:
		side, ok := ParseSide(raw)
		if !ok {
			return it, &ValidationError{
				Field:   field,
				Code:    CodeInvalidSide,
				Message: "Please answer buy or sell.",
			}
		}
		it.Side = sidePtr(side)
		return it, nil

	case FieldOrderType:
		orderType, ok := ParseOrderType(raw)
		if !ok {
			return it, &ValidationError{
				Field:   field,
				Code:    CodeInvalidOrderType,
				Message: "Please choose an order type: market, limit, stop, or stop limit.",
			}
		}
		it.OrderType = orderTypePtr(orderType)
		return it, nil

	case FieldLimitPrice, FieldStopPrice:
		price, ok := parsePrice(raw)
		if !ok {
			return it, &ValidationError{
				Field:   field,
				Code:    CodeInvalidPrice,
				Message: "Please give a positive price, e.g. 190 or $190.50.",
			}
		}
		if field == FieldLimitPrice {
			it.LimitPrice = decimalPtr(price)
		} else {
			it.StopPrice = decimalPtr(price)
		}
		return it, nil

	case FieldQuantityOrAmount:
		return applyQuantityOrAmount(it, raw)

	case FieldTif:
		tif, ok := ParseTif(raw)
		if !ok {
			return it, &ValidationError{
				Field:   field,
				Code:    CodeInvalidTif,
				Message: "Please answer DAY or GTC.",
			}
		}
		it.Tif = tifPtr(tif)
		return it, nil

	default:
		return it, fmt.Errorf("intent: 未知字段 %q", field)
	}
}

// resolveSymbolAnswer 先走精确代码快速通道，否则交给远端解析。
func resolveSymbolAnswer(ctx context.Context, resolver SymbolResolver, raw string) (string, error) {
	if raw == "" {
		return "", &ValidationError{
			Field:   FieldSymbol,
			Code:    CodeUnresolvedSymbol,
			Message: "Please give a symbol or company name.",
		}
	}

	if exactTickerPattern.MatchString(raw) && raw == strings.ToUpper(raw) {
		return raw, nil
	}

	if resolver == nil {
		return "", &ValidationError{
			Field:   FieldSymbol,
			Code:    CodeUnresolvedSymbol,
			Message: fmt.Sprintf("Couldn't resolve %q. Try the exact ticker (e.g. NVDA).", raw),
		}
	}

	symbol, err := resolver.ResolveSymbol(ctx, raw)
	if err != nil {
		return "", err
	}
	if symbol == "" {
		return "", &ValidationError{
			Field:   FieldSymbol,
			Code:    CodeUnresolvedSymbol,
			Message: fmt.Sprintf("Couldn't find a tradable symbol for %q. Try the exact ticker (e.g. NVDA).", raw),
		}
	}
	return strings.ToUpper(symbol), nil
}

// applyQuantityOrAmount 处理共享槽位：以 $ 开头按金额解析，否则按股数解析。
// 后写入的一方清除另一方，保证互斥不变量。
func applyQuantityOrAmount(it TradeIntent, raw string) (TradeIntent, error) {
	if strings.HasPrefix(raw, "$") {
		amount, ok := parsePrice(raw)
		if !ok {
			return it, &ValidationError{
				Field:   FieldQuantityOrAmount,
				Code:    CodeInvalidQuantityOrAmount,
				Message: "Please give a share count (e.g. 5) or a dollar amount (e.g. $500).",
			}
		}
		it.Amount = decimalPtr(amount)
		it.Quantity = nil
		return it, nil
	}

	qty, ok := parseQuantity(raw)
	if !ok {
		return it, &ValidationError{
			Field:   FieldQuantityOrAmount,
			Code:    CodeInvalidQuantityOrAmount,
			Message: "Please give a share count (e.g. 5) or a dollar amount (e.g. $500).",
		}
	}
	it.Quantity = int64Ptr(qty)
	it.Amount = nil
	return it, nil
}

// parsePrice 去除前缀 $ 与千分位分隔符后解析正数价格。
func parsePrice(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// parseQuantity 解析正整数股数。
func parseQuantity(raw string) (int64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	qty, err := strconv.ParseInt(s, 10, 64)
	if err != nil || qty <= 0 {
		return 0, false
	}
	return qty, true
}
