package intent

// NextMissing 按固定优先级返回意向记录中下一个待补全字段。
// 优先级为：标的 → 方向 → 订单类型 → 限价（LIMIT/STOP_LIMIT）→
// 止损价（STOP/STOP_LIMIT）→ 数量或金额 → 有效期。顺序不可调整，
// 否则逐字段提问将不可复现。仅当全部适用字段齐备时返回 false。
func NextMissing(it TradeIntent) (Field, bool) {
	if it.Symbol == "" {
		return FieldSymbol, true
	}
	if it.Side == nil {
		return FieldSide, true
	}
	if it.OrderType == nil {
		return FieldOrderType, true
	}
	if requiresLimitPrice(*it.OrderType) && it.LimitPrice == nil {
		return FieldLimitPrice, true
	}
	if requiresStopPrice(*it.OrderType) && it.StopPrice == nil {
		return FieldStopPrice, true
	}
	if it.Quantity == nil && it.Amount == nil {
		return FieldQuantityOrAmount, true
	}
	if it.Tif == nil {
		return FieldTif, true
	}
	return "", false
}

// Complete 判断意向记录是否已满足全部适用字段。
func Complete(it TradeIntent) bool {
	_, missing := NextMissing(it)
	return !missing
}

func requiresLimitPrice(t OrderType) bool {
	return t == OrderTypeLimit || t == OrderTypeStopLimit
}

func requiresStopPrice(t OrderType) bool {
	return t == OrderTypeStop || t == OrderTypeStopLimit
}
