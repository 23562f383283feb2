package transcript

import (
	"time"

	"broker-assistant/internal/broker"
)

// EventType 表示会话事件类型。
type EventType string

const (
	EventUserMessage    EventType = "user_message"
	EventAssistantReply EventType = "assistant_reply"
	EventOrderSubmitted EventType = "order_submitted"
	EventOrderStatus    EventType = "order_status"
	EventError          EventType = "error"
)

// Event 封装通用会话事件。
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// MessagePayload 记录一条用户消息或助手回复。
type MessagePayload struct {
	Text         string `json:"text"`
	Mode         string `json:"mode,omitempty"`
	PendingField string `json:"pending_field,omitempty"`
}

// OrderSubmittedPayload 记录一次委托提交。
type OrderSubmittedPayload struct {
	OrderID string `json:"order_id"`
	Report  string `json:"report"`
}

// OrderStatusPayload 记录一次委托状态查询结果。
type OrderStatusPayload struct {
	Status broker.OrderStatus `json:"status"`
}

// ErrorPayload 记录异常上下文。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
