package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"broker-assistant/internal/broker"
	"broker-assistant/internal/store"
)

// Service 负责持久化会话事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化会话日志服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("transcript: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS transcript_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcript_events_type ON transcript_events(event_type);
CREATE INDEX IF NOT EXISTS idx_transcript_events_session ON transcript_events(session_id);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("transcript: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("transcript: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transcript_events (session_id, event_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		event.SessionID, string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("transcript: 写入事件失败: %w", err)
	}

	return nil
}

// RecordUserMessage 记录用户消息。
func (s *Service) RecordUserMessage(ctx context.Context, sessionID, text string) {
	if err := s.Record(ctx, Event{
		Type:      EventUserMessage,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   MessagePayload{Text: text},
	}); err != nil {
		s.logger.Warn("记录用户消息失败", zap.Error(err))
	}
}

// RecordAssistantReply 记录助手回复及当时的状态机位置。
func (s *Service) RecordAssistantReply(ctx context.Context, sessionID, text, mode, pendingField string) {
	if err := s.Record(ctx, Event{
		Type:      EventAssistantReply,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   MessagePayload{Text: text, Mode: mode, PendingField: pendingField},
	}); err != nil {
		s.logger.Warn("记录助手回复失败", zap.Error(err))
	}
}

// RecordOrderSubmitted 记录委托提交。
func (s *Service) RecordOrderSubmitted(ctx context.Context, sessionID, orderID, report string) {
	if err := s.Record(ctx, Event{
		Type:      EventOrderSubmitted,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   OrderSubmittedPayload{OrderID: orderID, Report: report},
	}); err != nil {
		s.logger.Warn("记录委托提交失败", zap.Error(err))
	}
}

// RecordOrderStatus 记录委托状态。
func (s *Service) RecordOrderStatus(ctx context.Context, sessionID string, status broker.OrderStatus) {
	if err := s.Record(ctx, Event{
		Type:      EventOrderStatus,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   OrderStatusPayload{Status: status},
	}); err != nil {
		s.logger.Warn("记录委托状态失败", zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, sessionID, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Context: ctxMap,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	if recErr := s.Record(ctx, Event{
		Type:      EventError,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT session_id, event_type, payload, created_at FROM transcript_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transcript: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			session string
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&session, &typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("transcript: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			SessionID: session,
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: 读取事件失败: %w", err)
	}

	return events, nil
}
