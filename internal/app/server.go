package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"broker-assistant/internal/config"
	"broker-assistant/internal/dialogue"
	"broker-assistant/internal/transcript"
)

// Server 暴露对话助手的 HTTP 接口。除 /auth 与 /health 外，
// 所有端点都要求口令换取的 Bearer 令牌。
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	engine     *dialogue.Engine
	broker     dialogue.Broker
	transcript *transcript.Service
	sessions   *sessionManager
}

// NewServer 创建 HTTP 服务。
func NewServer(cfg *config.Config, logger *zap.Logger, engine *dialogue.Engine, brokerClient dialogue.Broker, transcriptSvc *transcript.Service) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:        cfg,
		logger:     logger,
		engine:     engine,
		broker:     brokerClient,
		transcript: transcriptSvc,
		sessions:   newSessionManager(),
	}
}

// Router 组装路由。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/auth", s.handleAuth)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireToken)
		protected.Post("/chat", s.handleChat)
		protected.Get("/quotes/{symbol}", s.handleQuote)
		protected.Get("/quotes/{symbol}/history", s.handleQuoteHistory)
		protected.Get("/orders/{orderID}", s.handleOrderStatus)
		protected.Get("/events", s.handleEvents)
		protected.Get("/diagnostics", s.handleDiagnostics)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password != s.cfg.Server.Password {
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, expiresAt, err := s.signToken()
	if err != nil {
		s.logger.Error("签发访问令牌失败", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"type":       "Bearer",
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess := s.sessions.getOrCreate(req.SessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ctx := r.Context()
	s.transcript.RecordUserMessage(ctx, sess.ID, req.Message)

	reply := s.engine.HandleMessage(ctx, sess.state, req.Message)

	if reply.Quote != nil {
		if last := reply.Quote.LastTraded(); last != nil {
			sess.recordQuote(reply.Quote.Symbol, *last, s.cfg.Dialogue.QuoteHistoryLimit)
		}
	}
	if reply.Mode == dialogue.ModeSubmitted {
		s.transcript.RecordOrderSubmitted(ctx, sess.ID, reply.OrderID, reply.Text)
	}
	if reply.Err != nil {
		s.transcript.RecordError(ctx, sess.ID, reply.Text, reply.Err, nil)
	}
	s.transcript.RecordAssistantReply(ctx, sess.ID, reply.Text, string(reply.Mode), string(reply.PendingField))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    sess.ID,
		"reply":         reply.Text,
		"state":         reply.Mode,
		"pending_field": reply.PendingField,
		"order_id":      reply.OrderID,
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "symbol")
	ctx := r.Context()

	symbol, err := s.broker.ResolveSymbol(ctx, query)
	if err != nil {
		s.logger.Warn("标的解析失败", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusBadGateway, "symbol resolution failed")
		return
	}
	if symbol == "" {
		writeError(w, http.StatusNotFound, "no tradable symbol found for "+query)
		return
	}

	quote, err := s.broker.GetQuote(ctx, symbol)
	if err != nil {
		s.logger.Warn("拉取行情失败", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusBadGateway, "quote lookup failed")
		return
	}
	if quote == nil {
		writeError(w, http.StatusNotFound, "no quote returned for "+symbol)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleQuoteHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	sessionID := r.URL.Query().Get("session")

	sess, ok := s.sessions.get(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	sess.mu.Lock()
	prints := sess.quotePrints(symbol)
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": strings.ToUpper(symbol),
		"prints": prints,
	})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	ctx := r.Context()

	// "last" 取会话最近一次提交的委托，免去客户端自行记录ID。
	if orderID == "last" {
		sess, ok := s.sessions.get(r.URL.Query().Get("session"))
		if !ok {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		sess.mu.Lock()
		orderID = sess.state.LastOrderID
		sess.mu.Unlock()
		if orderID == "" {
			writeError(w, http.StatusNotFound, "no order submitted in this session")
			return
		}
	}

	status, err := s.broker.GetOrder(ctx, orderID)
	if err != nil {
		s.logger.Warn("查询委托状态失败", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "order status lookup failed")
		return
	}
	if status == nil {
		writeError(w, http.StatusNotFound, "no status available yet")
		return
	}

	if sessionID := r.URL.Query().Get("session"); sessionID != "" {
		s.transcript.RecordOrderStatus(ctx, sessionID, *status)
	}

	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 200
	if qs := q.Get("limit"); qs != "" {
		if v, err := strconv.Atoi(qs); err == nil && v > 0 {
			if v > 1000 {
				v = 1000
			}
			limit = v
		}
	}

	eventType := transcript.EventType("")
	if typ := strings.TrimSpace(q.Get("type")); typ != "" {
		eventType = transcript.EventType(strings.ToLower(typ))
	}

	events, err := s.transcript.ListEvents(r.Context(), eventType, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"api_keys_present": map[string]bool{
			"broker_api_secret": s.cfg.Broker.APISecret != "",
			"openai_api_key":    s.cfg.OpenAI.APIKey != "",
		},
		"broker_base_url": s.cfg.Broker.BaseURL,
		"account_id":      s.cfg.Broker.AccountID,
		"model":           s.cfg.OpenAI.Model,
	})
}

func (s *Server) signToken() (string, time.Time, error) {
	expiresAt := time.Now().UTC().Add(s.cfg.Server.TokenTTL)
	claims := jwt.MapClaims{
		"sub": "assistant",
		"exp": expiresAt.Unix(),
		"iat": time.Now().UTC().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Server.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.Server.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
