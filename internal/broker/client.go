package broker

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"broker-assistant/internal/config"
	"broker-assistant/internal/intent"
)

// tokenExpiryMargin 为令牌提前续期的安全边际。
const tokenExpiryMargin = time.Minute

var exactTickerPattern = regexp.MustCompile(`^[A-Za-z.\-]{1,8}$`)

// Client 封装券商 REST 接口：令牌签发、账户解析、标的目录、
// 行情、下单前试算、委托提交与状态查询。
type Client struct {
	cfg    config.BrokerConfig
	logger *zap.Logger
	http   *resty.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	accountID   string
}

// NewClient 构造券商客户端。
func NewClient(cfg config.BrokerConfig, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("broker: base_url 不能为空")
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("broker: api_secret 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &Client{
		cfg:       cfg,
		logger:    logger,
		http:      httpClient,
		accountID: cfg.AccountID,
	}, nil
}

// accessToken 返回缓存的访问令牌，临近过期时重新签发。
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.token, nil
	}

	validity := c.cfg.TokenValidity
	if validity < time.Minute {
		validity = 15 * time.Minute
	}

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{
			"validityInMinutes": int(validity.Minutes()),
			"secret":            c.cfg.APISecret,
		}).
		SetResult(&result).
		Post("/userapiauthservice/personal/access-tokens")
	if err != nil {
		return "", fmt.Errorf("broker: 获取访问令牌失败: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{Op: "access-tokens", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("broker: 访问令牌响应为空")
	}

	c.token = result.AccessToken
	c.tokenExpiry = time.Now().Add(validity)
	c.logger.Info("券商访问令牌已更新", zap.Time("expiry", c.tokenExpiry))

	return c.token, nil
}

// AccountID 返回经纪账户ID；未配置时取账户列表中首个 BROKERAGE 账户。
func (c *Client) AccountID(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.accountID
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	var result struct {
		Accounts []struct {
			AccountID   string `json:"accountId"`
			AccountType string `json:"accountType"`
		} `json:"accounts"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&result).
		Get("/userapigateway/trading/account")
	if err != nil {
		return "", fmt.Errorf("broker: 获取账户列表失败: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{Op: "account", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	for _, acct := range result.Accounts {
		if acct.AccountType == "BROKERAGE" {
			c.mu.Lock()
			c.accountID = acct.AccountID
			c.mu.Unlock()
			c.logger.Info("已解析经纪账户", zap.String("account_id", acct.AccountID))
			return acct.AccountID, nil
		}
	}

	return "", ErrNoBrokerageAccount
}

// ListInstruments 分页拉取完整标的目录。
func (c *Client) ListInstruments(ctx context.Context) ([]Instrument, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	pageSize := c.cfg.InstrumentPageSize
	if pageSize <= 0 {
		pageSize = 500
	}

	var (
		out       []Instrument
		pageToken string
	)
	for {
		var result struct {
			Instruments   []Instrument `json:"instruments"`
			NextPageToken string       `json:"nextPageToken"`
		}

		req := c.http.R().
			SetContext(ctx).
			SetAuthToken(token).
			SetQueryParam("pageSize", fmt.Sprintf("%d", pageSize)).
			SetResult(&result)
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}

		resp, err := req.Get("/userapigateway/instruments")
		if err != nil {
			return nil, fmt.Errorf("broker: 拉取标的目录失败: %w", err)
		}
		if resp.IsError() {
			return nil, &APIError{Op: "instruments", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
		}

		out = append(out, result.Instruments...)
		if result.NextPageToken == "" {
			return out, nil
		}
		pageToken = result.NextPageToken
	}
}

// ResolveSymbol 将代码或公司名解析为可交易标的。精确大写代码直接采信；
// 否则在 EQUITY 目录中先按代码、再按名称子串匹配。未命中返回空串且无错误。
func (c *Client) ResolveSymbol(ctx context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", nil
	}

	if exactTickerPattern.MatchString(q) && q == strings.ToUpper(q) {
		return q, nil
	}

	instruments, err := c.ListInstruments(ctx)
	if err != nil {
		return "", err
	}

	lower := strings.ToLower(q)
	for _, it := range instruments {
		if it.Type != "EQUITY" {
			continue
		}
		if strings.EqualFold(it.Symbol, q) {
			return it.Symbol, nil
		}
		if strings.Contains(strings.ToLower(it.Name), lower) {
			return it.Symbol, nil
		}
	}

	return "", nil
}

// GetQuote 拉取单标的行情，无行情时返回 nil。
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	accountID, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	var result struct {
		Quotes []Quote `json:"quotes"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]interface{}{
			"instruments": []map[string]string{
				{"symbol": strings.ToUpper(symbol), "type": "EQUITY"},
			},
		}).
		SetResult(&result).
		Post(fmt.Sprintf("/userapigateway/marketdata/%s/quotes", accountID))
	if err != nil {
		return nil, fmt.Errorf("broker: 拉取行情失败: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{Op: "quotes", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	if len(result.Quotes) == 0 {
		return nil, nil
	}

	quote := result.Quotes[0]
	if quote.Symbol == "" {
		quote.Symbol = strings.ToUpper(symbol)
	}
	return &quote, nil
}

// Preflight 对委托载荷做下单前试算。券商拒绝时返回 *APIError，
// 响应体保留供用户诊断。
func (c *Client) Preflight(ctx context.Context, body intent.OrderBody) (PreflightResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return PreflightResult{}, err
	}
	accountID, err := c.AccountID(ctx)
	if err != nil {
		return PreflightResult{}, err
	}

	var result PreflightResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/userapigateway/trading/%s/preflight/single-leg", accountID))
	if err != nil {
		return PreflightResult{}, fmt.Errorf("broker: 下单前试算失败: %w", err)
	}
	if resp.IsError() {
		return PreflightResult{}, &APIError{Op: "preflight", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	return result, nil
}

// PlaceOrder 提交委托。orderId 由调用方在构建载荷时生成。
func (c *Client) PlaceOrder(ctx context.Context, body intent.OrderBody) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	accountID, err := c.AccountID(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		Post(fmt.Sprintf("/userapigateway/trading/%s/order", accountID))
	if err != nil {
		return fmt.Errorf("broker: 提交委托失败: %w", err)
	}
	if resp.IsError() {
		return &APIError{Op: "place-order", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	c.logger.Info("委托已提交",
		zap.String("order_id", body.OrderID),
		zap.String("symbol", body.Instrument.Symbol),
		zap.String("side", string(body.OrderSide)),
		zap.String("type", string(body.OrderType)),
	)

	return nil
}

// GetOrder 查询委托状态，404 视为"暂无状态"返回 nil。
func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderStatus, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	accountID, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	var result OrderStatus
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&result).
		Get(fmt.Sprintf("/userapigateway/trading/%s/order/%s", accountID, orderID))
	if err != nil {
		return nil, fmt.Errorf("broker: 查询委托状态失败: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, &APIError{Op: "order-status", StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	if result.OrderID == "" {
		result.OrderID = orderID
	}
	return &result, nil
}
