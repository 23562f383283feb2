package broker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoBrokerageAccount 表示账户列表中不存在 BROKERAGE 类型账户。
var ErrNoBrokerageAccount = errors.New("broker: 未找到 BROKERAGE 账户")

// APIError 携带券商接口的非 2xx 响应，原始响应体保留用于诊断。
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

// Error 实现 error 接口。
func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "(empty body)"
	}
	return fmt.Sprintf("broker: %s 请求失败 (HTTP %d): %s", e.Op, e.StatusCode, body)
}

// AsAPIError 判断错误是否为券商接口错误。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
