package intent

import (
	"errors"
	"fmt"
)

// ErrorCode 区分字段校验失败的类别。
type ErrorCode string

const (
	CodeUnresolvedSymbol        ErrorCode = "UnresolvedSymbol"
	CodeInvalidSide             ErrorCode = "InvalidSide"
	CodeInvalidOrderType        ErrorCode = "InvalidOrderType"
	CodeInvalidPrice            ErrorCode = "InvalidPrice"
	CodeInvalidQuantityOrAmount ErrorCode = "InvalidQuantityOrAmount"
	CodeInvalidTif              ErrorCode = "InvalidTif"
)

// ValidationError 表示单字段问答校验失败。校验失败不会修改意向记录，
// 引擎应使用 Message 对同一字段重新提问。
type ValidationError struct {
	Field   Field
	Code    ErrorCode
	Message string
}

// Error 实现 error 接口。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("intent: 字段 %s 校验失败 (%s): %s", e.Field, e.Code, e.Message)
}

// AsValidationError 判断错误是否为字段校验失败。
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
