package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

// ExchangeRejection 表示交易所在业务层面拒绝了委托，例如交易对无效或余额不足。
type ExchangeRejection struct {
	Code    string
	Message string
}

func (e *ExchangeRejection) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("交易所拒单: %s", e.Message)
	}
	return fmt.Sprintf("交易所拒单 (%s): %s", e.Code, e.Message)
}

// NetworkError 表示无法连接交易所或请求超时。
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("网络错误: %v", e.Err)
	}
	return fmt.Sprintf("网络错误 (%s): %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// InitializationError 表示凭证缺失或网关构造失败。
type InitializationError struct {
	Reason string
	Err    error
}

func (e *InitializationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("初始化失败: %s", e.Reason)
	}
	return fmt.Sprintf("初始化失败: %s: %v", e.Reason, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// Classify 将网关返回的原始错误归类为 ExchangeRejection 或 NetworkError。
// 已归类的错误与 context.Canceled 原样返回，无法识别的错误也原样返回。
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var rejection *ExchangeRejection
	var netErr *NetworkError
	if errors.As(err, &rejection) || errors.As(err, &netErr) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Op: op, Err: err}
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType,
			ccxt.OnMaintenanceErrType:
			return &NetworkError{Op: op, Err: err}
		default:
			code, msg := venueMessage(ccxtErr.Message)
			if code == "" {
				code = fmt.Sprint(ccxtErr.Type)
			}
			return &ExchangeRejection{Code: code, Message: msg}
		}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return &NetworkError{Op: op, Err: err}
	}

	return err
}

// venueMessage 解析 ccxt 消息中附带的交易所原始 JSON，例如
// `binanceusdm {"code":-2019,"msg":"Margin is insufficient."}`。
func venueMessage(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "unknown rejection"
	}

	idx := strings.Index(raw, "{")
	if idx < 0 {
		return "", raw
	}

	var body struct {
		Code json.Number `json:"code"`
		Msg  string      `json:"msg"`
	}
	if err := json.Unmarshal([]byte(raw[idx:]), &body); err != nil || body.Msg == "" {
		return "", raw
	}
	return body.Code.String(), body.Msg
}
