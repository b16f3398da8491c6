package exchange

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side 表示下单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType 表示委托类型，STOP 为止损限价单。
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// TimeInForce 表示委托有效期。
type TimeInForce string

const TimeInForceGTC TimeInForce = "GTC"

// OrderStatus 为交易所返回的订单状态。
type OrderStatus string

const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// OrderRequest 描述一次委托，只能通过 New*Request 构造，构造后不再修改。
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         *decimal.Decimal
	StopPrice     *decimal.Decimal
	TimeInForce   TimeInForce
	ClientOrderID string
}

// NewMarketRequest 构造市价单。
func NewMarketRequest(symbol string, side Side, qty decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     OrderTypeMarket,
		Quantity: qty,
	}
}

// NewLimitRequest 构造 GTC 限价单。
func NewLimitRequest(symbol string, side Side, qty, price decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        OrderTypeLimit,
		Quantity:    qty,
		Price:       &price,
		TimeInForce: TimeInForceGTC,
	}
}

// NewStopLimitRequest 构造 GTC 止损限价单。
func NewStopLimitRequest(symbol string, side Side, qty, price, stopPrice decimal.Decimal) OrderRequest {
	return OrderRequest{
		Symbol:      symbol,
		Side:        side,
		Type:        OrderTypeStop,
		Quantity:    qty,
		Price:       &price,
		StopPrice:   &stopPrice,
		TimeInForce: TimeInForceGTC,
	}
}

// WithClientOrderID 返回带自定义订单号的副本。
func (r OrderRequest) WithClientOrderID(id string) OrderRequest {
	r.ClientOrderID = id
	return r
}

// Validate 校验价格字段与委托类型是否匹配。
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return errors.New("symbol 不能为空")
	}
	if r.Side != SideBuy && r.Side != SideSell {
		return fmt.Errorf("不支持的方向 %q", r.Side)
	}
	if !r.Quantity.IsPositive() {
		return fmt.Errorf("数量必须为正: %s", r.Quantity)
	}

	switch r.Type {
	case OrderTypeMarket:
		if r.Price != nil || r.StopPrice != nil {
			return errors.New("市价单不应携带价格")
		}
	case OrderTypeLimit:
		if r.Price == nil || !r.Price.IsPositive() {
			return errors.New("限价单需要正的价格")
		}
		if r.StopPrice != nil {
			return errors.New("限价单不应携带触发价")
		}
	case OrderTypeStop:
		if r.Price == nil || !r.Price.IsPositive() {
			return errors.New("止损限价单需要正的价格")
		}
		if r.StopPrice == nil || !r.StopPrice.IsPositive() {
			return errors.New("止损限价单需要正的触发价")
		}
	default:
		return fmt.Errorf("不支持的订单类型 %q", r.Type)
	}

	return nil
}

// OrderResponse 为交易所回报，数量字段保留交易所给出的十进制字符串。
type OrderResponse struct {
	OrderID       string
	ClientOrderID string
	Symbol        string
	Side          Side
	Type          OrderType
	OrigQty       string
	Price         *string
	AvgPrice      string
	Status        OrderStatus
	ExecutedQty   string
	Timestamp     time.Time
}

// Filled 判断订单是否完全成交。
func (r OrderResponse) Filled() bool {
	return r.Status == StatusFilled
}
