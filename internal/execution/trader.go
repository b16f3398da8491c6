package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"futures-bot/internal/exchange"
)

// MarketPlacer 为 TWAP 分段所需的市价下单能力。
type MarketPlacer interface {
	PlaceMarket(ctx context.Context, symbol string, side exchange.Side, qty decimal.Decimal, opts ...OrderOption) (exchange.OrderResponse, error)
}

// Trader 抽象单次下单策略，方便切换真实或模拟下单。
type Trader interface {
	MarketPlacer
	PlaceLimit(ctx context.Context, symbol string, side exchange.Side, qty, price decimal.Decimal, opts ...OrderOption) (exchange.OrderResponse, error)
	PlaceStopLimit(ctx context.Context, symbol string, side exchange.Side, qty, price, stopPrice decimal.Decimal, opts ...OrderOption) (exchange.OrderResponse, error)
}

var _ Trader = (*Executor)(nil)
