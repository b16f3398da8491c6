package execution

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-bot/internal/exchange"
)

// OrderOption 调整单次下单的可选字段。
type OrderOption func(*exchange.OrderRequest)

// WithClientOrderID 指定客户端订单号。
func WithClientOrderID(id string) OrderOption {
	return func(req *exchange.OrderRequest) {
		*req = req.WithClientOrderID(id)
	}
}

// Executor 实现市价、限价、止损限价三种单次下单策略。
type Executor struct {
	submitter *Submitter
	logger    *zap.Logger
	recorder  Recorder
}

// NewExecutor 创建执行器。
func NewExecutor(submitter *Submitter, logger *zap.Logger, recorder Recorder) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &Executor{
		submitter: submitter,
		logger:    logger,
		recorder:  recorder,
	}
}

// PlaceMarket 提交市价单。
func (e *Executor) PlaceMarket(ctx context.Context, symbol string, side exchange.Side, qty decimal.Decimal, opts ...OrderOption) (exchange.OrderResponse, error) {
	return e.place(ctx, "MARKET", exchange.NewMarketRequest(symbol, side, qty), opts)
}

// PlaceLimit 提交 GTC 限价单。
func (e *Executor) PlaceLimit(ctx context.Context, symbol string, side exchange.Side, qty, price decimal.Decimal, opts ...OrderOption) (exchange.OrderResponse, error) {
	return e.place(ctx, "LIMIT", exchange.NewLimitRequest(symbol, side, qty, price), opts)
}

// PlaceStopLimit 提交 GTC 止损限价单。
func (e *Executor) PlaceStopLimit(ctx context.Context, symbol string, side exchange.Side, qty, price, stopPrice decimal.Decimal, opts ...OrderOption) (exchange.OrderResponse, error) {
	return e.place(ctx, "STOP_LIMIT", exchange.NewStopLimitRequest(symbol, side, qty, price, stopPrice), opts)
}

func (e *Executor) place(ctx context.Context, strategy string, req exchange.OrderRequest, opts []OrderOption) (exchange.OrderResponse, error) {
	for _, opt := range opts {
		opt(&req)
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = newClientOrderID()
	}

	resp, err := e.submitter.Submit(ctx, req)
	if err != nil {
		return exchange.OrderResponse{}, err
	}

	e.logger.Info("下单成功",
		zap.String("strategy", strategy),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Stringer("quantity", req.Quantity),
		zap.String("order_id", resp.OrderID),
	)
	e.recorder.RecordOrder(context.WithoutCancel(ctx), strategy, req, resp)

	return resp, nil
}

// newClientOrderID 生成不超过交易所 36 位限制的订单号。
func newClientOrderID() string {
	return "bot-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
