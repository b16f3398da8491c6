package exchange

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperGateway 在本地模拟成交：市价单立即全部成交，限价与止损限价单挂单为 NEW。
type PaperGateway struct {
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	nextID     int64
	orderCount int
	filledQty  decimal.Decimal
}

// PaperStats 为模拟账户的累计统计。
type PaperStats struct {
	Orders    int
	FilledQty decimal.Decimal
}

// NewPaperGateway 创建模拟网关。
func NewPaperGateway(logger *zap.Logger) *PaperGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperGateway{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		nextID: 1_000_000,
	}
}

// SubmitOrder 模拟提交委托。
func (p *PaperGateway) SubmitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return OrderResponse{}, ctxErr
	}
	if err := req.Validate(); err != nil {
		return OrderResponse{}, &ExchangeRejection{Code: "-1102", Message: err.Error()}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	p.orderCount++

	resp := OrderResponse{
		OrderID:       strconv.FormatInt(p.nextID, 10),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		OrigQty:       req.Quantity.String(),
		Status:        StatusNew,
		ExecutedQty:   "0",
		AvgPrice:      "0",
		Timestamp:     p.now(),
	}

	if req.Type == OrderTypeMarket {
		resp.Status = StatusFilled
		resp.ExecutedQty = req.Quantity.String()
		p.filledQty = p.filledQty.Add(req.Quantity)
	} else if req.Price != nil {
		price := req.Price.String()
		resp.Price = &price
	}

	p.logger.Debug("模拟成交",
		zap.String("order_id", resp.OrderID),
		zap.String("symbol", resp.Symbol),
		zap.String("side", string(resp.Side)),
		zap.String("type", string(resp.Type)),
		zap.String("status", string(resp.Status)),
	)

	return resp, nil
}

// Stats 返回累计下单次数与成交数量。
func (p *PaperGateway) Stats() PaperStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PaperStats{Orders: p.orderCount, FilledQty: p.filledQty}
}
