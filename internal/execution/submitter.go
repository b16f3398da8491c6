package execution

import (
	"context"
	"time"

	"go.uber.org/zap"

	"futures-bot/internal/exchange"
	"futures-bot/internal/validation"
)

// Submitter 包装网关调用并统一归类错误，所有策略共用，不做重试。
type Submitter struct {
	gateway  exchange.Gateway
	logger   *zap.Logger
	recorder Recorder
}

// NewSubmitter 创建提交器。
func NewSubmitter(gateway exchange.Gateway, logger *zap.Logger, recorder Recorder) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder()
	}
	return &Submitter{
		gateway:  gateway,
		logger:   logger,
		recorder: recorder,
	}
}

// Submit 提交单个委托，失败时返回 ExchangeRejection 或 NetworkError。
func (s *Submitter) Submit(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return exchange.OrderResponse{}, &validation.Error{Field: "order", Reason: err.Error()}
	}

	s.logger.Info("发送下单请求", requestFields(req)...)

	start := time.Now()
	resp, err := s.gateway.SubmitOrder(ctx, req)
	latency := time.Since(start)
	if err != nil {
		classified := exchange.Classify("create_order", err)
		s.logger.Error("下单请求失败", append(requestFields(req),
			zap.Duration("latency", latency),
			zap.Error(classified),
		)...)
		s.recorder.RecordError(context.WithoutCancel(ctx), "下单请求失败", classified, map[string]interface{}{
			"symbol":          req.Symbol,
			"side":            string(req.Side),
			"type":            string(req.Type),
			"quantity":        req.Quantity.String(),
			"client_order_id": req.ClientOrderID,
		})
		return exchange.OrderResponse{}, classified
	}

	s.logger.Info("收到下单回报",
		zap.String("order_id", resp.OrderID),
		zap.String("symbol", resp.Symbol),
		zap.String("status", string(resp.Status)),
		zap.String("executed_qty", resp.ExecutedQty),
		zap.Duration("latency", latency),
	)
	s.logger.Debug("下单回报详情", zap.Any("response", resp))

	return resp, nil
}

func requestFields(req exchange.OrderRequest) []zap.Field {
	fields := []zap.Field{
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("type", string(req.Type)),
		zap.Stringer("quantity", req.Quantity),
	}
	if req.Price != nil {
		fields = append(fields, zap.Stringer("price", *req.Price))
	}
	if req.StopPrice != nil {
		fields = append(fields, zap.Stringer("stop_price", *req.StopPrice))
	}
	if req.TimeInForce != "" {
		fields = append(fields, zap.String("time_in_force", string(req.TimeInForce)))
	}
	if req.ClientOrderID != "" {
		fields = append(fields, zap.String("client_order_id", req.ClientOrderID))
	}
	return fields
}
