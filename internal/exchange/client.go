package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"futures-bot/internal/config"
)

type orderClient interface {
	CreateOrder(symbol string, typeVar string, side string, amount float64, options ...ccxt.CreateOrderOptions) (ccxt.Order, error)
}

// Client 基于 ccxt 的 Binance USDⓈ-M 下单网关，不做重试。
type Client struct {
	cfg    config.ExchangeConfig
	logger *zap.Logger
	orders orderClient

	loadMarkets   func() error
	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewClient 根据不可变的交易所配置构造网关，凭证缺失时返回 InitializationError。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) (client *Client, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.HasCredentials() {
		return nil, &InitializationError{Reason: "未配置 BINANCE_API_KEY / BINANCE_API_SECRET"}
	}

	defer func() {
		if r := recover(); r != nil {
			client = nil
			err = &InitializationError{Reason: "创建 ccxt 客户端失败", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	userConfig := map[string]interface{}{
		"apiKey":          cfg.APIKey,
		"secret":          cfg.APISecret,
		"enableRateLimit": true,
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		},
	}
	if cfg.BaseURL != "" {
		endpoints := futuresEndpoints(cfg.BaseURL)
		userConfig["urls"] = map[string]interface{}{
			"api":  endpoints,
			"test": endpoints,
		}
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.Testnet {
		ex.SetSandboxMode(true)
	}

	logger.Info("交易网关已初始化",
		zap.String("exchange", cfg.Name),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("testnet", cfg.Testnet),
	)

	return &Client{
		cfg:    cfg,
		logger: logger,
		orders: ex,
		loadMarkets: func() error {
			_, loadErr := ex.LoadMarkets()
			return loadErr
		},
	}, nil
}

func newClientWithOrders(cfg config.ExchangeConfig, orders orderClient, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:         cfg,
		logger:      logger,
		orders:      orders,
		loadMarkets: func() error { return nil },
	}
}

// Config 返回构造时的配置副本。
func (c *Client) Config() config.ExchangeConfig {
	return c.cfg
}

// Prepare 预先加载市场元数据，后续下单不再触发该请求。
func (c *Client) Prepare(ctx context.Context) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}

	start := time.Now()
	if err := c.loadMarkets(); err != nil {
		return Classify("load_markets", err)
	}

	c.marketsLoaded = true
	c.logger.Info("已完成市场元数据加载", zap.Duration("latency", time.Since(start)))
	return nil
}

// SubmitOrder 提交单个委托，原始错误交由调用方归类。
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (resp OrderResponse, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return OrderResponse{}, ctxErr
	}

	defer func() {
		if r := recover(); r != nil {
			resp = OrderResponse{}
			err = fmt.Errorf("panic during order submission: %v", r)
		}
	}()

	var opts []ccxt.CreateOrderOptions
	if req.Price != nil {
		opts = append(opts, ccxt.WithCreateOrderPrice(req.Price.InexactFloat64()))
	}
	if params := orderParams(req); len(params) > 0 {
		opts = append(opts, ccxt.WithCreateOrderParams(params))
	}

	order, err := c.orders.CreateOrder(
		req.Symbol,
		ccxtOrderType(req.Type),
		strings.ToLower(string(req.Side)),
		req.Quantity.InexactFloat64(),
		opts...,
	)
	if err != nil {
		return OrderResponse{}, err
	}

	return toResponse(order, req), nil
}

func orderParams(req OrderRequest) map[string]interface{} {
	params := make(map[string]interface{})
	if req.ClientOrderID != "" {
		params["newClientOrderId"] = req.ClientOrderID
	}
	if req.TimeInForce != "" {
		params["timeInForce"] = string(req.TimeInForce)
	}
	if req.StopPrice != nil {
		params["stopPrice"] = req.StopPrice.InexactFloat64()
	}
	return params
}

func ccxtOrderType(t OrderType) string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	default:
		return string(t)
	}
}

func futuresEndpoints(baseURL string) map[string]interface{} {
	base := strings.TrimRight(baseURL, "/")
	return map[string]interface{}{
		"fapiPublic":    base + "/fapi/v1",
		"fapiPublicV2":  base + "/fapi/v2",
		"fapiPublicV3":  base + "/fapi/v3",
		"fapiPrivate":   base + "/fapi/v1",
		"fapiPrivateV2": base + "/fapi/v2",
		"fapiPrivateV3": base + "/fapi/v3",
		"fapiData":      base + "/futures/data",
	}
}

// toResponse 优先使用交易所原始字段，缺失时回退到 ccxt 统一字段。
func toResponse(order ccxt.Order, req OrderRequest) OrderResponse {
	info := order.Info

	resp := OrderResponse{
		OrderID:       firstNonEmpty(infoString(info, "orderId"), deref(order.Id)),
		ClientOrderID: firstNonEmpty(infoString(info, "clientOrderId"), deref(order.ClientOrderId), req.ClientOrderID),
		Symbol:        firstNonEmpty(infoString(info, "symbol"), req.Symbol),
		Side:          Side(strings.ToUpper(firstNonEmpty(infoString(info, "side"), deref(order.Side), string(req.Side)))),
		Type:          OrderType(strings.ToUpper(firstNonEmpty(infoString(info, "type"), string(req.Type)))),
		OrigQty:       firstNonEmpty(infoString(info, "origQty"), formatFloat(order.Amount), req.Quantity.String()),
		AvgPrice:      firstNonEmpty(infoString(info, "avgPrice"), formatFloat(order.Average)),
		Status:        statusOf(infoString(info, "status"), deref(order.Status)),
		ExecutedQty:   firstNonEmpty(infoString(info, "executedQty"), formatFloat(order.Filled)),
		Timestamp:     timestampOf(info, order.Timestamp),
	}

	if req.Type != OrderTypeMarket {
		if price := firstNonEmpty(infoString(info, "price"), formatFloat(order.Price)); price != "" {
			resp.Price = &price
		}
	}

	return resp
}

func statusOf(raw, unified string) OrderStatus {
	if raw != "" {
		return OrderStatus(strings.ToUpper(raw))
	}
	switch strings.ToLower(unified) {
	case "closed":
		return StatusFilled
	case "open":
		return StatusNew
	case "canceled", "cancelled":
		return StatusCanceled
	case "rejected":
		return StatusRejected
	case "expired":
		return StatusExpired
	default:
		return OrderStatus(strings.ToUpper(unified))
	}
}

func timestampOf(info map[string]interface{}, unified *int64) time.Time {
	for _, key := range []string{"updateTime", "time"} {
		if raw := infoString(info, key); raw != "" {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
				return time.UnixMilli(ms).UTC()
			}
		}
	}
	if unified != nil && *unified > 0 {
		return time.UnixMilli(*unified).UTC()
	}
	return time.Now().UTC()
}

func infoString(info map[string]interface{}, key string) string {
	if info == nil {
		return ""
	}
	switch v := info[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
