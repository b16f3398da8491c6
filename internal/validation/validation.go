// Package validation 将命令行原始字符串转换为带范围校验的交易参数。
package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-bot/internal/config"
	"futures-bot/internal/exchange"
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{6,12}$`)

// maxExponent 限制十进制指数范围，超出的输入直接拒绝。
const maxExponent = 32

// Limits 为校验使用的策略边界。
type Limits struct {
	MinQuantity        decimal.Decimal
	MaxQuantity        decimal.Decimal
	PriceScale         int32
	MaxChunks          int
	MaxIntervalSeconds int
}

// DefaultLimits 返回默认边界：数量 [0.001, 1000]，价格最多 8 位小数，TWAP 最多 50 段、间隔不超过 300 秒。
func DefaultLimits() Limits {
	return Limits{
		MinQuantity:        decimal.RequireFromString("0.001"),
		MaxQuantity:        decimal.NewFromInt(1000),
		PriceScale:         8,
		MaxChunks:          50,
		MaxIntervalSeconds: 300,
	}
}

// LimitsFromConfig 将配置转换为 Limits。
func LimitsFromConfig(cfg config.LimitsConfig) Limits {
	return Limits{
		MinQuantity:        decimal.NewFromFloat(cfg.MinQuantity),
		MaxQuantity:        decimal.NewFromFloat(cfg.MaxQuantity),
		PriceScale:         int32(cfg.PriceScale),
		MaxChunks:          cfg.MaxChunks,
		MaxIntervalSeconds: cfg.MaxIntervalSeconds,
	}
}

// Validator 持有边界与日志，校验函数本身无副作用。
type Validator struct {
	limits Limits
	logger *zap.Logger
}

// New 创建校验器。
func New(limits Limits, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{limits: limits, logger: logger}
}

// Symbol 校验交易对，返回大写形式。
func (v *Validator) Symbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if symbol == "" {
		return "", fail("symbol", raw, "不能为空")
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fail("symbol", symbol, "格式无效，应为 6-12 位大写字母，例如 BTCUSDT")
	}

	v.logger.Debug("交易对校验通过", zap.String("symbol", symbol))
	return symbol, nil
}

// Side 校验方向，仅允许 BUY 或 SELL。
func (v *Validator) Side(raw string) (exchange.Side, error) {
	side := exchange.Side(strings.ToUpper(strings.TrimSpace(raw)))
	if side == "" {
		return "", fail("side", raw, "不能为空")
	}
	if side != exchange.SideBuy && side != exchange.SideSell {
		return "", fail("side", string(side), "可选值: %s, %s", exchange.SideBuy, exchange.SideSell)
	}

	v.logger.Debug("方向校验通过", zap.String("side", string(side)))
	return side, nil
}

// Quantity 校验下单数量。
func (v *Validator) Quantity(raw string) (decimal.Decimal, error) {
	return v.quantity("quantity", raw)
}

// TotalQuantity 校验 TWAP 总数量，规则与 Quantity 相同。
func (v *Validator) TotalQuantity(raw string) (decimal.Decimal, error) {
	return v.quantity("total_quantity", raw)
}

func (v *Validator) quantity(field, raw string) (decimal.Decimal, error) {
	value, err := parseDecimal(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !value.IsPositive() {
		return decimal.Zero, fail(field, raw, "必须为正数")
	}
	if value.LessThan(v.limits.MinQuantity) {
		return decimal.Zero, fail(field, raw, "低于最小数量 %s", v.limits.MinQuantity)
	}
	if value.GreaterThan(v.limits.MaxQuantity) {
		return decimal.Zero, fail(field, raw, "超过最大数量 %s", v.limits.MaxQuantity)
	}

	v.logger.Debug("数量校验通过", zap.String("field", field), zap.Stringer("quantity", value))
	return value, nil
}

// Price 校验限价。
func (v *Validator) Price(raw string) (decimal.Decimal, error) {
	return v.price("price", raw)
}

// StopPrice 校验触发价，规则与 Price 相同。
func (v *Validator) StopPrice(raw string) (decimal.Decimal, error) {
	return v.price("stop_price", raw)
}

// price 用十进制截断比较检查小数位，避免二进制浮点误差。
func (v *Validator) price(field, raw string) (decimal.Decimal, error) {
	value, err := parseDecimal(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !value.IsPositive() {
		return decimal.Zero, fail(field, raw, "必须为正数")
	}
	if !value.Equal(value.Truncate(v.limits.PriceScale)) {
		return decimal.Zero, fail(field, raw, "小数位过多，最多 %d 位", v.limits.PriceScale)
	}

	v.logger.Debug("价格校验通过", zap.String("field", field), zap.Stringer("price", value))
	return value, nil
}

// PositiveInt 校验正整数。
func (v *Validator) PositiveInt(raw, field string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fail(field, raw, "不能为空")
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fail(field, raw, "不是有效的整数")
	}
	if value <= 0 {
		return 0, fail(field, raw, "必须为正整数")
	}

	v.logger.Debug("整数校验通过", zap.String("field", field), zap.Int("value", value))
	return value, nil
}

// Chunks 校验 TWAP 分段数。
func (v *Validator) Chunks(raw string) (int, error) {
	value, err := v.PositiveInt(raw, "chunks")
	if err != nil {
		return 0, err
	}
	if v.limits.MaxChunks > 0 && value > v.limits.MaxChunks {
		return 0, fail("chunks", raw, "TWAP 最多允许 %d 段", v.limits.MaxChunks)
	}
	return value, nil
}

// IntervalSeconds 校验 TWAP 分段间隔秒数。
func (v *Validator) IntervalSeconds(raw string) (int, error) {
	value, err := v.PositiveInt(raw, "interval_seconds")
	if err != nil {
		return 0, err
	}
	if v.limits.MaxIntervalSeconds > 0 && value > v.limits.MaxIntervalSeconds {
		return 0, fail("interval_seconds", raw, "间隔最多允许 %d 秒", v.limits.MaxIntervalSeconds)
	}
	return value, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, fail(field, raw, "不能为空")
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fail(field, raw, "不是有效的数字")
	}
	// 指数过大时后续比较与截断需要构造巨大的整数
	if exp := value.Exponent(); exp > maxExponent || exp < -maxExponent {
		return decimal.Zero, fail(field, raw, "数值精度超出范围")
	}
	return value, nil
}
