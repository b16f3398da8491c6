package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"futures-bot/internal/exchange"
)

// QuantityScale 为分段数量保留的小数位。
const QuantityScale int32 = 8

// Plan 描述一次 TWAP 执行，运行期间不可变。
type Plan struct {
	Symbol        string
	Side          exchange.Side
	TotalQuantity decimal.Decimal
	Chunks        int
	Interval      time.Duration
}

// NewPlan 根据已校验的参数创建计划。
func NewPlan(symbol string, side exchange.Side, total decimal.Decimal, chunks, intervalSeconds int) Plan {
	return Plan{
		Symbol:        symbol,
		Side:          side,
		TotalQuantity: total,
		Chunks:        chunks,
		Interval:      time.Duration(intervalSeconds) * time.Second,
	}
}

// ChunkQuantity 平均拆分总数量并向零截断，分段合计不会超过总数量，余数不做补偿。
func (p Plan) ChunkQuantity() decimal.Decimal {
	if p.Chunks <= 0 {
		return decimal.Zero
	}
	quotient, _ := p.TotalQuantity.QuoRem(decimal.NewFromInt(int64(p.Chunks)), QuantityScale)
	return quotient
}

// EstimatedDuration 为最短执行时长，最后一段之后不再等待。
func (p Plan) EstimatedDuration() time.Duration {
	if p.Chunks <= 1 {
		return 0
	}
	return time.Duration(p.Chunks-1) * p.Interval
}

// Validate 校验计划的基本约束。
func (p Plan) Validate() error {
	if p.Symbol == "" {
		return errors.New("execution: symbol 不能为空")
	}
	if p.Side != exchange.SideBuy && p.Side != exchange.SideSell {
		return fmt.Errorf("execution: 不支持的方向 %q", p.Side)
	}
	if !p.TotalQuantity.IsPositive() {
		return errors.New("execution: 总数量必须为正")
	}
	if p.Chunks <= 0 {
		return errors.New("execution: 分段数必须大于0")
	}
	if p.Interval < 0 {
		return errors.New("execution: 间隔不能为负")
	}
	return nil
}

// ChunkOutcome 为单个分段的结果，Response 与 Err 二者恰有其一。
type ChunkOutcome struct {
	Index         int
	Quantity      decimal.Decimal
	ClientOrderID string
	Response      *exchange.OrderResponse
	Err           error
	SubmittedAt   time.Time
}

// Succeeded 判断分段是否拿到了交易所回报。
func (o ChunkOutcome) Succeeded() bool {
	return o.Err == nil && o.Response != nil
}

// Report 为一次 TWAP 运行的完整结果。
type Report struct {
	RunID       string
	Plan        Plan
	Outcomes    []ChunkOutcome
	Summary     Summary
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
}

// Elapsed 返回实际耗时。
func (r Report) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
