package execution

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

var hundred = decimal.NewFromInt(100)

// Summary 为 TWAP 分段结果的汇总。
type Summary struct {
	TotalChunks            int
	SuccessfulChunks       int
	FailedChunks           int
	TotalQuantityRequested decimal.Decimal
	TotalQuantityFilled    decimal.Decimal
	FillRatePercent        decimal.Decimal
	AveragePrice           decimal.Decimal

	errs error
}

// Err 合并所有分段错误，没有失败时返回 nil。
func (s Summary) Err() error {
	return s.errs
}

// Summarize 根据分段结果计算成功数、成交数量与成交率。
// 只统计状态为 FILLED 的分段；无法解析的成交数量按 0 处理，总数量为 0 时成交率为 0。
func Summarize(outcomes []ChunkOutcome, totalQuantity decimal.Decimal) Summary {
	summary := Summary{
		TotalChunks:            len(outcomes),
		TotalQuantityRequested: totalQuantity,
		TotalQuantityFilled:    decimal.Zero,
		FillRatePercent:        decimal.Zero,
		AveragePrice:           decimal.Zero,
	}

	notional := decimal.Zero
	pricedQty := decimal.Zero

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			summary.FailedChunks++
			summary.errs = multierr.Append(summary.errs, fmt.Errorf("chunk %d: %w", outcome.Index, outcome.Err))
			continue
		}
		if outcome.Response == nil {
			continue
		}

		resp := outcome.Response
		if !resp.Filled() {
			continue
		}
		summary.SuccessfulChunks++

		executed := parseOrZero(resp.ExecutedQty)
		summary.TotalQuantityFilled = summary.TotalQuantityFilled.Add(executed)

		if avg := parseOrZero(resp.AvgPrice); avg.IsPositive() && executed.IsPositive() {
			notional = notional.Add(avg.Mul(executed))
			pricedQty = pricedQty.Add(executed)
		}
	}

	if totalQuantity.IsPositive() {
		summary.FillRatePercent = summary.TotalQuantityFilled.Div(totalQuantity).Mul(hundred)
	}
	if pricedQty.IsPositive() {
		summary.AveragePrice = notional.DivRound(pricedQty, QuantityScale)
	}

	return summary
}

func parseOrZero(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return value
}
