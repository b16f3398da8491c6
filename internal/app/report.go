package app

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"futures-bot/internal/exchange"
	"futures-bot/internal/execution"
	"futures-bot/internal/journal"
)

const notAvailable = "N/A"

func printOrderIntent(w io.Writer, label string, args OrderArgs) {
	fmt.Fprintf(w, "\n提交 %s %s 订单...\n", label, args.Side)
	fmt.Fprintf(w, "   交易对: %s\n", args.Symbol)
	fmt.Fprintf(w, "   数量: %s\n", args.Quantity)
	if !args.Price.IsZero() {
		fmt.Fprintf(w, "   限价: %s\n", args.Price)
	}
	if !args.StopPrice.IsZero() {
		fmt.Fprintf(w, "   触发价: %s\n", args.StopPrice)
	}
}

func printOrderResult(w io.Writer, label string, resp exchange.OrderResponse) {
	price := "MARKET"
	if resp.Price != nil {
		price = *resp.Price
	}
	ts := notAvailable
	if !resp.Timestamp.IsZero() {
		ts = fmt.Sprintf("%d (%s)", resp.Timestamp.UnixMilli(), resp.Timestamp.UTC().Format(time.RFC3339))
	}

	fmt.Fprintf(w, "\n%s 订单提交成功\n", label)
	fmt.Fprintf(w, "   订单号: %s\n", orNA(resp.OrderID))
	fmt.Fprintf(w, "   客户端订单号: %s\n", orNA(resp.ClientOrderID))
	fmt.Fprintf(w, "   交易对: %s\n", orNA(resp.Symbol))
	fmt.Fprintf(w, "   方向: %s\n", orNA(string(resp.Side)))
	fmt.Fprintf(w, "   类型: %s\n", orNA(string(resp.Type)))
	fmt.Fprintf(w, "   数量: %s\n", orNA(resp.OrigQty))
	fmt.Fprintf(w, "   价格: %s\n", price)
	fmt.Fprintf(w, "   状态: %s\n", orNA(string(resp.Status)))
	fmt.Fprintf(w, "   时间: %s\n", ts)
}

func printTWAPHeader(w io.Writer, plan execution.Plan) {
	fmt.Fprintf(w, "\n执行 TWAP 策略: %s %s\n", plan.Symbol, plan.Side)
	fmt.Fprintf(w, "   总数量: %s\n", plan.TotalQuantity)
	fmt.Fprintf(w, "   分段数: %d\n", plan.Chunks)
	fmt.Fprintf(w, "   每段数量: %s\n", plan.ChunkQuantity().StringFixed(execution.QuantityScale))
	fmt.Fprintf(w, "   间隔: %s\n", plan.Interval)
	fmt.Fprintf(w, "   预计耗时: %s\n", plan.EstimatedDuration())
}

func printChunk(w io.Writer, plan execution.Plan, outcome execution.ChunkOutcome) {
	if outcome.Err != nil {
		fmt.Fprintf(w, "   [%d/%d] 失败 %s: %v\n", outcome.Index, plan.Chunks, outcome.ClientOrderID, outcome.Err)
		return
	}
	resp := outcome.Response
	if resp == nil {
		fmt.Fprintf(w, "   [%d/%d] 无回报 %s\n", outcome.Index, plan.Chunks, outcome.ClientOrderID)
		return
	}
	fmt.Fprintf(w, "   [%d/%d] 订单号 %s 状态 %s 成交 %s\n",
		outcome.Index, plan.Chunks, orNA(resp.OrderID), orNA(string(resp.Status)), orNA(resp.ExecutedQty))
}

func printTWAPSummary(w io.Writer, report execution.Report) {
	s := report.Summary
	fmt.Fprintf(w, "\nTWAP 执行汇总 (run %s)\n", report.RunID)
	fmt.Fprintf(w, "   总分段: %d\n", s.TotalChunks)
	fmt.Fprintf(w, "   成功分段: %d\n", s.SuccessfulChunks)
	fmt.Fprintf(w, "   失败分段: %d\n", s.FailedChunks)
	fmt.Fprintf(w, "   请求总数量: %s\n", s.TotalQuantityRequested)
	fmt.Fprintf(w, "   成交总数量: %s\n", s.TotalQuantityFilled)
	fmt.Fprintf(w, "   成交率: %s%%\n", s.FillRatePercent.StringFixed(2))
	if s.AveragePrice.IsPositive() {
		fmt.Fprintf(w, "   成交均价: %s\n", s.AveragePrice)
	}
	fmt.Fprintf(w, "   耗时: %s\n", report.Elapsed().Round(time.Millisecond))
	if report.Interrupted {
		fmt.Fprintf(w, "   状态: 已中断，剩余 %d 个分段未执行\n", report.Plan.Chunks-len(report.Outcomes))
	}
}

func printEvents(w io.Writer, events []journal.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "暂无记录")
		return
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			payload = []byte(notAvailable)
		}
		fmt.Fprintf(w, "#%d %s %-10s %s\n", ev.ID, ev.Timestamp.Format(time.RFC3339), ev.Type, payload)
	}
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
