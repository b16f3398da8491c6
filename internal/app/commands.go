package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-bot/internal/exchange"
	"futures-bot/internal/execution"
	"futures-bot/internal/journal"
)

// OrderArgs 为已校验的单次下单参数，Price/StopPrice 仅在对应策略使用。
type OrderArgs struct {
	Symbol    string
	Side      exchange.Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

// TWAPArgs 为已校验的 TWAP 参数。
type TWAPArgs struct {
	Symbol          string
	Side            exchange.Side
	TotalQuantity   decimal.Decimal
	Chunks          int
	IntervalSeconds int
}

// HistoryArgs 为日志查询参数。
type HistoryArgs struct {
	Type  journal.EventType
	Limit int
}

// ErrJournalDisabled 表示未启用订单日志。
var ErrJournalDisabled = errors.New("订单日志未启用 (journal.enabled=false)")

// RunMarket 提交市价单并输出结果。
func (a *App) RunMarket(ctx context.Context, args OrderArgs) error {
	if err := a.prepareTrading(ctx); err != nil {
		return err
	}
	printOrderIntent(a.out, "MARKET", args)

	resp, err := a.executor.PlaceMarket(ctx, args.Symbol, args.Side, args.Quantity)
	if err != nil {
		return err
	}
	printOrderResult(a.out, "MARKET", resp)
	return nil
}

// RunLimit 提交 GTC 限价单并输出结果。
func (a *App) RunLimit(ctx context.Context, args OrderArgs) error {
	if err := a.prepareTrading(ctx); err != nil {
		return err
	}
	printOrderIntent(a.out, "LIMIT", args)

	resp, err := a.executor.PlaceLimit(ctx, args.Symbol, args.Side, args.Quantity, args.Price)
	if err != nil {
		return err
	}
	printOrderResult(a.out, "LIMIT", resp)
	return nil
}

// RunStopLimit 提交止损限价单并输出结果。
func (a *App) RunStopLimit(ctx context.Context, args OrderArgs) error {
	if err := a.prepareTrading(ctx); err != nil {
		return err
	}
	printOrderIntent(a.out, "STOP-LIMIT", args)

	resp, err := a.executor.PlaceStopLimit(ctx, args.Symbol, args.Side, args.Quantity, args.Price, args.StopPrice)
	if err != nil {
		return err
	}
	printOrderResult(a.out, "STOP-LIMIT", resp)
	return nil
}

// RunTWAP 执行 TWAP，逐段输出进度并打印汇总。
// 分段失败不影响返回值，只有中断或初始化失败才返回错误。
func (a *App) RunTWAP(ctx context.Context, args TWAPArgs) error {
	if err := a.prepareTrading(ctx); err != nil {
		return err
	}

	plan := execution.NewPlan(args.Symbol, args.Side, args.TotalQuantity, args.Chunks, args.IntervalSeconds)
	printTWAPHeader(a.out, plan)

	scheduler := execution.NewScheduler(a.executor, a.waiter, a.logger, a.recorder,
		execution.WithChunkObserver(func(p execution.Plan, outcome execution.ChunkOutcome) {
			printChunk(a.out, p, outcome)
		}),
	)

	report, err := scheduler.Run(ctx, plan)
	if report.RunID != "" {
		printTWAPSummary(a.out, report)
	}
	if err != nil {
		if report.Interrupted {
			return fmt.Errorf("TWAP 已中断，完成 %d/%d 个分段: %w", len(report.Outcomes), plan.Chunks, err)
		}
		return err
	}

	if chunkErr := report.Summary.Err(); chunkErr != nil {
		a.logger.Warn("TWAP 存在失败分段", zap.String("run_id", report.RunID), zap.Error(chunkErr))
	}
	return nil
}

// History 输出最近的订单日志事件。
func (a *App) History(ctx context.Context, args HistoryArgs) error {
	if !a.cfg.Journal.Enabled {
		return ErrJournalDisabled
	}
	if err := a.prepareJournal(ctx); err != nil {
		return err
	}

	events, err := a.journal.ListEvents(ctx, args.Type, args.Limit)
	if err != nil {
		return err
	}
	printEvents(a.out, events)
	return nil
}
