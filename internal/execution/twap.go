package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SchedulerOption 配置 Scheduler。
type SchedulerOption func(*Scheduler)

// WithChunkObserver 在每个分段记录完成后回调，用于实时展示进度。
func WithChunkObserver(fn func(Plan, ChunkOutcome)) SchedulerOption {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

// WithClock 替换时间来源。
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithRunIDGenerator 替换运行编号生成器。
func WithRunIDGenerator(fn func() string) SchedulerOption {
	return func(s *Scheduler) {
		s.newRunID = fn
	}
}

// Scheduler 按固定间隔顺序提交 TWAP 分段市价单。
// 单个分段失败只记录结果，不会中止后续分段。
type Scheduler struct {
	placer   MarketPlacer
	waiter   Waiter
	logger   *zap.Logger
	recorder Recorder
	observer func(Plan, ChunkOutcome)
	now      func() time.Time
	newRunID func() string
}

// NewScheduler 创建 TWAP 调度器，waiter 为空时使用 TimerWaiter。
func NewScheduler(placer MarketPlacer, waiter Waiter, logger *zap.Logger, recorder Recorder, opts ...SchedulerOption) *Scheduler {
	if waiter == nil {
		waiter = TimerWaiter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = NopRecorder()
	}

	s := &Scheduler{
		placer:   placer,
		waiter:   waiter,
		logger:   logger,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
		newRunID: func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run 执行计划中的全部分段。
// ctx 在等待期间被取消时停止调度，返回已记录分段的报告（Interrupted=true）及 ctx 错误。
func (s *Scheduler) Run(ctx context.Context, plan Plan) (Report, error) {
	if err := plan.Validate(); err != nil {
		return Report{}, err
	}

	chunkQty := plan.ChunkQuantity()
	report := Report{
		RunID:     s.newRunID(),
		Plan:      plan,
		Outcomes:  make([]ChunkOutcome, 0, plan.Chunks),
		StartedAt: s.now(),
	}

	logger := s.logger.With(
		zap.String("run_id", report.RunID),
		zap.String("symbol", plan.Symbol),
		zap.String("side", string(plan.Side)),
	)
	logger.Info("开始执行 TWAP",
		zap.Stringer("total_quantity", plan.TotalQuantity),
		zap.Int("chunks", plan.Chunks),
		zap.Stringer("chunk_quantity", chunkQty),
		zap.Duration("interval", plan.Interval),
		zap.Duration("estimated_duration", plan.EstimatedDuration()),
	)
	if planned := chunkQty.Mul(decimal.NewFromInt(int64(plan.Chunks))); !planned.Equal(plan.TotalQuantity) {
		logger.Warn("分段数量存在舍入误差，余数不会补足",
			zap.Stringer("chunk_quantity", chunkQty),
			zap.Stringer("planned_quantity", planned),
			zap.Stringer("total_quantity", plan.TotalQuantity),
			zap.Stringer("difference", plan.TotalQuantity.Sub(planned)),
		)
	}

	for i := 1; i <= plan.Chunks; i++ {
		outcome := s.runChunk(ctx, logger, report.RunID, plan, i, chunkQty)
		report.Outcomes = append(report.Outcomes, outcome)

		s.recorder.RecordChunk(context.WithoutCancel(ctx), report.RunID, outcome)
		if s.observer != nil {
			s.observer(plan, outcome)
		}

		if i == plan.Chunks {
			break
		}

		logger.Debug("等待下一分段", zap.Int("next_chunk", i+1), zap.Duration("wait", plan.Interval))
		if err := s.waiter.Wait(ctx, plan.Interval); err != nil {
			logger.Warn("TWAP 被中断",
				zap.Int("completed_chunks", len(report.Outcomes)),
				zap.Int("remaining_chunks", plan.Chunks-len(report.Outcomes)),
				zap.Error(err),
			)
			report.Interrupted = true
			return s.finish(ctx, logger, report), err
		}
	}

	// 最后一段提交期间被取消时同样视为中断
	if err := ctx.Err(); err != nil {
		logger.Warn("TWAP 在最后分段期间被中断", zap.Error(err))
		report.Interrupted = true
		return s.finish(ctx, logger, report), err
	}

	return s.finish(ctx, logger, report), nil
}

func (s *Scheduler) runChunk(ctx context.Context, logger *zap.Logger, runID string, plan Plan, index int, qty decimal.Decimal) (outcome ChunkOutcome) {
	outcome = ChunkOutcome{
		Index:         index,
		Quantity:      qty,
		ClientOrderID: chunkClientOrderID(runID, index),
		SubmittedAt:   s.now(),
	}

	chunkLogger := logger.With(
		zap.Int("chunk", index),
		zap.Int("chunks", plan.Chunks),
		zap.String("client_order_id", outcome.ClientOrderID),
	)

	defer func() {
		if r := recover(); r != nil {
			outcome.Response = nil
			outcome.Err = fmt.Errorf("execution: 分段 %d 异常: %v", index, r)
			chunkLogger.Error("TWAP 分段异常", zap.Error(outcome.Err))
		}
	}()

	resp, err := s.placer.PlaceMarket(ctx, plan.Symbol, plan.Side, qty, WithClientOrderID(outcome.ClientOrderID))
	if err != nil {
		outcome.Err = err
		chunkLogger.Warn("TWAP 分段失败，继续执行后续分段",
			zap.Stringer("quantity", qty),
			zap.Error(err),
		)
		return outcome
	}

	outcome.Response = &resp
	chunkLogger.Info("TWAP 分段完成",
		zap.String("order_id", resp.OrderID),
		zap.Stringer("quantity", qty),
		zap.String("status", string(resp.Status)),
		zap.String("executed_qty", resp.ExecutedQty),
	)
	return outcome
}

func (s *Scheduler) finish(ctx context.Context, logger *zap.Logger, report Report) Report {
	report.FinishedAt = s.now()
	report.Summary = Summarize(report.Outcomes, report.Plan.TotalQuantity)

	fields := []zap.Field{
		zap.Int("total_chunks", report.Summary.TotalChunks),
		zap.Int("successful_chunks", report.Summary.SuccessfulChunks),
		zap.Int("failed_chunks", report.Summary.FailedChunks),
		zap.Stringer("total_filled", report.Summary.TotalQuantityFilled),
		zap.String("fill_rate_percent", report.Summary.FillRatePercent.StringFixed(2)),
		zap.Stringer("average_price", report.Summary.AveragePrice),
		zap.Duration("elapsed", report.Elapsed()),
		zap.Bool("interrupted", report.Interrupted),
	}
	if err := report.Summary.Err(); err != nil {
		fields = append(fields, zap.NamedError("chunk_errors", err))
	}
	logger.Info("TWAP 执行结束", fields...)

	s.recorder.RecordRun(context.WithoutCancel(ctx), report)
	return report
}

// chunkClientOrderID 生成形如 twap-1a2b3c4d-03 的订单号。
func chunkClientOrderID(runID string, index int) string {
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("twap-%s-%02d", short, index)
}
