package execution

import (
	"context"

	"futures-bot/internal/exchange"
)

// Recorder 持久化订单事件，实现方自行吞掉写入失败。
type Recorder interface {
	RecordOrder(ctx context.Context, strategy string, req exchange.OrderRequest, resp exchange.OrderResponse)
	RecordError(ctx context.Context, msg string, err error, fields map[string]interface{})
	RecordChunk(ctx context.Context, runID string, outcome ChunkOutcome)
	RecordRun(ctx context.Context, report Report)
}

type nopRecorder struct{}

func (nopRecorder) RecordOrder(context.Context, string, exchange.OrderRequest, exchange.OrderResponse) {
}

func (nopRecorder) RecordError(context.Context, string, error, map[string]interface{}) {}

func (nopRecorder) RecordChunk(context.Context, string, ChunkOutcome) {}

func (nopRecorder) RecordRun(context.Context, Report) {}

// NopRecorder 返回不做任何记录的 Recorder。
func NopRecorder() Recorder {
	return nopRecorder{}
}
